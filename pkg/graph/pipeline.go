package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scholargraph/backend/pkg/common"
	"github.com/scholargraph/backend/pkg/logger"
	"github.com/scholargraph/backend/pkg/resolver"
	"github.com/scholargraph/backend/pkg/store"
)

// PipelineState names one state of the per-paper extraction state machine.
// Transitions are strictly forward: Created, EntityExtracting,
// RelationshipExtracting, Validating, then Persisted or Failed.
type PipelineState string

const (
	StateCreated                PipelineState = "created"
	StateEntityExtracting       PipelineState = "entity_extracting"
	StateRelationshipExtracting PipelineState = "relationship_extracting"
	StateValidating             PipelineState = "validating"
	StatePersisted              PipelineState = "persisted"
	StateFailed                 PipelineState = "failed"
)

// IngestPaper creates the paper record and runs it through the extraction
// pipeline. Paper creation always commits, independent of later stage
// outcomes, so a failed paper remains queryable and re-ingestible. The
// returned paper reflects the final processing status.
func (p *PipelineClient) IngestPaper(ctx context.Context, params store.CreatePaperParams) (common.Paper, error) {
	if params.Source == "" {
		params.Source = p.source
	}
	paper, err := p.storage.CreatePaper(ctx, params)
	if err != nil {
		return common.Paper{}, err
	}

	if err := p.processPaper(ctx, paper); err != nil {
		paper.Status = common.StatusFailed
		return paper, err
	}
	return p.storage.GetPaper(ctx, paper.ID)
}

// ReprocessPaper re-enters the pipeline for an existing paper regardless of
// its current status. Store upserts converge, so repeated runs regenerate
// the paper's subgraph without duplicating it.
func (p *PipelineClient) ReprocessPaper(ctx context.Context, paperID string) (common.Paper, error) {
	paper, err := p.storage.GetPaper(ctx, paperID)
	if err != nil {
		return common.Paper{}, err
	}
	if err := p.processPaper(ctx, paper); err != nil {
		paper.Status = common.StatusFailed
		return paper, err
	}
	return p.storage.GetPaper(ctx, paper.ID)
}

// processPaper runs the sequential state machine for one paper. Any stage
// error marks the paper failed and is returned to the caller; nothing from a
// failed stage is partially persisted.
func (p *PipelineClient) processPaper(ctx context.Context, paper common.Paper) error {
	state := StateCreated
	if err := p.storage.UpdatePaperStatus(ctx, paper.ID, common.StatusProcessing, nil); err != nil {
		return err
	}

	fail := func(stage common.ExtractionStage, err error) error {
		state = StateFailed
		logger.Error("pipeline stage failed", "paper", paper.ID, "stage", stage, "error", err)
		if statusErr := p.storage.UpdatePaperStatus(ctx, paper.ID, common.StatusFailed, nil); statusErr != nil {
			logger.Error("failed to mark paper failed", "paper", paper.ID, "error", statusErr)
		}
		return err
	}

	body, err := p.paperBody(paper)
	if err != nil {
		return fail(common.StagePipeline, err)
	}

	state = StateEntityExtracting
	started := time.Now()
	entities, err := p.extractEntities(ctx, body)
	p.record(ctx, paper.ID, common.StageEntity, body, candidateSummary(len(entities), "entities"), started, err)
	if err != nil {
		return fail(common.StageEntity, err)
	}

	state = StateRelationshipExtracting
	recent, err := p.storage.ListCompletedPapers(ctx, p.recentPapersWindow)
	if err != nil {
		return fail(common.StageRelationship, err)
	}
	started = time.Now()
	relationships, err := p.extractRelationships(ctx, body, entities, recent)
	p.record(ctx, paper.ID, common.StageRelationship, body, candidateSummary(len(relationships), "relationships"), started, err)
	if err != nil {
		return fail(common.StageRelationship, err)
	}

	state = StateValidating
	started = time.Now()
	entities = dedupeEntities(entities)
	relationships = filterRelationships(relationships, entities, paper)
	p.record(ctx, paper.ID, common.StageValidation, "",
		candidateSummary(len(entities), "entities")+", "+candidateSummary(len(relationships), "relationships"),
		started, nil)

	started = time.Now()
	persisted, err := p.persist(ctx, paper, entities, relationships)
	p.record(ctx, paper.ID, common.StagePipeline, "", persisted, started, err)
	if err != nil {
		return fail(common.StagePipeline, err)
	}

	state = StatePersisted
	now := time.Now()
	if err := p.storage.UpdatePaperStatus(ctx, paper.ID, common.StatusCompleted, &now); err != nil {
		return fail(common.StagePipeline, err)
	}
	logger.Info("paper ingested", "paper", paper.ID, "title", paper.Title, "state", state)
	return nil
}

// persist writes the validated entities and relationships. Both endpoint
// names of each relationship must resolve to node ids; relationships with an
// unresolved endpoint are skipped and counted, never persisted dangling and
// never fatal to the paper.
func (p *PipelineClient) persist(
	ctx context.Context,
	paper common.Paper,
	entities []entityCandidate,
	relationships []relationshipCandidate,
) (string, error) {
	nodeParams := make([]store.UpsertNodeParams, 0, len(entities))
	for _, e := range entities {
		metadata := e.Metadata
		if e.Context != "" {
			metadata = metadata.Merge(common.Metadata{"context": e.Context})
		}
		nodeParams = append(nodeParams, store.UpsertNodeParams{
			Kind:        e.Kind,
			Name:        e.Name,
			Description: e.Description,
			Metadata:    metadata,
			Source:      p.source,
			Confidence:  e.Confidence,
		})
	}

	localIDs, err := p.storage.BatchUpsertNodes(ctx, nodeParams)
	if err != nil {
		return "", err
	}

	r := resolver.NewEntityResolver(p.storage, paper, localIDs)

	created := 0
	skipped := 0
	for _, rel := range relationships {
		sourceID, err := r.Resolve(ctx, rel.Source)
		if err != nil {
			if errors.Is(err, common.ErrUnresolved) {
				skipped++
				continue
			}
			return "", err
		}
		targetID, err := r.Resolve(ctx, rel.Target)
		if err != nil {
			if errors.Is(err, common.ErrUnresolved) {
				skipped++
				continue
			}
			return "", err
		}

		_, err = p.storage.UpsertEdge(ctx, store.UpsertEdgeParams{
			Kind:        rel.Kind,
			SourceID:    sourceID,
			TargetID:    targetID,
			Description: rel.Description,
			Evidence:    rel.Evidence,
			Confidence:  rel.Confidence,
			Metadata:    rel.Metadata,
			Source:      p.source,
		})
		if err != nil {
			var vErr *common.ValidationError
			if errors.As(err, &vErr) {
				skipped++
				logger.Warn("skipping invalid relationship", "paper", paper.ID, "error", err)
				continue
			}
			return "", err
		}
		created++
	}

	return fmt.Sprintf("%d nodes, %d edges created, %d relationships skipped", len(localIDs), created, skipped), nil
}

// record writes one extraction audit entry. Recording is best effort; a
// failed write is logged and never propagates to the pipeline.
func (p *PipelineClient) record(
	ctx context.Context,
	paperID string,
	stage common.ExtractionStage,
	input string,
	output string,
	started time.Time,
	stageErr error,
) {
	rec := common.ExtractionRecord{
		PaperID:   paperID,
		Stage:     stage,
		Input:     input,
		Output:    output,
		Success:   stageErr == nil,
		Duration:  time.Since(started),
		Timestamp: time.Now(),
	}
	if stageErr != nil {
		rec.Error = stageErr.Error()
	}
	if err := p.storage.AddExtractionRecord(ctx, rec); err != nil {
		logger.Warn("failed to write extraction record", "paper", paperID, "stage", stage, "error", err)
	}
}

func candidateSummary(n int, what string) string {
	return fmt.Sprintf("%d %s", n, what)
}
