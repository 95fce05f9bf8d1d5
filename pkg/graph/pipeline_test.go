package graph_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/scholargraph/backend/pkg/ai"
	"github.com/scholargraph/backend/pkg/common"
	"github.com/scholargraph/backend/pkg/graph"
	"github.com/scholargraph/backend/pkg/store"
	"github.com/scholargraph/backend/pkg/store/memory"
)

// scriptedClient returns canned structured output per request name. Scripts
// are keyed by request name; the selected script may inspect the prompt to
// vary responses per paper or to simulate failures.
type scriptedClient struct {
	scripts map[string]func(prompt string) (string, error)
}

func (c *scriptedClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("not scripted")
}

func (c *scriptedClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	script, ok := c.scripts[name]
	if !ok {
		return fmt.Errorf("no script for %s", name)
	}
	payload, err := script(prompt)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(payload), out)
}

func (c *scriptedClient) ResetMetrics() {}

func (c *scriptedClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func entityPayload(entities ...string) string {
	return fmt.Sprintf(`{"entities":[%s]}`, strings.Join(entities, ","))
}

func entityJSON(name, kind string, confidence float64) string {
	return fmt.Sprintf(`{"name":%q,"kind":%q,"description":"","confidence":%g,"context":""}`, name, kind, confidence)
}

func relationshipPayload(relationships ...string) string {
	return fmt.Sprintf(`{"relationships":[%s]}`, strings.Join(relationships, ","))
}

func relationshipJSON(source, target, kind string, confidence float64) string {
	return fmt.Sprintf(`{"source":%q,"target":%q,"kind":%q,"description":"","evidence":"","confidence":%g}`, source, target, kind, confidence)
}

func newPipeline(storage store.GraphStorage, client ai.GraphAIClient) *graph.PipelineClient {
	return graph.NewPipelineClient(graph.NewPipelineClientParams{
		Storage:    storage,
		Client:     client,
		MaxRetries: 1,
		ChunkDelay: time.Millisecond,
	})
}

func TestIngestPaperPersistsEntitiesAndEdges(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewGraphMemStorage()
	client := &scriptedClient{scripts: map[string]func(string) (string, error){
		"extract_entities": func(string) (string, error) {
			return entityPayload(
				entityJSON("Gaussian Splatting", "technique", 0.9),
				entityJSON("Tanks and Temples", "dataset", 0.8),
			), nil
		},
		"extract_relationships": func(string) (string, error) {
			return relationshipPayload(
				relationshipJSON("Radiance Field Rendering", "Gaussian Splatting", "introduces", 0.9),
				relationshipJSON("Gaussian Splatting", "Tanks and Temples", "evaluates_on", 0.8),
			), nil
		},
	}}
	p := newPipeline(storage, client)

	paper, err := p.IngestPaper(ctx, store.CreatePaperParams{Title: "Radiance Field Rendering"})
	if err != nil {
		t.Fatalf("IngestPaper: %v", err)
	}
	if paper.Status != common.StatusCompleted {
		t.Fatalf("expected completed, got %s", paper.Status)
	}
	if paper.ProcessedAt == nil {
		t.Fatalf("expected processed_at to be set")
	}

	stats, err := storage.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.NodesByKind[common.NodeKindTechnique] != 1 {
		t.Fatalf("expected 1 technique node, got %d", stats.NodesByKind[common.NodeKindTechnique])
	}
	if stats.NodesByKind[common.NodeKindDataset] != 1 {
		t.Fatalf("expected 1 dataset node, got %d", stats.NodesByKind[common.NodeKindDataset])
	}
	if stats.EdgesByKind[common.EdgeKindIntroduces] != 1 || stats.EdgesByKind[common.EdgeKindEvaluatesOn] != 1 {
		t.Fatalf("unexpected edge counts: %v", stats.EdgesByKind)
	}

	records, err := storage.GetExtractionRecords(ctx, paper.ID)
	if err != nil {
		t.Fatalf("GetExtractionRecords: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 stage records, got %d", len(records))
	}
}

func TestDuplicateMentionsConvergeAcrossPapers(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewGraphMemStorage()

	confidence := 0.6
	client := &scriptedClient{scripts: map[string]func(string) (string, error){
		"extract_entities": func(string) (string, error) {
			return entityPayload(
				entityJSON("Technique X", "technique", confidence),
				entityJSON("Technique X", "technique", confidence),
			), nil
		},
		"extract_relationships": func(string) (string, error) {
			return relationshipPayload(), nil
		},
	}}
	p := newPipeline(storage, client)

	if _, err := p.IngestPaper(ctx, store.CreatePaperParams{Title: "Paper One"}); err != nil {
		t.Fatalf("IngestPaper P1: %v", err)
	}
	confidence = 0.9
	if _, err := p.IngestPaper(ctx, store.CreatePaperParams{Title: "Paper Two"}); err != nil {
		t.Fatalf("IngestPaper P2: %v", err)
	}

	node, err := storage.FindNodeByKindAndName(ctx, common.NodeKindTechnique, "Technique X")
	if err != nil {
		t.Fatalf("FindNodeByKindAndName: %v", err)
	}
	if node.CanonicalName != "technique x" {
		t.Fatalf("expected canonical 'technique x', got %q", node.CanonicalName)
	}
	if node.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %g", node.Confidence)
	}

	stats, err := storage.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.NodesByKind[common.NodeKindTechnique] != 1 {
		t.Fatalf("expected exactly one technique node, got %d", stats.NodesByKind[common.NodeKindTechnique])
	}
}

func TestStageFailureMarksPaperFailed(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewGraphMemStorage()
	client := &scriptedClient{scripts: map[string]func(string) (string, error){
		"extract_entities": func(string) (string, error) {
			return "", errors.New("upstream timeout")
		},
	}}
	p := newPipeline(storage, client)

	paper, err := p.IngestPaper(ctx, store.CreatePaperParams{Title: "Doomed Paper"})
	if err == nil {
		t.Fatalf("expected stage failure")
	}
	var svcErr *common.ExternalServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ExternalServiceError, got %T: %v", err, err)
	}
	if paper.Status != common.StatusFailed {
		t.Fatalf("expected failed status, got %s", paper.Status)
	}

	stored, err := storage.GetPaper(ctx, paper.ID)
	if err != nil {
		t.Fatalf("paper record must survive stage failure: %v", err)
	}
	if stored.Status != common.StatusFailed {
		t.Fatalf("expected stored status failed, got %s", stored.Status)
	}
}

func TestMalformedOutputIsParseError(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewGraphMemStorage()
	client := &scriptedClient{scripts: map[string]func(string) (string, error){
		"extract_entities": func(string) (string, error) {
			return "", fmt.Errorf("garbled response: %w", ai.ErrMalformedOutput)
		},
	}}
	p := newPipeline(storage, client)

	_, err := p.IngestPaper(ctx, store.CreatePaperParams{Title: "Garbled Paper"})
	var parseErr *common.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
	if parseErr.Stage != common.StageEntity {
		t.Fatalf("expected entity stage, got %s", parseErr.Stage)
	}
}

func TestUnknownKindIsParseError(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewGraphMemStorage()
	client := &scriptedClient{scripts: map[string]func(string) (string, error){
		"extract_entities": func(string) (string, error) {
			return entityPayload(entityJSON("Thing", "gadget", 0.9)), nil
		},
	}}
	p := newPipeline(storage, client)

	_, err := p.IngestPaper(ctx, store.CreatePaperParams{Title: "Weird Paper"})
	var parseErr *common.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError for unknown kind, got %T: %v", err, err)
	}
}

func TestReprocessingConverges(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewGraphMemStorage()
	client := &scriptedClient{scripts: map[string]func(string) (string, error){
		"extract_entities": func(string) (string, error) {
			return entityPayload(
				entityJSON("NeRF", "method", 0.9),
				entityJSON("PSNR", "metric", 0.8),
			), nil
		},
		"extract_relationships": func(string) (string, error) {
			return relationshipPayload(
				relationshipJSON("Stable Paper", "NeRF", "uses", 0.9),
			), nil
		},
	}}
	p := newPipeline(storage, client)

	paper, err := p.IngestPaper(ctx, store.CreatePaperParams{Title: "Stable Paper", ExternalID: "arxiv:1"})
	if err != nil {
		t.Fatalf("IngestPaper: %v", err)
	}
	first, err := storage.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}

	if _, err := p.ReprocessPaper(ctx, paper.ID); err != nil {
		t.Fatalf("ReprocessPaper: %v", err)
	}
	second, err := storage.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}

	for kind, count := range first.NodesByKind {
		if second.NodesByKind[kind] != count {
			t.Fatalf("node count for %s changed: %d -> %d", kind, count, second.NodesByKind[kind])
		}
	}
	for kind, count := range first.EdgesByKind {
		if second.EdgesByKind[kind] != count {
			t.Fatalf("edge count for %s changed: %d -> %d", kind, count, second.EdgesByKind[kind])
		}
	}
}

func TestUnresolvedEndpointsAreSkipped(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewGraphMemStorage()
	client := &scriptedClient{scripts: map[string]func(string) (string, error){
		"extract_entities": func(string) (string, error) {
			return entityPayload(entityJSON("Method A", "method", 0.9)), nil
		},
		"extract_relationships": func(string) (string, error) {
			return relationshipPayload(
				relationshipJSON("Method A", "Completely Unknown Entity QQQ", "extends", 0.9),
			), nil
		},
	}}
	p := newPipeline(storage, client)

	if _, err := p.IngestPaper(ctx, store.CreatePaperParams{Title: "Lonely Paper"}); err != nil {
		t.Fatalf("IngestPaper: %v", err)
	}

	stats, err := storage.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	for kind, count := range stats.EdgesByKind {
		if count != 0 {
			t.Fatalf("expected no edges, got %d of kind %s", count, kind)
		}
	}
}
