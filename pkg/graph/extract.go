package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/scholargraph/backend/internal/util"
	"github.com/scholargraph/backend/pkg/ai"
	"github.com/scholargraph/backend/pkg/common"
)

const truncationMarker = "\n\n[TEXT TRUNCATED]"

type extractEntity struct {
	Name        string            `json:"name" jsonschema_description:"Name of the entity exactly as the paper introduces it"`
	Kind        string            `json:"kind" jsonschema_description:"One of the provided entity kinds"`
	Description string            `json:"description" jsonschema_description:"What the paper states about this entity"`
	Confidence  float64           `json:"confidence" jsonschema_description:"Confidence that this is a real, correctly typed entity, between 0 and 1"`
	Context     string            `json:"context" jsonschema_description:"Short quote from the paper where the entity appears"`
	Metadata    map[string]string `json:"metadata,omitempty" jsonschema_description:"Additional string properties of the entity"`
}

type extractEntityResponse struct {
	Entities []extractEntity `json:"entities" jsonschema_description:"Entities identified in the paper"`
}

type extractRelationship struct {
	Source      string            `json:"source" jsonschema_description:"Name of the source entity"`
	Target      string            `json:"target" jsonschema_description:"Name of the target entity"`
	Kind        string            `json:"kind" jsonschema_description:"One of the provided relationship kinds"`
	Description string            `json:"description" jsonschema_description:"Why the source relates to the target, per the paper"`
	Evidence    string            `json:"evidence" jsonschema_description:"Short quote supporting the relationship"`
	Confidence  float64           `json:"confidence" jsonschema_description:"Confidence in the relationship, between 0 and 1"`
	Metadata    map[string]string `json:"metadata,omitempty" jsonschema_description:"Additional string properties of the relationship"`
}

type extractRelationshipResponse struct {
	Relationships []extractRelationship `json:"relationships" jsonschema_description:"Directed relationships identified in the paper"`
}

// entityCandidate is one validated stage-1 result.
type entityCandidate struct {
	Name        string
	Kind        common.NodeKind
	Description string
	Confidence  float64
	Context     string
	Metadata    common.Metadata
}

// relationshipCandidate is one validated stage-2 result. Source and Target
// are still free-text names; the resolver maps them to node ids during
// persistence.
type relationshipCandidate struct {
	Source      string
	Target      string
	Kind        common.EdgeKind
	Description string
	Evidence    string
	Confidence  float64
	Metadata    common.Metadata
}

// paperBody assembles the text sent to the capability, bounded to
// maxBodyTokens with an explicit truncation marker when the body is cut.
func (p *PipelineClient) paperBody(paper common.Paper) (string, error) {
	var body strings.Builder
	body.WriteString("Title: ")
	body.WriteString(paper.Title)
	if len(paper.Authors) > 0 {
		body.WriteString("\nAuthors: ")
		body.WriteString(strings.Join(paper.Authors, ", "))
	}
	if paper.Abstract != "" {
		body.WriteString("\n\nAbstract:\n")
		body.WriteString(paper.Abstract)
	}
	if paper.FullText != "" {
		body.WriteString("\n\n")
		body.WriteString(paper.FullText)
	}

	enc, err := tiktoken.GetEncoding(p.tokenEncoder)
	if err != nil {
		return "", err
	}

	text := body.String()
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= p.maxBodyTokens {
		return text, nil
	}
	return enc.Decode(tokens[:p.maxBodyTokens]) + truncationMarker, nil
}

func nodeKindList() string {
	kinds := common.NodeKinds()
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, string(k))
	}
	return strings.Join(parts, ",")
}

func edgeKindList() string {
	kinds := common.EdgeKinds()
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, string(k))
	}
	return strings.Join(parts, ",")
}

func toMetadata(m map[string]string) common.Metadata {
	if len(m) == 0 {
		return nil
	}
	out := make(common.Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// extractEntities runs stage 1 against the capability. Transport failures
// surface as ExternalServiceError; output that cannot be parsed, or that
// names a kind outside the enumeration, is a ParseError.
func (p *PipelineClient) extractEntities(ctx context.Context, body string) ([]entityCandidate, error) {
	kinds := nodeKindList()
	systemPrompt := fmt.Sprintf(ai.EntityExtractPrompt, kinds, kinds, kinds)

	res, err := util.RetryWithContext(ctx, p.maxRetries, func(ctx context.Context) (extractEntityResponse, error) {
		var res extractEntityResponse
		err := p.client.GenerateCompletionWithFormat(
			ctx,
			"extract_entities",
			"Extract typed entities from a scholarly paper.",
			body,
			&res,
			ai.WithSystemPrompts(systemPrompt),
		)
		return res, err
	})
	if err != nil {
		return nil, mapCapabilityError(common.StageEntity, err)
	}

	candidates := make([]entityCandidate, 0, len(res.Entities))
	for _, e := range res.Entities {
		kind := common.NodeKind(strings.ToLower(strings.TrimSpace(e.Kind)))
		if !common.ValidNodeKind(kind) {
			return nil, &common.ParseError{
				Stage: common.StageEntity,
				Err:   fmt.Errorf("unknown entity kind %q", e.Kind),
			}
		}
		candidates = append(candidates, entityCandidate{
			Name:        strings.TrimSpace(e.Name),
			Kind:        kind,
			Description: e.Description,
			Confidence:  e.Confidence,
			Context:     e.Context,
			Metadata:    toMetadata(e.Metadata),
		})
	}
	return candidates, nil
}

// extractRelationships runs stage 2 with the stage-1 entities and a bounded
// window of recently completed papers for cross-paper linking.
func (p *PipelineClient) extractRelationships(
	ctx context.Context,
	body string,
	entities []entityCandidate,
	recentPapers []common.Paper,
) ([]relationshipCandidate, error) {
	var entityList strings.Builder
	for _, e := range entities {
		fmt.Fprintf(&entityList, "- %s (%s)\n", e.Name, e.Kind)
	}
	if entityList.Len() == 0 {
		entityList.WriteString("(none)\n")
	}

	var paperList strings.Builder
	for _, paper := range recentPapers {
		fmt.Fprintf(&paperList, "- %s\n", paper.Title)
	}
	if paperList.Len() == 0 {
		paperList.WriteString("(none)\n")
	}

	kinds := edgeKindList()
	systemPrompt := fmt.Sprintf(ai.RelationExtractPrompt, kinds, entityList.String(), paperList.String(), kinds)

	res, err := util.RetryWithContext(ctx, p.maxRetries, func(ctx context.Context) (extractRelationshipResponse, error) {
		var res extractRelationshipResponse
		err := p.client.GenerateCompletionWithFormat(
			ctx,
			"extract_relationships",
			"Extract directed relationships between entities in a scholarly paper.",
			body,
			&res,
			ai.WithSystemPrompts(systemPrompt),
		)
		return res, err
	})
	if err != nil {
		return nil, mapCapabilityError(common.StageRelationship, err)
	}

	candidates := make([]relationshipCandidate, 0, len(res.Relationships))
	for _, r := range res.Relationships {
		kind := common.EdgeKind(strings.ToLower(strings.TrimSpace(r.Kind)))
		if !common.ValidEdgeKind(kind) {
			return nil, &common.ParseError{
				Stage: common.StageRelationship,
				Err:   fmt.Errorf("unknown relationship kind %q", r.Kind),
			}
		}
		candidates = append(candidates, relationshipCandidate{
			Source:      strings.TrimSpace(r.Source),
			Target:      strings.TrimSpace(r.Target),
			Kind:        kind,
			Description: r.Description,
			Evidence:    r.Evidence,
			Confidence:  r.Confidence,
			Metadata:    toMetadata(r.Metadata),
		})
	}
	return candidates, nil
}

// mapCapabilityError classifies a capability failure. Malformed output stays
// a parse failure of the stage; everything else is a service failure the
// caller can retry by reprocessing the paper.
func mapCapabilityError(stage common.ExtractionStage, err error) error {
	if errors.Is(err, ai.ErrMalformedOutput) {
		return &common.ParseError{Stage: stage, Err: err}
	}
	return &common.ExternalServiceError{Service: "text-analysis", Err: err}
}
