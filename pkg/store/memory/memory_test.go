package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/scholargraph/backend/pkg/common"
	"github.com/scholargraph/backend/pkg/store"
)

func TestUpsertNode_ConvergesOnSameIdentity(t *testing.T) {
	s := NewGraphMemStorage()
	ctx := context.Background()

	first, err := s.UpsertNode(ctx, store.UpsertNodeParams{
		Kind:       common.NodeKindTechnique,
		Name:       "Technique X",
		Metadata:   common.Metadata{"a": 1},
		Source:     "paper-1",
		Confidence: 0.6,
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second, err := s.UpsertNode(ctx, store.UpsertNodeParams{
		Kind:       common.NodeKindTechnique,
		Name:       "  technique   x!",
		Metadata:   common.Metadata{"b": 2},
		Source:     "paper-2",
		Confidence: 0.9,
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected same id, got %q and %q", first.ID, second.ID)
	}
	if second.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %v", second.Confidence)
	}
	if second.Metadata["a"] != 1 || second.Metadata["b"] != 2 {
		t.Fatalf("expected union of metadata, got %v", second.Metadata)
	}
	if second.CanonicalName != "technique x" {
		t.Fatalf("expected canonical 'technique x', got %q", second.CanonicalName)
	}
}

func TestUpsertNode_ConfidenceNeverDecreases(t *testing.T) {
	s := NewGraphMemStorage()
	ctx := context.Background()

	if _, err := s.UpsertNode(ctx, store.UpsertNodeParams{
		Kind: common.NodeKindConcept, Name: "X", Confidence: 0.9,
	}); err != nil {
		t.Fatal(err)
	}
	node, err := s.UpsertNode(ctx, store.UpsertNodeParams{
		Kind: common.NodeKindConcept, Name: "X", Confidence: 0.2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if node.Confidence != 0.9 {
		t.Fatalf("expected confidence to stay 0.9, got %v", node.Confidence)
	}
}

func TestUpsertNode_Validation(t *testing.T) {
	s := NewGraphMemStorage()
	ctx := context.Background()

	var verr *common.ValidationError
	_, err := s.UpsertNode(ctx, store.UpsertNodeParams{Kind: common.NodeKindConcept, Name: "   "})
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty name, got %v", err)
	}

	_, err = s.UpsertNode(ctx, store.UpsertNodeParams{Kind: "martian", Name: "X"})
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for unknown kind, got %v", err)
	}
}

func TestUpsertNode_ClampsConfidence(t *testing.T) {
	s := NewGraphMemStorage()
	ctx := context.Background()

	node, err := s.UpsertNode(ctx, store.UpsertNodeParams{
		Kind: common.NodeKindConcept, Name: "X", Confidence: 1.7,
	})
	if err != nil {
		t.Fatal(err)
	}
	if node.Confidence != 1 {
		t.Fatalf("expected clamp to 1, got %v", node.Confidence)
	}
}

func TestUpsertEdge_MergeKeepsExistingEvidence(t *testing.T) {
	s := NewGraphMemStorage()
	ctx := context.Background()

	x, _ := s.UpsertNode(ctx, store.UpsertNodeParams{Kind: common.NodeKindMethod, Name: "X", Confidence: 1})
	y, _ := s.UpsertNode(ctx, store.UpsertNodeParams{Kind: common.NodeKindMethod, Name: "Y", Confidence: 1})

	first, err := s.UpsertEdge(ctx, store.UpsertEdgeParams{
		Kind: common.EdgeKindExtends, SourceID: x.ID, TargetID: y.ID,
		Evidence: "e1", Confidence: 0.5,
	})
	if err != nil {
		t.Fatalf("first edge: %v", err)
	}

	second, err := s.UpsertEdge(ctx, store.UpsertEdgeParams{
		Kind: common.EdgeKindExtends, SourceID: x.ID, TargetID: y.ID,
		Evidence: "", Confidence: 0.9,
	})
	if err != nil {
		t.Fatalf("second edge: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected one edge row, got two ids")
	}
	if second.Evidence != "e1" {
		t.Fatalf("expected evidence kept as 'e1', got %q", second.Evidence)
	}
	if second.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %v", second.Confidence)
	}
}

func TestUpsertEdge_DirectionIsIdentity(t *testing.T) {
	s := NewGraphMemStorage()
	ctx := context.Background()

	x, _ := s.UpsertNode(ctx, store.UpsertNodeParams{Kind: common.NodeKindMethod, Name: "X", Confidence: 1})
	y, _ := s.UpsertNode(ctx, store.UpsertNodeParams{Kind: common.NodeKindMethod, Name: "Y", Confidence: 1})

	ab, _ := s.UpsertEdge(ctx, store.UpsertEdgeParams{Kind: common.EdgeKindCites, SourceID: x.ID, TargetID: y.ID, Confidence: 0.5})
	ba, _ := s.UpsertEdge(ctx, store.UpsertEdgeParams{Kind: common.EdgeKindCites, SourceID: y.ID, TargetID: x.ID, Confidence: 0.5})
	if ab.ID == ba.ID {
		t.Fatal("expected A->B and B->A to be distinct edges")
	}

	// Self-loops are allowed.
	if _, err := s.UpsertEdge(ctx, store.UpsertEdgeParams{Kind: common.EdgeKindCites, SourceID: x.ID, TargetID: x.ID, Confidence: 0.5}); err != nil {
		t.Fatalf("self-loop should be permitted: %v", err)
	}
}

func TestUpsertEdge_MissingEndpointRejected(t *testing.T) {
	s := NewGraphMemStorage()
	ctx := context.Background()

	x, _ := s.UpsertNode(ctx, store.UpsertNodeParams{Kind: common.NodeKindMethod, Name: "X", Confidence: 1})

	var verr *common.ValidationError
	_, err := s.UpsertEdge(ctx, store.UpsertEdgeParams{
		Kind: common.EdgeKindCites, SourceID: x.ID, TargetID: "missing", Confidence: 0.5,
	})
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for dangling target, got %v", err)
	}
}

func TestDeleteNode_CascadesEdges(t *testing.T) {
	s := NewGraphMemStorage()
	ctx := context.Background()

	x, _ := s.UpsertNode(ctx, store.UpsertNodeParams{Kind: common.NodeKindMethod, Name: "X", Confidence: 1})
	y, _ := s.UpsertNode(ctx, store.UpsertNodeParams{Kind: common.NodeKindMethod, Name: "Y", Confidence: 1})
	z, _ := s.UpsertNode(ctx, store.UpsertNodeParams{Kind: common.NodeKindMethod, Name: "Z", Confidence: 1})

	s.UpsertEdge(ctx, store.UpsertEdgeParams{Kind: common.EdgeKindCites, SourceID: x.ID, TargetID: y.ID, Confidence: 0.5})
	s.UpsertEdge(ctx, store.UpsertEdgeParams{Kind: common.EdgeKindCites, SourceID: y.ID, TargetID: z.ID, Confidence: 0.5})
	s.UpsertEdge(ctx, store.UpsertEdgeParams{Kind: common.EdgeKindCites, SourceID: x.ID, TargetID: z.ID, Confidence: 0.5})

	if err := s.DeleteNode(ctx, y.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	edges, err := s.FindEdgesByEndpoint(ctx, x.ID, store.DirectionBoth, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected only X->Z to survive, got %d edges", len(edges))
	}
	if edges[0].TargetID != z.ID {
		t.Fatalf("expected surviving edge X->Z, got %+v", edges[0])
	}
}

func TestFuzzySearchNodes_RankingAndThreshold(t *testing.T) {
	s := NewGraphMemStorage()
	ctx := context.Background()

	s.UpsertNode(ctx, store.UpsertNodeParams{Kind: common.NodeKindConcept, Name: "Neural Radiance Fields (NeRF)", Confidence: 1})
	s.UpsertNode(ctx, store.UpsertNodeParams{Kind: common.NodeKindConcept, Name: "Gaussian Splatting", Confidence: 1})
	s.UpsertNode(ctx, store.UpsertNodeParams{Kind: common.NodeKindDataset, Name: "ImageNet", Confidence: 1})

	results, err := s.FuzzySearchNodes(ctx, "nerf", nil, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one candidate for 'nerf'")
	}
	if results[0].Node.CanonicalName != "neural radiance fields nerf" {
		t.Fatalf("expected NeRF node first, got %q", results[0].Node.CanonicalName)
	}

	results, err = s.FuzzySearchNodes(ctx, "completely unrelated query string", nil, 5)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Score < store.FuzzyThreshold {
			t.Fatalf("result below threshold returned: %+v", r)
		}
	}
}

func TestFuzzySearchNodes_KindFilter(t *testing.T) {
	s := NewGraphMemStorage()
	ctx := context.Background()

	s.UpsertNode(ctx, store.UpsertNodeParams{Kind: common.NodeKindConcept, Name: "transformer", Confidence: 1})
	s.UpsertNode(ctx, store.UpsertNodeParams{Kind: common.NodeKindDataset, Name: "transformer", Confidence: 1})

	kind := common.NodeKindDataset
	results, err := s.FuzzySearchNodes(ctx, "transformer", &kind, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Node.Kind != common.NodeKindDataset {
		t.Fatalf("expected single dataset result, got %+v", results)
	}
}

func TestBatchUpsertNodes_ReturnsCanonicalMap(t *testing.T) {
	s := NewGraphMemStorage()
	ctx := context.Background()

	ids, err := s.BatchUpsertNodes(ctx, []store.UpsertNodeParams{
		{Kind: common.NodeKindTechnique, Name: "Technique X", Confidence: 0.6},
		{Kind: common.NodeKindTechnique, Name: "TECHNIQUE X", Confidence: 0.6},
		{Kind: common.NodeKindDataset, Name: "ImageNet", Confidence: 0.8},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected two distinct canonical names, got %d", len(ids))
	}
	if _, ok := ids["technique x"]; !ok {
		t.Fatalf("missing 'technique x' in %v", ids)
	}
}
