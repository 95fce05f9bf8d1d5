package resolver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/scholargraph/backend/pkg/common"
	"github.com/scholargraph/backend/pkg/resolver"
	"github.com/scholargraph/backend/pkg/store"
	"github.com/scholargraph/backend/pkg/store/memory"
)

func setupPaper(t *testing.T, storage store.GraphStorage, title string) common.Paper {
	t.Helper()
	paper, err := storage.CreatePaper(context.Background(), store.CreatePaperParams{
		Title:  title,
		Source: "test",
	})
	if err != nil {
		t.Fatalf("CreatePaper: %v", err)
	}
	return paper
}

func TestResolveLocalTierBeatsGlobalFuzzy(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewGraphMemStorage()
	paper := setupPaper(t, storage, "Novel View Synthesis Survey")

	global, err := storage.UpsertNode(ctx, store.UpsertNodeParams{
		Kind:       common.NodeKindMethod,
		Name:       "Neural Radiance Fields (NeRF)",
		Confidence: 0.9,
		Source:     "test",
	})
	if err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}

	local, err := storage.UpsertNode(ctx, store.UpsertNodeParams{
		Kind:       common.NodeKindMethod,
		Name:       "NeRF",
		Confidence: 0.8,
		Source:     "test",
	})
	if err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}

	r := resolver.NewEntityResolver(storage, paper, map[string]string{
		local.CanonicalName: local.ID,
	})

	id, err := r.Resolve(ctx, "NeRF")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != local.ID {
		t.Fatalf("expected paper-local id %s, got %s", local.ID, id)
	}
	if id == global.ID {
		t.Fatalf("resolver picked the global fuzzy match over the local entity")
	}
}

func TestResolveSelfReferenceTier(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewGraphMemStorage()
	paper := setupPaper(t, storage, "Gaussian Splatting for Real-Time Rendering")

	r := resolver.NewEntityResolver(storage, paper, nil)

	id, err := r.Resolve(ctx, "Gaussian Splatting for Real-Time Rendering")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != paper.ID {
		t.Fatalf("expected paper id %s, got %s", paper.ID, id)
	}
}

func TestResolveGlobalFuzzyTier(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewGraphMemStorage()
	paper := setupPaper(t, storage, "Some Survey")

	node, err := storage.UpsertNode(ctx, store.UpsertNodeParams{
		Kind:       common.NodeKindDataset,
		Name:       "ImageNet",
		Confidence: 0.9,
		Source:     "test",
	})
	if err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}

	r := resolver.NewEntityResolver(storage, paper, nil)

	id, err := r.Resolve(ctx, "ImageNet")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != node.ID {
		t.Fatalf("expected %s, got %s", node.ID, id)
	}
}

func TestResolveUnresolved(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewGraphMemStorage()
	paper := setupPaper(t, storage, "Some Survey")

	r := resolver.NewEntityResolver(storage, paper, nil)

	if _, err := r.Resolve(ctx, "completely unknown entity zzz"); !errors.Is(err, common.ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
	if _, err := r.Resolve(ctx, "   !!!   "); !errors.Is(err, common.ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved for empty canonical, got %v", err)
	}
}
