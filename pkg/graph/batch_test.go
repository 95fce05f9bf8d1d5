package graph_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/scholargraph/backend/pkg/common"
	"github.com/scholargraph/backend/pkg/store"
	"github.com/scholargraph/backend/pkg/store/memory"
)

func TestIngestManyIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewGraphMemStorage()
	client := &scriptedClient{scripts: map[string]func(string) (string, error){
		"extract_entities": func(string) (string, error) {
			return entityPayload(entityJSON("Shared Concept", "concept", 0.8)), nil
		},
		"extract_relationships": func(prompt string) (string, error) {
			if strings.Contains(prompt, "Paper Three") {
				return "", errors.New("rate limited")
			}
			return relationshipPayload(), nil
		},
	}}
	p := newPipeline(storage, client)

	papers := []store.CreatePaperParams{
		{Title: "Paper One"},
		{Title: "Paper Two"},
		{Title: "Paper Three"},
		{Title: "Paper Four"},
		{Title: "Paper Five"},
	}

	summary, err := p.IngestMany(ctx, papers, 5)
	if err != nil {
		t.Fatalf("IngestMany: %v", err)
	}
	if summary.SuccessCount != 4 {
		t.Fatalf("expected success=4, got %d", summary.SuccessCount)
	}
	if summary.FailureCount != 1 {
		t.Fatalf("expected failure=1, got %d", summary.FailureCount)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].Title != "Paper Three" {
		t.Fatalf("unexpected failure detail: %+v", summary.Failures)
	}

	failed, err := storage.ListPapersByStatus(ctx, common.StatusFailed, 10)
	if err != nil {
		t.Fatalf("ListPapersByStatus: %v", err)
	}
	if len(failed) != 1 || failed[0].Title != "Paper Three" {
		t.Fatalf("expected only Paper Three failed, got %+v", failed)
	}

	completed, err := storage.ListPapersByStatus(ctx, common.StatusCompleted, 10)
	if err != nil {
		t.Fatalf("ListPapersByStatus: %v", err)
	}
	if len(completed) != 4 {
		t.Fatalf("expected 4 completed papers, got %d", len(completed))
	}
}

func TestIngestManyChunksSequentially(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewGraphMemStorage()
	client := &scriptedClient{scripts: map[string]func(string) (string, error){
		"extract_entities": func(string) (string, error) {
			return entityPayload(), nil
		},
		"extract_relationships": func(string) (string, error) {
			return relationshipPayload(), nil
		},
	}}
	p := newPipeline(storage, client)

	papers := []store.CreatePaperParams{
		{Title: "Chunked One"},
		{Title: "Chunked Two"},
		{Title: "Chunked Three"},
	}

	summary, err := p.IngestMany(ctx, papers, 2)
	if err != nil {
		t.Fatalf("IngestMany: %v", err)
	}
	if summary.SuccessCount != 3 || summary.FailureCount != 0 {
		t.Fatalf("expected success=3 failure=0, got %+v", summary)
	}
}

func TestIngestManyHonorsCancellationAtChunkBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	storage := memory.NewGraphMemStorage()
	client := &scriptedClient{scripts: map[string]func(string) (string, error){
		"extract_entities": func(string) (string, error) {
			cancel()
			return entityPayload(), nil
		},
		"extract_relationships": func(string) (string, error) {
			return relationshipPayload(), nil
		},
	}}
	p := newPipeline(storage, client)

	papers := []store.CreatePaperParams{
		{Title: "Boundary One"},
		{Title: "Boundary Two"},
	}

	summary, err := p.IngestMany(ctx, papers, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary.SuccessCount+summary.FailureCount != 1 {
		t.Fatalf("expected exactly the first chunk accounted for, got %+v", summary)
	}
}
