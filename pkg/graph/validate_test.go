package graph

import (
	"testing"

	"github.com/scholargraph/backend/pkg/common"
)

func TestDedupeEntities(t *testing.T) {
	candidates := []entityCandidate{
		{Name: "Technique X", Kind: common.NodeKindTechnique, Confidence: 0.6, Description: "first mention"},
		{Name: "technique  x", Kind: common.NodeKindTechnique, Confidence: 0.6, Description: "second mention"},
		{Name: "Dataset Y", Kind: common.NodeKindDataset, Confidence: 0.7},
		{Name: "Technique X", Kind: common.NodeKindTechnique, Confidence: 0.9},
	}

	got := dedupeEntities(candidates)
	if len(got) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(got))
	}
	if got[0].Confidence != 0.9 {
		t.Fatalf("expected max confidence 0.9, got %g", got[0].Confidence)
	}
	if got[0].Description != "first mention" {
		t.Fatalf("empty description on the winner must keep the earlier one, got %q", got[0].Description)
	}
	if got[1].Name != "Dataset Y" {
		t.Fatalf("expected first-seen order preserved, got %q", got[1].Name)
	}
}

func TestDedupeEntitiesTieKeepsEarlier(t *testing.T) {
	candidates := []entityCandidate{
		{Name: "Technique X", Kind: common.NodeKindTechnique, Confidence: 0.6, Description: "earlier"},
		{Name: "Technique X", Kind: common.NodeKindTechnique, Confidence: 0.6, Description: "later"},
	}

	got := dedupeEntities(candidates)
	if len(got) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(got))
	}
	if got[0].Description != "earlier" {
		t.Fatalf("ties must keep the earlier candidate, got %q", got[0].Description)
	}
}

func TestDedupeEntitiesClampsConfidence(t *testing.T) {
	candidates := []entityCandidate{
		{Name: "A", Kind: common.NodeKindConcept, Confidence: 1.7},
		{Name: "B", Kind: common.NodeKindConcept, Confidence: -0.2},
		{Name: "   ", Kind: common.NodeKindConcept, Confidence: 0.5},
	}

	got := dedupeEntities(candidates)
	if len(got) != 2 {
		t.Fatalf("expected empty-named candidate dropped, got %d entities", len(got))
	}
	if got[0].Confidence != 1 || got[1].Confidence != 0 {
		t.Fatalf("expected confidences clamped to [0,1], got %g and %g", got[0].Confidence, got[1].Confidence)
	}
}

func TestFilterRelationships(t *testing.T) {
	paper := common.Paper{}
	paper.CanonicalName = "survey paper"
	entities := []entityCandidate{
		{Name: "Method A", Kind: common.NodeKindMethod},
	}
	candidates := []relationshipCandidate{
		{Source: "Method A", Target: "Something Global", Kind: common.EdgeKindExtends, Confidence: 0.8},
		{Source: "Survey Paper", Target: "Method A", Kind: common.EdgeKindIntroduces, Confidence: 1.4},
		{Source: "Foreign X", Target: "Foreign Y", Kind: common.EdgeKindUses, Confidence: 0.9},
		{Source: "", Target: "Method A", Kind: common.EdgeKindUses, Confidence: 0.9},
	}

	got := filterRelationships(candidates, entities, paper)
	if len(got) != 2 {
		t.Fatalf("expected 2 relationships, got %d", len(got))
	}
	if got[0].Target != "Something Global" {
		t.Fatalf("one local endpoint must be enough, got %+v", got[0])
	}
	if got[1].Confidence != 1 {
		t.Fatalf("expected confidence clamped to 1, got %g", got[1].Confidence)
	}
}
