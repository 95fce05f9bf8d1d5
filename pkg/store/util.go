package store

import (
	"strings"

	"github.com/scholargraph/backend/pkg/common"
)

// ValidateUpsertNode rejects malformed node upsert input before it reaches
// a backend. Empty names and unknown kinds are validation errors.
func ValidateUpsertNode(params UpsertNodeParams) error {
	if strings.TrimSpace(params.Name) == "" {
		return &common.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !common.ValidNodeKind(params.Kind) {
		return &common.ValidationError{Field: "kind", Reason: "unknown node kind " + string(params.Kind)}
	}
	return nil
}

// ValidateUpsertEdge rejects malformed edge upsert input.
func ValidateUpsertEdge(params UpsertEdgeParams) error {
	if !common.ValidEdgeKind(params.Kind) {
		return &common.ValidationError{Field: "kind", Reason: "unknown edge kind " + string(params.Kind)}
	}
	if params.SourceID == "" {
		return &common.ValidationError{Field: "source_id", Reason: "must not be empty"}
	}
	if params.TargetID == "" {
		return &common.ValidationError{Field: "target_id", Reason: "must not be empty"}
	}
	return nil
}

// MergeText implements the prefer-new-if-absent rule for descriptive text:
// the incoming value replaces the existing one only when the incoming value
// is non-empty and the existing one is empty.
func MergeText(existing, incoming string) string {
	if existing == "" && incoming != "" {
		return incoming
	}
	return existing
}
