// Package resolver maps free-text relationship endpoint names to node ids.
// Resolution is tiered: entities from the current paper win over the paper's
// own node, which wins over a global fuzzy lookup. The resolver never
// guesses; when no tier succeeds it reports the endpoint as unresolved and
// the caller drops that relationship.
package resolver

import (
	"context"

	"github.com/scholargraph/backend/pkg/canonical"
	"github.com/scholargraph/backend/pkg/common"
	"github.com/scholargraph/backend/pkg/logger"
	"github.com/scholargraph/backend/pkg/store"
)

// EntityResolver resolves endpoint names within the scope of one paper's
// ingestion. localEntities maps canonical names of entities extracted from
// the current paper to their node ids.
type EntityResolver struct {
	storage       store.GraphStorage
	paper         common.Paper
	localEntities map[string]string
}

// NewEntityResolver builds a resolver scoped to one paper. localEntities is
// the canonical-name-to-id map returned by the batch node upsert.
func NewEntityResolver(storage store.GraphStorage, paper common.Paper, localEntities map[string]string) *EntityResolver {
	if localEntities == nil {
		localEntities = map[string]string{}
	}
	return &EntityResolver{
		storage:       storage,
		paper:         paper,
		localEntities: localEntities,
	}
}

// Resolve maps an endpoint name to a node id. Tiers are checked in order:
//
//  1. exact canonical match against the current paper's extracted entities
//  2. canonical match against the paper's own node
//  3. global fuzzy search, accepting the top candidate above the store's
//     relevance threshold
//
// Given fixed store state and input the result is deterministic. Failure to
// resolve returns common.ErrUnresolved, never a fabricated id.
func (r *EntityResolver) Resolve(ctx context.Context, name string) (string, error) {
	canonicalName := canonical.Normalize(name)
	if canonicalName == "" {
		return "", common.ErrUnresolved
	}

	if id, ok := r.localEntities[canonicalName]; ok {
		return id, nil
	}

	if canonicalName == r.paper.CanonicalName {
		return r.paper.ID, nil
	}

	results, err := r.storage.FuzzySearchNodes(ctx, name, nil, 1)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		logger.Debug("endpoint unresolved", "name", name, "paper", r.paper.ID)
		return "", common.ErrUnresolved
	}
	return results[0].Node.ID, nil
}
