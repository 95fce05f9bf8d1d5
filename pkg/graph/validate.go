package graph

import (
	"github.com/scholargraph/backend/pkg/canonical"
	"github.com/scholargraph/backend/pkg/common"
)

// dedupeEntities groups candidates by canonical name and keeps one entity
// per group with the maximum confidence. Ties keep the earlier candidate, so
// the result order follows first appearance. Candidates whose name
// normalizes to empty are dropped. Confidences are clamped to [0,1].
func dedupeEntities(candidates []entityCandidate) []entityCandidate {
	index := make(map[string]int, len(candidates))
	out := make([]entityCandidate, 0, len(candidates))

	for _, c := range candidates {
		canonicalName := canonical.Normalize(c.Name)
		if canonicalName == "" {
			continue
		}
		c.Confidence = common.Clamp01(c.Confidence)

		i, seen := index[canonicalName]
		if !seen {
			index[canonicalName] = len(out)
			out = append(out, c)
			continue
		}
		if c.Confidence > out[i].Confidence {
			kept := out[i]
			out[i] = c
			if out[i].Description == "" {
				out[i].Description = kept.Description
			}
			out[i].Metadata = kept.Metadata.Merge(c.Metadata)
		} else {
			out[i].Metadata = out[i].Metadata.Merge(c.Metadata)
		}
	}
	return out
}

// filterRelationships keeps a relationship only when at least one endpoint
// name canonicalizes to an entity extracted from this paper, or to the paper
// itself. The other endpoint may still resolve globally during persistence;
// failing that the relationship is skipped there. Confidences are clamped
// to [0,1].
func filterRelationships(
	candidates []relationshipCandidate,
	entities []entityCandidate,
	paper common.Paper,
) []relationshipCandidate {
	local := make(map[string]bool, len(entities)+1)
	for _, e := range entities {
		local[canonical.Normalize(e.Name)] = true
	}
	local[paper.CanonicalName] = true

	out := make([]relationshipCandidate, 0, len(candidates))
	for _, r := range candidates {
		source := canonical.Normalize(r.Source)
		target := canonical.Normalize(r.Target)
		if source == "" || target == "" {
			continue
		}
		if !local[source] && !local[target] {
			continue
		}
		r.Confidence = common.Clamp01(r.Confidence)
		out = append(out, r)
	}
	return out
}
