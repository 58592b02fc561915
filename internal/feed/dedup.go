package feed

import (
	"strings"

	"github.com/Sselimkoc/feedTune-sub004/internal/domain"
)

// Partition splits freshly normalized candidates into new and duplicate sets
// against the links already stored for a feed. The dedup key is the exact
// link string; no normalization of trailing slashes or query strings is
// performed, which is a known limitation rather than an oversight.
//
// Re-running the gate with the same candidates against the same existing set
// yields zero new items: duplicates inside one candidate batch are also
// collapsed, so a payload fetched twice cannot produce two inserts. Items
// with an empty link are dropped entirely; the link is the identity.
func Partition(
	existing map[string]struct{},
	candidates []domain.NormalizedItem,
) (fresh []domain.NormalizedItem, duplicate []domain.NormalizedItem) {
	seen := make(map[string]struct{}, len(candidates))

	for _, candidate := range candidates {
		link := strings.TrimSpace(candidate.Link)
		if link == "" {
			continue
		}

		if _, ok := existing[link]; ok {
			duplicate = append(duplicate, candidate)
			continue
		}

		if _, ok := seen[link]; ok {
			duplicate = append(duplicate, candidate)
			continue
		}

		seen[link] = struct{}{}
		fresh = append(fresh, candidate)
	}

	return fresh, duplicate
}
