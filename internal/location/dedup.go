// Package location reduces profile locations to the canonical set that the
// discovery job iterates.
package location

import (
	"strings"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
)

// Deduplicate collapses locations whose LocationKey matches case-insensitively.
// Entries with both city and state blank are dropped. The first-seen casing of
// each key is kept (trimmed) and output order follows first appearance.
func Deduplicate(locs []model.Location) []model.Location {
	seen := make(map[string]struct{}, len(locs))
	out := make([]model.Location, 0, len(locs))
	for _, l := range locs {
		key := l.Key()
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, model.Location{
			City:  strings.TrimSpace(l.City),
			State: strings.TrimSpace(l.State),
		})
	}
	return out
}
