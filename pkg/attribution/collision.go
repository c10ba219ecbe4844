package attribution

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// CollisionIndex maps a table name to the other, longer table names that contain it.
// The relation is directional: "DIM_SITES" lists "DIM_SITES_TO_OWNERS", never the reverse.
type CollisionIndex map[string][]string

// BuildCollisionIndex compares every ordered pair of distinct names in the catalog.
// Names are compared exactly as given, callers are expected to normalize case first.
func BuildCollisionIndex(catalog []string) CollisionIndex {
	names := lo.Uniq(catalog)
	idx := make(CollisionIndex)
	for _, short := range names {
		for _, long := range names {
			if short == long || !strings.Contains(long, short) {
				continue
			}
			idx[short] = append(idx[short], long)
		}
	}

	for name := range idx {
		sort.Strings(idx[name])
	}

	return idx
}

// Collisions returns the names that contain the given name, or nil.
func (c CollisionIndex) Collisions(name string) []string {
	return c[name]
}
