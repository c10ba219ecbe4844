package attribution

import (
	"strings"

	"github.com/samber/lo"
)

// IsGenuineReference reports whether text references table, after discarding matches that are
// explained by a longer table name containing it. excludeLabel, when not empty, is never
// considered a competing name; view graphs pass the view's own name here.
//
// A table name directly followed by punctuation or end of string is not treated any
// differently from one followed by a space. Callers rely on this exact behavior.
func IsGenuineReference(text, table string, idx CollisionIndex, excludeLabel string) bool {
	lowerText := strings.ToLower(text)
	lowerTable := strings.ToLower(table)

	if !mentions(lowerText, lowerTable) {
		return false
	}

	return !hasCompetingName(lowerText, idx.Collisions(table), strings.ToLower(excludeLabel))
}

func mentions(lowerText, lowerTable string) bool {
	return strings.Contains(lowerText, lowerTable) || strings.Contains(lowerText, lowerTable+" ")
}

func hasCompetingName(lowerText string, collisions []string, lowerExclude string) bool {
	for _, other := range collisions {
		lowerOther := strings.ToLower(other)
		if lowerExclude != "" && lowerOther == lowerExclude {
			continue
		}
		if strings.Contains(lowerText, lowerOther) {
			return true
		}
	}

	return false
}

// Matcher holds a catalog snapshot together with its collision index.
type Matcher struct {
	tables []string
	index  CollisionIndex
}

func NewMatcher(catalog []string) *Matcher {
	return &Matcher{
		tables: lo.Uniq(catalog),
		index:  BuildCollisionIndex(catalog),
	}
}

func (m *Matcher) Tables() []string {
	return m.tables
}

func (m *Matcher) Index() CollisionIndex {
	return m.index
}

func (m *Matcher) IsGenuineReference(text, table, excludeLabel string) bool {
	return IsGenuineReference(text, table, m.index, excludeLabel)
}

// Mentions is the presence check alone, without disambiguation.
func (m *Matcher) Mentions(text, table string) bool {
	return mentions(strings.ToLower(text), strings.ToLower(table))
}

// References returns every catalog table genuinely referenced by text, in catalog order.
func (m *Matcher) References(text, excludeLabel string) []string {
	var found []string
	for _, t := range m.tables {
		if m.IsGenuineReference(text, t, excludeLabel) {
			found = append(found, t)
		}
	}

	return found
}
