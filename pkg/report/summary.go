package report

import (
	"github.com/samber/lo"
	"github.com/snowusage/snowusage/pkg/usage"
	"github.com/snowusage/snowusage/pkg/yamldeps"
)

// TableSummary is one line of the catalog overview.
type TableSummary struct {
	Table      string
	Categories map[string]int64
	Degree     int
	Unloaded   bool
	Jobs       []string
}

func (s TableSummary) Total() int64 {
	return lo.Sum(lo.Values(s.Categories))
}

// Summarize joins hit tallies, dependency degrees, unloaded tables and job configs for
// every catalog table, in catalog order. Tables without hits get zero tallies.
func Summarize(tables []string, hits []usage.TableHits, degrees map[string]int, unloaded []string, deps []yamldeps.Dependency, tax usage.Taxonomy) []TableSummary {
	hitsByTable := lo.KeyBy(hits, func(h usage.TableHits) string { return h.Table })
	unloadedSet := lo.SliceToMap(unloaded, func(t string) (string, struct{}) { return t, struct{}{} })
	jobs := make(map[string][]string)
	for _, d := range deps {
		jobs[d.Table] = append(jobs[d.Table], d.File)
	}

	result := make([]TableSummary, 0, len(tables))
	for _, table := range tables {
		categories := make(map[string]int64, len(tax))
		for _, name := range tax.Names() {
			categories[name] = 0
		}
		if h, ok := hitsByTable[table]; ok {
			for name, count := range h.Categories {
				categories[name] = count
			}
		}

		_, isUnloaded := unloadedSet[table]
		result = append(result, TableSummary{
			Table:      table,
			Categories: categories,
			Degree:     degrees[table],
			Unloaded:   isUnloaded,
			Jobs:       lo.Uniq(jobs[table]),
		})
	}

	return result
}

// Unused lists the tables with no hits, no dependents and no job writing to them. These
// are the candidates for DropCommands.
func Unused(summaries []TableSummary) []string {
	var names []string
	for _, s := range summaries {
		if s.Total() == 0 && s.Degree == 0 && len(s.Jobs) == 0 && !s.Unloaded {
			names = append(names, s.Table)
		}
	}
	return names
}
