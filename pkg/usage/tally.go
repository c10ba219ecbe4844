package usage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// ClassificationError lists observed query types that no category claims. Counts are
// never dropped silently, so this stops the aggregation.
type ClassificationError struct {
	Unclassified []string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("the following query types were not classified, please update the taxonomy: %s",
		strings.Join(e.Unclassified, ", "))
}

func newClassificationError(unknown []string) *ClassificationError {
	unknown = lo.Uniq(unknown)
	sort.Strings(unknown)
	return &ClassificationError{Unclassified: unknown}
}

// TallyByCategory sums raw per-subtype counts into category totals. Every category of the
// taxonomy is present in the result.
func TallyByCategory(raw map[string]int64, tax Taxonomy) (map[string]int64, error) {
	if err := tax.Validate(); err != nil {
		return nil, err
	}

	var unknown []string
	for subtype := range raw {
		if _, ok := tax.CategoryOf(subtype); !ok {
			unknown = append(unknown, subtype)
		}
	}
	if len(unknown) > 0 {
		return nil, newClassificationError(unknown)
	}

	totals := make(map[string]int64, len(tax))
	for _, c := range tax {
		var sum int64
		for _, s := range c.Subtypes {
			sum += raw[s]
		}
		totals[c.Name] = sum
	}

	return totals, nil
}

// HitRow is one (table, query type) hit count as stored in the usage log.
type HitRow struct {
	Table     string
	QueryType string
	Hits      int64
}

type TableHits struct {
	Table      string
	Categories map[string]int64
}

func (h TableHits) Total() int64 {
	return lo.Sum(lo.Values(h.Categories))
}

// HitBreakdown pivots hit rows into category tallies per table, sorted by table name. An
// unclassified query type anywhere in rows fails the whole breakdown.
func HitBreakdown(rows []HitRow, tax Taxonomy) ([]TableHits, error) {
	if err := tax.Validate(); err != nil {
		return nil, err
	}

	var unknown []string
	perTable := make(map[string]map[string]int64)
	for _, r := range rows {
		if _, ok := tax.CategoryOf(r.QueryType); !ok {
			unknown = append(unknown, r.QueryType)
			continue
		}
		if perTable[r.Table] == nil {
			perTable[r.Table] = make(map[string]int64)
		}
		perTable[r.Table][r.QueryType] += r.Hits
	}
	if len(unknown) > 0 {
		return nil, newClassificationError(unknown)
	}

	tables := lo.Keys(perTable)
	sort.Strings(tables)

	result := make([]TableHits, 0, len(tables))
	for _, table := range tables {
		totals, err := TallyByCategory(perTable[table], tax)
		if err != nil {
			return nil, err
		}
		result = append(result, TableHits{Table: table, Categories: totals})
	}

	return result, nil
}

// SortByCategory orders hits by the given category, highest first; ties keep table order.
func SortByCategory(hits []TableHits, category string) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Categories[category] > hits[j].Categories[category]
	})
}
