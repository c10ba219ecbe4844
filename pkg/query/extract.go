package query

import (
	"sort"
	"strings"
)

// Query is a single statement plus its bind values. Args are positional (`?`, used by
// Snowflake), Parameters are named (`@name`, used by BigQuery).
type Query struct {
	Query      string
	Args       []interface{}
	Parameters map[string]interface{}
}

func (q Query) String() string {
	return q.Query
}

// ParameterNames returns the named parameters in a stable order.
func (q Query) ParameterNames() []string {
	names := make([]string, 0, len(q.Parameters))
	for name := range q.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// SourceAfterFrom returns the first token following the first "FROM " in sql, upper-cased.
// The keyword match is case sensitive, rollup configs write it in capitals.
func SourceAfterFrom(sql string) (string, bool) {
	_, rest, found := strings.Cut(sql, "FROM ")
	if !found {
		return "", false
	}
	if next := strings.Index(rest, "FROM "); next >= 0 {
		rest = rest[:next]
	}

	fields := strings.Split(strings.TrimSpace(rest), " ")
	if len(fields) == 0 || fields[0] == "" {
		return "", false
	}

	return strings.ToUpper(fields[0]), true
}
