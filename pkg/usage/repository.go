package usage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"
	"github.com/snowusage/snowusage/pkg/bigquery"
	"github.com/snowusage/snowusage/pkg/query"
)

const DefaultETLUser = "SNOWFLAKE_PROD_ETL"

// Repository reads the table usage log that the history loader maintains in BigQuery.
type Repository struct {
	Querier  bigquery.Selector
	Dataset  string
	Taxonomy Taxonomy

	// ExcludeETL drops select-like queries issued by ETLUser, which otherwise drown out
	// human usage in the hit counts.
	ExcludeETL bool
	ETLUser    string
}

type QueryTypeCount struct {
	Date      time.Time
	QueryType string
	Hits      int64
}

type UsageRecord struct {
	QueryType string
	Date      time.Time
	User      string
	Hits      int64
}

type QueryText struct {
	Date      time.Time
	User      string
	QueryID   string
	QueryType string
	Table     string
	Text      string
}

func (r *Repository) etlFilter(alias string, params map[string]interface{}) string {
	if !r.ExcludeETL {
		return ""
	}

	selectTypes := []string{}
	if c, ok := r.Taxonomy.Category("select"); ok {
		selectTypes = c.Subtypes
	}
	user := r.ETLUser
	if user == "" {
		user = DefaultETLUser
	}
	params["select_types"] = selectTypes
	params["etl_user"] = user

	return fmt.Sprintf("AND (%squery_type NOT IN UNNEST(@select_types) OR %suser_name != @etl_user) ", alias, alias)
}

func dateRange(start, end time.Time) map[string]interface{} {
	return map[string]interface{}{
		"start_date": civil.DateOf(start),
		"end_date":   civil.DateOf(end),
	}
}

// HitBreakdownQuery counts distinct queries per table and query type within the period.
func (r *Repository) HitBreakdownQuery(start, end time.Time) *query.Query {
	params := dateRange(start, end)
	sql := "SELECT th.table_name, th.query_type, SUM(th.hits) AS hits " +
		"FROM (SELECT DISTINCT table_name, query_type, query_id, 1 AS hits " +
		fmt.Sprintf("FROM `%s.table_history` ", r.Dataset) +
		"WHERE query_date BETWEEN @start_date AND @end_date " +
		r.etlFilter("", params) +
		") th " +
		"GROUP BY th.table_name, th.query_type"

	return &query.Query{Query: sql, Parameters: params}
}

func (r *Repository) HitBreakdown(ctx context.Context, start, end time.Time) ([]TableHits, error) {
	rows, err := r.Querier.Select(ctx, r.HitBreakdownQuery(start, end))
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch table hits")
	}

	hits := make([]HitRow, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, HitRow{
			Table:     asString(row["table_name"]),
			QueryType: asString(row["query_type"]),
			Hits:      asInt64(row["hits"]),
		})
	}

	return HitBreakdown(hits, r.Taxonomy)
}

func (r *Repository) QueryTypeHistoryQuery(table string, start, end time.Time) *query.Query {
	params := dateRange(start, end)
	params["table_name"] = table
	sql := "SELECT query_date, query_type, COUNT(query_id) AS hits " +
		fmt.Sprintf("FROM `%s.table_history` ", r.Dataset) +
		"WHERE query_date BETWEEN @start_date AND @end_date " +
		"AND table_name = @table_name " +
		r.etlFilter("", params) +
		"GROUP BY query_date, query_type " +
		"ORDER BY query_date, query_type"

	return &query.Query{Query: sql, Parameters: params}
}

// QueryTypeHistory returns daily hit counts per query type for one table.
func (r *Repository) QueryTypeHistory(ctx context.Context, table string, start, end time.Time) ([]QueryTypeCount, error) {
	rows, err := r.Querier.Select(ctx, r.QueryTypeHistoryQuery(table, start, end))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch query type history for %s", table)
	}

	result := make([]QueryTypeCount, 0, len(rows))
	for _, row := range rows {
		result = append(result, QueryTypeCount{
			Date:      asDate(row["query_date"]),
			QueryType: asString(row["query_type"]),
			Hits:      asInt64(row["hits"]),
		})
	}

	return result, nil
}

// UsageHistoryQuery reads the per-category usage view, e.g. v_select_usage. The category
// must be part of the taxonomy since its name is interpolated into the view name.
func (r *Repository) UsageHistoryQuery(table, category string, start, end time.Time) (*query.Query, error) {
	if _, ok := r.Taxonomy.Category(category); !ok {
		return nil, errors.Errorf("unknown query type group '%s', expected one of %v", category, r.Taxonomy.Names())
	}

	params := dateRange(start, end)
	params["table_name"] = table
	sql := "SELECT query_type, query_date, user_name, hits " +
		fmt.Sprintf("FROM `%s.v_%s_usage` ", r.Dataset, category) +
		"WHERE query_date BETWEEN @start_date AND @end_date " +
		"AND table_name = @table_name " +
		"ORDER BY query_date"

	return &query.Query{Query: sql, Parameters: params}, nil
}

func (r *Repository) UsageHistory(ctx context.Context, table, category string, start, end time.Time) ([]UsageRecord, error) {
	q, err := r.UsageHistoryQuery(table, category, start, end)
	if err != nil {
		return nil, err
	}

	rows, err := r.Querier.Select(ctx, q)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s usage for %s", category, table)
	}

	result := make([]UsageRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, UsageRecord{
			QueryType: asString(row["query_type"]),
			Date:      asDate(row["query_date"]),
			User:      asString(row["user_name"]),
			Hits:      asInt64(row["hits"]),
		})
	}

	return result, nil
}

func (r *Repository) QueryTextHistoryQuery(table string) *query.Query {
	params := map[string]interface{}{"table_name": table}
	sql := "SELECT t.query_date, t.user_name, t.query_id, t.query_type, t.table_name, q.query_text " +
		fmt.Sprintf("FROM `%s.table_history` AS t ", r.Dataset) +
		fmt.Sprintf("JOIN `%s.query_history` AS q ON q.query_id = t.query_id ", r.Dataset) +
		"WHERE t.table_name = @table_name " +
		r.etlFilter("t.", params) +
		"ORDER BY t.query_date"

	return &query.Query{Query: sql, Parameters: params}
}

// QueryTextHistory returns every attributed query for a table with its full text.
func (r *Repository) QueryTextHistory(ctx context.Context, table string) ([]QueryText, error) {
	rows, err := r.Querier.Select(ctx, r.QueryTextHistoryQuery(table))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch query text history for %s", table)
	}

	result := make([]QueryText, 0, len(rows))
	for _, row := range rows {
		result = append(result, QueryText{
			Date:      asDate(row["query_date"]),
			User:      asString(row["user_name"]),
			QueryID:   asString(row["query_id"]),
			QueryType: asString(row["query_type"]),
			Table:     asString(row["table_name"]),
			Text:      asString(row["query_text"]),
		})
	}

	return result, nil
}

func asString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func asDate(v interface{}) time.Time {
	switch d := v.(type) {
	case civil.Date:
		return d.In(time.UTC)
	case time.Time:
		return d
	}
	return time.Time{}
}
