package history

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/snowusage/snowusage/pkg/attribution"
	"github.com/snowusage/snowusage/pkg/bigquery"
	"github.com/snowusage/snowusage/pkg/csvfile"
	"github.com/snowusage/snowusage/pkg/date"
	"github.com/snowusage/snowusage/pkg/gcs"
	"github.com/snowusage/snowusage/pkg/logger"
	"github.com/snowusage/snowusage/pkg/query"
	"github.com/snowusage/snowusage/pkg/snowflake"
	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/afero"
)

const (
	QueryHistoryTable = "query_history"
	TableHistoryTable = "table_history"

	DefaultDatabase   = "PROD"
	DefaultBlobPrefix = "mike_logs"

	timestampFormat = "2006-01-02 15:04:05.000000-07:00"
	dateFormat      = "2006-01-02"
)

var queryHistoryColumns = []string{
	"DATABASE_NAME", "SCHEMA_NAME", "USER_NAME", "ROLE_NAME", "WAREHOUSE_NAME",
	"START_TIME", "QUERY_ID", "QUERY_TYPE", "QUERY_TEXT", "QUERY_DATE",
}

var tableHitColumns = []string{"QUERY_DATE", "USER_NAME", "QUERY_ID", "QUERY_TYPE", "TABLE_NAME"}

// UsageStore is the BigQuery dataset holding the usage log.
type UsageStore interface {
	bigquery.Querier
	LoadCSV(ctx context.Context, uri, table string, opts bigquery.LoadOptions) error
}

// Loader copies the Snowflake query history of a day into BigQuery and attributes every
// query to the catalog tables it references. Files travel through the local cache
// directory and a Cloud Storage bucket.
type Loader struct {
	Snowflake snowflake.Selector
	BigQuery  UsageStore
	Storage   gcs.Uploader
	Matcher   *attribution.Matcher
	Fs        afero.Fs
	Logger    logger.Logger

	CacheDir   string
	Dataset    string
	Database   string
	BlobPrefix string
}

// QueryRecord is one distinct query of the day as stored in the query_history table.
type QueryRecord struct {
	Date      string
	User      string
	QueryID   string
	QueryType string
	Text      string
}

type TableHit struct {
	Date      string
	User      string
	QueryID   string
	QueryType string
	Table     string
}

func (h TableHit) row() []string {
	return []string{h.Date, h.User, h.QueryID, h.QueryType, h.Table}
}

func (l *Loader) database() string {
	if l.Database == "" {
		return DefaultDatabase
	}
	return l.Database
}

func (l *Loader) blobPrefix() string {
	if l.BlobPrefix == "" {
		return DefaultBlobPrefix
	}
	return l.BlobPrefix
}

func (l *Loader) tableRef(table string) string {
	return fmt.Sprintf("`%s.%s`", l.Dataset, table)
}

// QueryHistoryQuery selects the successful queries against the database during day.
func (l *Loader) QueryHistoryQuery(day time.Time) *query.Query {
	start := date.StartOfDay(day)
	end := start.Add(24*time.Hour - time.Second)

	return &query.Query{
		Query: "SELECT DISTINCT DATABASE_NAME, SCHEMA_NAME, USER_NAME, ROLE_NAME, WAREHOUSE_NAME, " +
			"START_TIME, QUERY_ID, QUERY_TYPE, QUERY_TEXT " +
			"FROM snowflake.account_usage.query_history " +
			"WHERE DATABASE_NAME = ? " +
			"AND EXECUTION_STATUS = 'SUCCESS' " +
			"AND START_TIME BETWEEN ? AND ?",
		Args: []interface{}{l.database(), start.Format("2006-01-02 15:04:05"), end.Format("2006-01-02 15:04:05")},
	}
}

// SaveQueryHistory replaces the day in the query_history table with the raw Snowflake
// query history.
func (l *Loader) SaveQueryHistory(ctx context.Context, day time.Time) error {
	l.Logger.Infof("pinging snowflake query history for %s", day.Format(dateFormat))
	rows, err := l.Snowflake.Select(ctx, l.QueryHistoryQuery(day))
	if err != nil {
		return errors.Wrapf(err, "failed to read the snowflake query history for %s", day.Format(dateFormat))
	}

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, queryHistoryRecord(row))
	}

	baseName := fmt.Sprintf("queryHistory_%s.csv", day.Format(date.DayFormat))
	uri, err := l.stage(ctx, baseName, QueryHistoryTable, queryHistoryColumns, records)
	if err != nil {
		return err
	}

	params := map[string]interface{}{"query_date": civil.DateOf(day)}
	err = l.BigQuery.RunQueryWithoutResult(ctx, &query.Query{
		Query:      fmt.Sprintf("DELETE FROM %s WHERE query_date = @query_date", l.tableRef(QueryHistoryTable)),
		Parameters: params,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to delete the previous query history for %s", day.Format(dateFormat))
	}

	opts := bigquery.DefaultLoadOptions()
	opts.AllowQuotedNewlines = true

	return l.load(ctx, uri, QueryHistoryTable, opts)
}

func queryHistoryRecord(row snowflake.Row) []string {
	record := make([]string, 0, len(queryHistoryColumns))
	for _, column := range queryHistoryColumns[:len(queryHistoryColumns)-1] {
		value := formatValue(row[column])
		if column == "QUERY_TEXT" {
			value = strings.ReplaceAll(value, "\r", " ")
		}
		record = append(record, value)
	}

	queryDate := ""
	if start, ok := row["START_TIME"].(time.Time); ok {
		queryDate = start.Format(dateFormat)
	}

	return append(record, queryDate)
}

// TableHistoryQuery reads the queries of the day that mention at least one of tables.
func (l *Loader) TableHistoryQuery(day time.Time, tables []string) *query.Query {
	return &query.Query{
		Query: "SELECT DISTINCT query_date, user_name, query_type, query_id, query_text " +
			fmt.Sprintf("FROM %s ", l.tableRef(QueryHistoryTable)) +
			"WHERE query_date = @query_date " +
			"AND EXISTS (SELECT 1 FROM UNNEST(@tables) AS t WHERE STRPOS(UPPER(query_text), t) != 0)",
		Parameters: map[string]interface{}{
			"query_date": civil.DateOf(day),
			"tables":     lo.Map(tables, func(t string, _ int) string { return strings.ToUpper(t) }),
		},
	}
}

// Attribute matches every query against tables in parallel. Hits keep query order, then
// table order within a query.
func (l *Loader) Attribute(queries []QueryRecord, tables []string) []TableHit {
	perQuery := iter.Map(queries, func(q *QueryRecord) []TableHit {
		var hits []TableHit
		for _, table := range tables {
			if !l.Matcher.IsGenuineReference(q.Text, table, "") {
				continue
			}
			hits = append(hits, TableHit{Date: q.Date, User: q.User, QueryID: q.QueryID, QueryType: q.QueryType, Table: table})
		}
		return hits
	})

	return lo.Flatten(perQuery)
}

// SaveTableHistory attributes the day's queries to tables. With override set only that
// table is attributed, and only its rows are replaced. Without upload the hits are only
// returned.
func (l *Loader) SaveTableHistory(ctx context.Context, day time.Time, override string, upload bool) ([]TableHit, error) {
	l.Logger.Infof("pinging bigquery query history for %s", day.Format(dateFormat))

	tables := l.Matcher.Tables()
	if override != "" {
		tables = []string{override}
		l.Logger.Infof("setting table names to %v", tables)
	}

	rows, err := l.BigQuery.Select(ctx, l.TableHistoryQuery(day, l.Matcher.Tables()))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read the query history for %s", day.Format(dateFormat))
	}

	queries := lo.Uniq(lo.Map(rows, func(row bigquery.Row, _ int) QueryRecord {
		return QueryRecord{
			Date:      formatValue(row["query_date"]),
			User:      formatValue(row["user_name"]),
			QueryID:   formatValue(row["query_id"]),
			QueryType: formatValue(row["query_type"]),
			Text:      formatValue(row["query_text"]),
		}
	}))

	hits := l.Attribute(queries, tables)
	l.Logger.Infof("collected %d table references from %d queries", len(hits), len(queries))
	if !upload {
		return hits, nil
	}

	baseName := fmt.Sprintf("tableHits_%s.csv", day.Format(date.DayFormat))
	if override != "" {
		baseName = fmt.Sprintf("tableHits_%s_%s.csv", override, day.Format(date.DayFormat))
	}

	records := lo.Map(hits, func(h TableHit, _ int) []string { return h.row() })
	uri, err := l.stage(ctx, baseName, TableHistoryTable, tableHitColumns, records)
	if err != nil {
		return nil, err
	}

	del := &query.Query{
		Query:      fmt.Sprintf("DELETE FROM %s WHERE query_date = @query_date", l.tableRef(TableHistoryTable)),
		Parameters: map[string]interface{}{"query_date": civil.DateOf(day)},
	}
	if override != "" {
		del.Query += " AND table_name = @table_name"
		del.Parameters["table_name"] = override
	}
	if err := l.BigQuery.RunQueryWithoutResult(ctx, del); err != nil {
		return nil, errors.Wrapf(err, "failed to delete the previous table history for %s", day.Format(dateFormat))
	}

	if err := l.load(ctx, uri, TableHistoryTable, bigquery.DefaultLoadOptions()); err != nil {
		return nil, err
	}

	return hits, nil
}

// Run loads every day between start and end, both inclusive.
func (l *Loader) Run(ctx context.Context, start, end time.Time, override string) error {
	for _, day := range date.Days(start, end) {
		if override == "" {
			if err := l.SaveQueryHistory(ctx, day); err != nil {
				return err
			}
		}
		if _, err := l.SaveTableHistory(ctx, day, override, true); err != nil {
			return err
		}
	}

	return nil
}

// stage writes the records to the cache directory and uploads them under the blob
// prefix for table.
func (l *Loader) stage(ctx context.Context, baseName, table string, header []string, records [][]string) (string, error) {
	localPath := filepath.Join(l.CacheDir, baseName)
	if err := csvfile.Write(l.Fs, localPath, header, records); err != nil {
		return "", errors.Wrapf(err, "failed to save %s", baseName)
	}
	l.Logger.Infof("saved %s", localPath)

	uri, err := l.Storage.Upload(ctx, l.Fs, localPath, path.Join(l.blobPrefix(), table, baseName))
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload %s", baseName)
	}
	l.Logger.Infof("uploaded file to %s", uri)

	return uri, nil
}

func (l *Loader) load(ctx context.Context, uri, table string, opts bigquery.LoadOptions) error {
	l.Logger.Debugf("loading %s into %s", uri, table)
	if err := l.BigQuery.LoadCSV(ctx, uri, table, opts); err != nil {
		return errors.Wrapf(err, "failed to load %s into %s", uri, table)
	}
	l.Logger.Infof("loaded %s into %s", uri, table)

	return nil
}

// ResolveDates turns the command line bounds into days. The end defaults to today and
// the start to the end.
func ResolveDates(start, end string, now time.Time) (time.Time, time.Time, error) {
	endDay := date.StartOfDay(now)
	if end != "" {
		var err error
		if endDay, err = date.ParseDay(end, now); err != nil {
			return time.Time{}, time.Time{}, errors.Wrapf(err, "invalid end date '%s'", end)
		}
	}

	startDay := endDay
	if start != "" {
		var err error
		if startDay, err = date.ParseDay(start, now); err != nil {
			return time.Time{}, time.Time{}, errors.Wrapf(err, "invalid start date '%s'", start)
		}
	}

	if startDay.After(endDay) {
		return time.Time{}, time.Time{}, errors.Errorf("start date %s is after end date %s", startDay.Format(dateFormat), endDay.Format(dateFormat))
	}

	return startDay, endDay, nil
}

func formatValue(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case time.Time:
		return value.Format(timestampFormat)
	case fmt.Stringer:
		return value.String()
	}
	return fmt.Sprint(v)
}
