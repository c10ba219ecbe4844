package snowflake

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/snowusage/snowusage/pkg/depgraph"
	"github.com/snowusage/snowusage/pkg/query"
)

// ShowViews lists the views of a fully qualified schema, e.g. PROD.MSTR_DATAMART.
func ShowViews(ctx context.Context, db Selector, schema string) ([]depgraph.ViewDefinition, error) {
	rows, err := db.Select(ctx, &query.Query{Query: "show views in " + schema})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list views in %s", schema)
	}

	views := make([]depgraph.ViewDefinition, 0, len(rows))
	for _, row := range rows {
		views = append(views, depgraph.ViewDefinition{
			Name: asString(row["name"]),
			Text: asString(row["text"]),
		})
	}

	return views, nil
}

// ListTables returns the distinct table names of a schema, skipping scratch tables.
func ListTables(ctx context.Context, db Selector, database, schema string) ([]string, error) {
	q := &query.Query{
		Query: fmt.Sprintf("SELECT DISTINCT table_name FROM %s.information_schema.columns "+
			"WHERE table_schema = ? AND table_name NOT IN ('TEST', 'TS') ORDER BY table_name", database),
		Args: []interface{}{schema},
	}

	rows, err := db.Select(ctx, q)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list tables in %s.%s", database, schema)
	}

	tables := make([]string, 0, len(rows))
	for _, row := range rows {
		tables = append(tables, asString(row["TABLE_NAME"]))
	}

	return tables, nil
}

// RefreshSchema pulls the current views and tables and writes them into the cache. The
// table list also carries the business intelligence view names, since those are queried
// like tables.
func RefreshSchema(ctx context.Context, db Selector, cache *SchemaCache, database, schema, biSchema string) ([]string, []depgraph.ViewDefinition, error) {
	biViews, err := ShowViews(ctx, db, database+"."+biSchema)
	if err != nil {
		return nil, nil, err
	}

	views, err := ShowViews(ctx, db, database+"."+schema)
	if err != nil {
		return nil, nil, err
	}
	views = append(views, biViews...)

	tables, err := ListTables(ctx, db, database, schema)
	if err != nil {
		return nil, nil, err
	}
	for _, v := range biViews {
		tables = append(tables, v.Name)
	}
	sort.Strings(tables)

	if err := cache.Write(tables, views); err != nil {
		return nil, nil, err
	}

	return tables, views, nil
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}
