package snowflake

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/snowusage/snowusage/pkg/depgraph"
	"github.com/snowusage/snowusage/pkg/query"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return &DB{conn: sqlx.NewDb(mockDB, "sqlmock")}, mock
}

func TestDB_Select(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		mockConnection func(mock sqlmock.Sqlmock)
		query          query.Query
		want           []Row
		wantErr        bool
		errorMessage   string
	}{
		{
			name: "rows are keyed by column",
			mockConnection: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT QUERY_ID, QUERY_TYPE FROM history WHERE day = ?`).
					WithArgs("2024-01-01").
					WillReturnRows(sqlmock.NewRows([]string{"QUERY_ID", "QUERY_TYPE"}).
						AddRow("q1", "SELECT").
						AddRow("q2", "INSERT"),
					)
			},
			query: query.Query{
				Query: "SELECT QUERY_ID, QUERY_TYPE FROM history WHERE day = ?",
				Args:  []interface{}{"2024-01-01"},
			},
			want: []Row{
				{"QUERY_ID": "q1", "QUERY_TYPE": "SELECT"},
				{"QUERY_ID": "q2", "QUERY_TYPE": "INSERT"},
			},
		},
		{
			name: "newlines in errors are flattened",
			mockConnection: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`some broken query`).
					WillReturnError(fmt.Errorf("%s\nsome actual error", invalidQueryError))
			},
			query:        query.Query{Query: "some broken query"},
			wantErr:      true,
			errorMessage: invalidQueryError + "  -  some actual error",
		},
		{
			name: "generic errors are just propagated",
			mockConnection: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`some broken query`).
					WillReturnError(errors.New("something went wrong"))
			},
			query:        query.Query{Query: "some broken query"},
			wantErr:      true,
			errorMessage: "something went wrong",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, mock := newMockDB(t)
			tt.mockConnection(mock)

			got, err := db.Select(context.Background(), &tt.query)
			if tt.wantErr {
				require.Error(t, err)
				require.Equal(t, tt.errorMessage, err.Error())
			} else {
				require.NoError(t, err)
			}

			require.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDB_Ping(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT 1`).WillReturnError(errors.New("connection error"))

	err := db.Ping(context.Background())
	require.EqualError(t, err, "failed to run test query on Snowflake connection: connection error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshSchema(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectQuery("show views in PROD.BUSINESSINTELLIGENCE").
		WillReturnRows(sqlmock.NewRows([]string{"created_on", "name", "text"}).
			AddRow("2024-01-01", "BI_REVENUE", "create view BI_REVENUE as select * from revenue_fact"))
	mock.ExpectQuery("show views in PROD.MSTR_DATAMART").
		WillReturnRows(sqlmock.NewRows([]string{"created_on", "name", "text"}).
			AddRow("2024-01-01", "V_ORDERS", "create view V_ORDERS as select * from orders"))
	mock.ExpectQuery("SELECT DISTINCT table_name FROM PROD.information_schema.columns "+
		"WHERE table_schema = ? AND table_name NOT IN ('TEST', 'TS') ORDER BY table_name").
		WithArgs("MSTR_DATAMART").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("ORDERS").AddRow("REVENUE_FACT"))

	cache := &SchemaCache{Fs: afero.NewMemMapFs(), Dir: "/cache"}
	tables, views, err := RefreshSchema(context.Background(), db, cache, "PROD", "MSTR_DATAMART", "BUSINESSINTELLIGENCE")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{"BI_REVENUE", "ORDERS", "REVENUE_FACT"}, tables)
	assert.Equal(t, []depgraph.ViewDefinition{
		{Name: "V_ORDERS", Text: "create view V_ORDERS as select * from orders"},
		{Name: "BI_REVENUE", Text: "create view BI_REVENUE as select * from revenue_fact"},
	}, views)

	cachedTables, err := cache.Tables()
	require.NoError(t, err)
	assert.Equal(t, tables, cachedTables)

	cachedViews, err := cache.Views()
	require.NoError(t, err)
	assert.Equal(t, views, cachedViews)
}

func TestSchemaCache_Backup(t *testing.T) {
	t.Parallel()

	cache := &SchemaCache{Fs: afero.NewMemMapFs(), Dir: "/cache"}
	require.NoError(t, cache.Write([]string{"A"}, []depgraph.ViewDefinition{{Name: "V", Text: "select * from a"}}))

	written, err := cache.Backup(time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/cache/schema/tables_202403051407.csv",
		"/cache/schema/views_202403051407.csv",
	}, written)

	backup := &SchemaCache{Fs: cache.Fs, Dir: "/cache"}
	exists, err := afero.Exists(backup.Fs, "/cache/schema/views_202403051407.csv")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSchemaCache_MissingColumn(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cache/schema/tables.csv", []byte("|NAME\n0|A\n"), 0o644))

	_, err := (&SchemaCache{Fs: fs, Dir: "/cache"}).Tables()
	require.Error(t, err)
}
