package snowflake

import (
	"context"
	"io"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/snowflakedb/gosnowflake"
	"github.com/snowusage/snowusage/pkg/query"
)

const (
	invalidQueryError = "SQL compilation error"
)

type Row = map[string]interface{}

type Selector interface {
	Select(ctx context.Context, query *query.Query) ([]Row, error)
}

type DB struct {
	conn   *sqlx.DB
	config *Config
}

func NewDB(c *Config) (*DB, error) {
	dsn, err := c.DSN()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create DSN")
	}

	gosnowflake.GetLogger().SetOutput(io.Discard)

	db, err := sqlx.Connect("snowflake", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to snowflake")
	}

	return &DB{conn: db, config: c}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Select runs the query and returns each row keyed by column name.
func (db *DB) Select(ctx context.Context, query *query.Query) ([]Row, error) {
	ctx, err := gosnowflake.WithMultiStatement(ctx, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create snowflake context")
	}

	rows, err := db.conn.QueryxContext(ctx, query.String(), query.Args...)
	if err == nil {
		err = rows.Err()
	}

	if err != nil {
		errorMessage := err.Error()
		err = errors.New(strings.ReplaceAll(errorMessage, "\n", "  -  "))
	}

	if rows != nil {
		defer rows.Close()
	}

	if err != nil {
		return nil, err
	}

	var result []Row
	for rows.Next() {
		row := make(Row)
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}

		result = append(result, row)
	}

	return result, rows.Err()
}

// Ping runs a simple query (SELECT 1) to validate the connection.
func (db *DB) Ping(ctx context.Context) error {
	_, err := db.Select(ctx, &query.Query{Query: "SELECT 1"})
	if err != nil {
		return errors.Wrap(err, "failed to run test query on Snowflake connection")
	}

	return nil
}
