package gcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_URI(t *testing.T) {
	t.Parallel()

	c := Config{BucketName: "snowflake2bigquery"}
	assert.Equal(t, "gs://snowflake2bigquery/mike_logs/table_history/tableHits_20240101.csv", c.URI("mike_logs/table_history/tableHits_20240101.csv"))
	assert.Equal(t, "gs://snowflake2bigquery/a.csv", c.URI("/a.csv"))
}

func TestConfig_ClientOptions(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Config{BucketName: "b"}.ClientOptions())
	assert.Len(t, Config{ServiceAccountFile: "/key.json"}.ClientOptions(), 1)
	assert.Len(t, Config{ServiceAccountJSON: "{}"}.ClientOptions(), 1)
}
