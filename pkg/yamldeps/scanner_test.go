package yamldeps

import (
	"path/filepath"
	"testing"

	"github.com/snowusage/snowusage/pkg/attribution"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const workspace = "/ws"

func newScanner(t *testing.T, files map[string]string, catalog []string) *Scanner {
	t.Helper()

	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(workspace, path), []byte(content), 0o644))
	}

	return &Scanner{
		Fs:        fs,
		Workspace: workspace,
		Matcher:   attribution.NewMatcher(catalog),
		Logger:    zap.NewNop().Sugar(),
	}
}

func TestScanner_Scan(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"data-sustain-snowflake-etl/jobs/sites.yaml": `
FEED_NAME: sites
FEED_LOCATION: s3
LOAD_STATE_VAR: SITES_LOAD
SQL:
  - INSERT INTO DIM_SITES SELECT * FROM STAGE
`,
		"data-sustain-snowflake-etl/jobs/owners.yaml":     "FEED_NAME: owners\nSQL: INSERT INTO DIM_SITES_TO_OWNERS SELECT * FROM RAW_OWNERS\n",
		"data-sustain-snowflake-etl/jobs/staging.yaml":    "SQL: INSERT INTO ORDERS_TMP SELECT 1\n",
		"data-sustain-snowflake-etl/jobs/retry.yaml":      "# ORDERS retry settings\nMAX_ATTEMPTS: 3\nWAIT_BETWEEN_ATTEMPTS: 10\n",
		"data-sustain-snowflake-etl/jobs/notes.txt":       "DIM_SITES",
		"data-sustain-snowflake-etl/conf/env.sample.yaml": "SF_OBJECT_NAMES:\n  - account\n  - opportunity\n",
	}
	catalog := []string{"DIM_SITES", "DIM_SITES_TO_OWNERS", "ORDERS", "SF_ACCOUNT", "MONITOR_SF_LOAD", "UNUSED"}

	s := newScanner(t, files, catalog)
	got, err := s.Scan(catalog)
	require.NoError(t, err)

	assert.Equal(t, []Dependency{
		{
			Table:        "DIM_SITES",
			FeedName:     "sites",
			FeedLocation: "s3",
			LoadStateVar: "SITES_LOAD",
			Repo:         "data-sustain-snowflake-etl",
			File:         "data-sustain-snowflake-etl/jobs/sites.yaml",
		},
		{
			Table:    "DIM_SITES_TO_OWNERS",
			FeedName: "owners",
			Repo:     "data-sustain-snowflake-etl",
			File:     "data-sustain-snowflake-etl/jobs/owners.yaml",
		},
		{
			Table: "SF_ACCOUNT",
			Repo:  "data-sustain-snowflake-etl",
			File:  "data-sustain-snowflake-etl/conf/env.sample.yaml",
		},
		{
			Table: "MONITOR_SF_LOAD",
			Repo:  "data-sustain-snowflake-wheels",
			File:  "data-sustain-snowflake-wheels/py-salesforce-pull/ox_dw_snowflake_salesforce_pull/settings.py",
		},
	}, got)
}

func TestScanner_DownloadState(t *testing.T) {
	t.Parallel()

	s := newScanner(t, map[string]string{"data-sustain-snowflake-etl/jobs/a.yaml": "SQL: select 1\n"}, []string{"DOWNLOAD_STATE"})
	got, err := s.Scan([]string{"DOWNLOAD_STATE"})
	require.NoError(t, err)

	require.Len(t, got, 13)
	assert.Equal(t, Dependency{
		Table:        "DOWNLOAD_STATE",
		FeedName:     "BidPerformance",
		FeedLocation: "gcs",
		Repo:         "SnowflakeToGCS",
		File:         "SnowflakeToGCS/load_state.yaml",
	}, got[1])
	assert.Equal(t, "PUBLISHER_DIM", got[12].Table)
	assert.Equal(t, "SnowflakeToGCS/BidPerformanceReport/scripts.yaml", got[12].File)
}

func TestScanner_ExternalConfigs(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"data-sustain-snowflake-etl/jobs/a.yaml":                                                    "SQL: select 1\n",
		"data-sustain-snowflake-wheels/py-odfi-etl/ox_dw_snowflake_odfi_etl/app_config/rollup.yaml": "QUEUE: select * from rollup_queue\n",
	}
	s := newScanner(t, files, []string{"ROLLUP_QUEUE"})

	got, err := s.Scan([]string{"ROLLUP_QUEUE"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "data-sustain-snowflake-wheels", got[0].Repo)
	assert.Equal(t, "data-sustain-snowflake-wheels/py-odfi-etl/ox_dw_snowflake_odfi_etl/app_config/rollup.yaml", got[0].File)
}

func TestScanner_NoStatements(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"data-sustain-snowflake-etl/jobs/broken.yaml": "# loads ORDERS\nLOAD_STATE_VAR: ORDERS_STATE\n",
	}
	s := newScanner(t, files, []string{"ORDERS"})

	_, err := s.Scan([]string{"ORDERS"})
	require.ErrorIs(t, err, ErrNoStatements)
	assert.Contains(t, err.Error(), "broken.yaml")
}

func TestScanner_MissingWorkspace(t *testing.T) {
	t.Parallel()

	s := newScanner(t, nil, []string{"ORDERS"})
	_, err := s.Scan([]string{"ORDERS"})
	require.Error(t, err)
}

func TestDependencyCache(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	deps := []Dependency{
		{Table: "DIM_SITES", FeedName: "sites", FeedLocation: "s3", LoadStateVar: "SITES_LOAD", Repo: "etl", File: "etl/jobs/sites.yaml"},
		{Table: "MONITOR_SF_LOAD", Repo: "wheels", File: "wheels/settings.py"},
	}

	path := CachePath("/cache")
	assert.Equal(t, "/cache/jobs/yaml.csv", path)
	require.NoError(t, WriteCSV(fs, path, deps))

	got, err := ReadCSV(fs, path)
	require.NoError(t, err)
	assert.Equal(t, deps, got)

	assert.Equal(t, "etl/jobs/sites.yaml", JobEdges(got)[0].From)
	assert.Equal(t, "DIM_SITES", JobEdges(got)[0].To)
}
