package rollup

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/snowusage/snowusage/pkg/depgraph"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dailyConfig = `
ROLL_SQLS:
  - label: ad_daily_fact
    sql: INSERT INTO ad_daily_fact SELECT * FROM ad_hourly_fact WHERE 1=1
  - label: site_daily_fact
    sql: "SELECT a FROM site_hourly_fact s JOIN x FROM y"
ROLL_ADVT_SQLS:
  - label: advt_daily_fact
    sql: SELECT * FROM  advt_hourly_fact
`

const monthlyConfig = `
ROLL_SQLS:
  - label: ad_monthly_fact
    sql: SELECT * FROM ad_daily_fact
  - label: ad_monthly_fact_delete
    sql: DELETE FROM ad_monthly_fact
ROLL_ADVT_SQLS: []
`

func TestParseODFI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  string
		want    []depgraph.Edge
		wantErr string
	}{
		{
			name: "only the first rollup config is read",
			config: `
ROLLUP_CONFIG:
  bid_report:
    time_rollups:
      daily:
        source: bid_hourly
        table: bid_daily
      monthly:
        source: bid_daily
        table: bid_monthly
  other:
    time_rollups:
      daily:
        source: other_hourly
        table: other_daily
`,
			want: []depgraph.Edge{
				{From: "BID_HOURLY", To: "BID_DAILY"},
				{From: "BID_DAILY", To: "BID_MONTHLY"},
			},
		},
		{
			name:   "no rollup config",
			config: "FEED_NAME: something\n",
		},
		{
			name: "list valued first entry is skipped",
			config: `
ROLLUP_CONFIG:
  tables:
    - a
    - b
`,
		},
		{
			name: "entry without time rollups",
			config: `
ROLLUP_CONFIG:
  bid_report:
    partitions: 4
`,
		},
		{
			name: "missing source",
			config: `
ROLLUP_CONFIG:
  bid_report:
    time_rollups:
      daily:
        table: bid_daily
`,
			wantErr: "malformed rollup config in section 'time_rollups', entry 'daily': missing 'source'",
		},
		{
			name:   "empty file",
			config: "",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseODFI([]byte(tt.config))
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDaily(t *testing.T) {
	t.Parallel()

	got, err := ParseDaily([]byte(dailyConfig))
	require.NoError(t, err)
	assert.Equal(t, []depgraph.Edge{
		{From: "AD_HOURLY_FACT", To: "AD_DAILY_FACT"},
		{From: "SITE_HOURLY_FACT", To: "SITE_DAILY_FACT"},
		{From: "ADVT_HOURLY_FACT", To: "ADVT_DAILY_FACT"},
	}, got)
}

func TestParseMonthly_SkipsDeletes(t *testing.T) {
	t.Parallel()

	got, err := ParseMonthly([]byte(monthlyConfig))
	require.NoError(t, err)
	assert.Equal(t, []depgraph.Edge{{From: "AD_DAILY_FACT", To: "AD_MONTHLY_FACT"}}, got)

	// the daily parser has no such exception
	_, err = ParseDaily([]byte(monthlyConfig))
	require.NoError(t, err)
}

func TestParseRollSQLs_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name:    "missing section",
			config:  "ROLL_SQLS: []\n",
			wantErr: "malformed rollup config in section 'ROLL_ADVT_SQLS': section is missing",
		},
		{
			name:    "missing label",
			config:  "ROLL_SQLS:\n  - sql: SELECT 1 FROM a\nROLL_ADVT_SQLS: []\n",
			wantErr: "malformed rollup config in section 'ROLL_SQLS', entry '#0': missing 'label'",
		},
		{
			name:    "statement without FROM",
			config:  "ROLL_SQLS:\n  - label: a\n    sql: select 1\nROLL_ADVT_SQLS: []\n",
			wantErr: "malformed rollup config in section 'ROLL_SQLS', entry 'a': no source relation found after FROM",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseDaily([]byte(tt.config))
			require.EqualError(t, err, tt.wantErr)

			var malformed *MalformedConfigError
			assert.True(t, errors.As(err, &malformed))
		})
	}
}

func TestLoadGraph(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	gitDir := "/git/etl"
	files := map[string]string{
		filepath.Join(gitDir, "jobs", "odfi_etls", "bid.yaml"): `
ROLLUP_CONFIG:
  bid_report:
    time_rollups:
      daily:
        source: bid_hourly
        table: bid_daily
`,
		filepath.Join(gitDir, "jobs", "odfi_etls", "plain.yaml"):                "FEED_NAME: plain\n",
		filepath.Join(gitDir, "jobs", "daily_rollups", "daily_rollups.yaml"):     dailyConfig,
		filepath.Join(gitDir, "jobs", "monthly_rollups", "monthly_rollups.yaml"): monthlyConfig,
	}
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}

	g, err := LoadGraph(fs, gitDir)
	require.NoError(t, err)

	assert.True(t, g.HasEdge("BID_HOURLY", "BID_DAILY"))
	assert.True(t, g.HasEdge("AD_HOURLY_FACT", "AD_DAILY_FACT"))
	assert.True(t, g.HasEdge("AD_DAILY_FACT", "AD_MONTHLY_FACT"))
	assert.False(t, g.HasNode("AD_MONTHLY_FACT_DELETE"))
	assert.Len(t, g.Edges(), 5)
}

func TestLoadGraph_MissingDailyFile(t *testing.T) {
	t.Parallel()

	_, err := LoadGraph(afero.NewMemMapFs(), "/git/etl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read rollup config")
}
