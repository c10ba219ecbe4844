package csvfile

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRead(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	rows := [][]string{
		{"V_ORDERS", "create view v_orders as\nselect * from orders | x"},
		{"V_SITES", `select "quoted" from sites`},
	}
	require.NoError(t, Write(fs, "/cache/schema/views.csv", []string{"name", "text"}, rows))

	raw, err := afero.ReadFile(fs, "/cache/schema/views.csv")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "|name|text\n0|V_ORDERS|")

	records, err := Read(fs, "/cache/schema/views.csv")
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{
		{"name": "V_ORDERS", "text": "create view v_orders as\nselect * from orders | x"},
		{"name": "V_SITES", "text": `select "quoted" from sites`},
	}, records)

	names, err := Column(records, "name")
	require.NoError(t, err)
	assert.Equal(t, []string{"V_ORDERS", "V_SITES"}, names)

	_, err = Column(records, "TABLE_NAME")
	require.Error(t, err)
}

func TestWrite_RejectsRaggedRows(t *testing.T) {
	t.Parallel()

	err := Write(afero.NewMemMapFs(), "/x.csv", []string{"a", "b"}, [][]string{{"1"}})
	require.EqualError(t, err, "row 0 has 1 fields, expected 2")
}

func TestRead_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Read(afero.NewMemMapFs(), "/nope.csv")
	require.Error(t, err)
}

func TestCopy(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.csv", []byte("|X\n0|1\n"), 0o644))
	require.NoError(t, Copy(fs, "/a.csv", "/b.csv"))

	got, err := afero.ReadFile(fs, "/b.csv")
	require.NoError(t, err)
	assert.Equal(t, "|X\n0|1\n", string(got))
}
