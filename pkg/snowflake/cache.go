package snowflake

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/snowusage/snowusage/pkg/csvfile"
	"github.com/snowusage/snowusage/pkg/depgraph"
	"github.com/spf13/afero"
)

const (
	tablesFile  = "tables"
	viewsFile   = "views"
	tableColumn = "TABLE_NAME"
)

// SchemaCache is the on-disk snapshot of table names and view definitions under <Dir>/schema.
type SchemaCache struct {
	Fs  afero.Fs
	Dir string
}

func (c *SchemaCache) path(name string) string {
	return filepath.Join(c.Dir, "schema", name+".csv")
}

// Tables returns the cached table names, sorted.
func (c *SchemaCache) Tables() ([]string, error) {
	records, err := csvfile.Read(c.Fs, c.path(tablesFile))
	if err != nil {
		return nil, err
	}

	tables, err := csvfile.Column(records, tableColumn)
	if err != nil {
		return nil, errors.Wrap(err, "invalid tables cache")
	}
	sort.Strings(tables)

	return tables, nil
}

// Views returns the cached view definitions in file order.
func (c *SchemaCache) Views() ([]depgraph.ViewDefinition, error) {
	records, err := csvfile.Read(c.Fs, c.path(viewsFile))
	if err != nil {
		return nil, err
	}

	views := make([]depgraph.ViewDefinition, 0, len(records))
	for i, r := range records {
		name, ok := r["name"]
		if !ok {
			return nil, errors.Errorf("invalid views cache: record %d has no name column", i)
		}
		views = append(views, depgraph.ViewDefinition{Name: name, Text: r["text"]})
	}

	return views, nil
}

func (c *SchemaCache) Write(tables []string, views []depgraph.ViewDefinition) error {
	viewRows := make([][]string, 0, len(views))
	for _, v := range views {
		viewRows = append(viewRows, []string{v.Name, v.Text})
	}
	if err := csvfile.Write(c.Fs, c.path(viewsFile), []string{"name", "text"}, viewRows); err != nil {
		return err
	}

	tableRows := make([][]string, 0, len(tables))
	for _, t := range tables {
		tableRows = append(tableRows, []string{t})
	}

	return csvfile.Write(c.Fs, c.path(tablesFile), []string{tableColumn}, tableRows)
}

// Backup copies the current cache files next to themselves with a timestamp suffix and
// returns the new paths.
func (c *SchemaCache) Backup(now time.Time) ([]string, error) {
	suffix := now.Format("200601021504")
	var written []string
	for _, name := range []string{tablesFile, viewsFile} {
		dst := filepath.Join(c.Dir, "schema", name+"_"+suffix+".csv")
		if err := csvfile.Copy(c.Fs, c.path(name), dst); err != nil {
			return written, err
		}
		written = append(written, dst)
	}

	return written, nil
}
