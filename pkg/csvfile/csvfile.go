// Package csvfile reads and writes the pipe separated cache files shared by the schema
// cache, the history loader and the YAML dependency scan. Files carry a leading unnamed
// index column so they stay interchangeable with the notebooks that consume them.
package csvfile

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const Separator = '|'

// Write stores header and rows at path, creating parent directories.
func Write(fs afero.Fs, path string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = Separator

	if err := w.Write(append([]string{""}, header...)); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return errors.Errorf("row %d has %d fields, expected %d", i, len(row), len(header))
		}
		if err := w.Write(append([]string{strconv.Itoa(i)}, row...)); err != nil {
			return errors.Wrapf(err, "failed to write row %d", i)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "failed to flush csv")
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}

	return errors.Wrapf(afero.WriteFile(fs, path, buf.Bytes(), 0o644), "failed to write %s", path)
}

// Read returns every record keyed by header name. The index column is dropped.
func Read(fs afero.Fs, path string) ([]map[string]string, error) {
	buf, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file %s", path)
	}

	r := csv.NewReader(bytes.NewReader(buf))
	r.Comma = Separator
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	result := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" || i >= len(record) {
				continue
			}
			row[name] = record[i]
		}
		result = append(result, row)
	}

	return result, nil
}

// Column returns the named column of every record, in file order.
func Column(records []map[string]string, name string) ([]string, error) {
	values := make([]string, 0, len(records))
	for i, r := range records {
		v, ok := r[name]
		if !ok {
			return nil, errors.Errorf("record %d has no %s column", i, name)
		}
		values = append(values, v)
	}

	return values, nil
}

// Copy duplicates src to dst on the same filesystem.
func Copy(fs afero.Fs, src, dst string) error {
	buf, err := afero.ReadFile(fs, src)
	if err != nil {
		return errors.Wrapf(err, "failed to read file %s", src)
	}

	return errors.Wrapf(afero.WriteFile(fs, dst, buf, 0o644), "failed to write %s", dst)
}
