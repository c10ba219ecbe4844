package yamldeps

import (
	"path/filepath"

	"github.com/snowusage/snowusage/pkg/csvfile"
	"github.com/snowusage/snowusage/pkg/depgraph"
	"github.com/spf13/afero"
)

var cacheHeader = []string{"table_name", "feed_name", "feed_location", "load_state_var", "repo", "file"}

// CachePath is where the scan result is kept under the cache directory.
func CachePath(cacheDir string) string {
	return filepath.Join(cacheDir, "jobs", "yaml.csv")
}

func WriteCSV(fs afero.Fs, path string, deps []Dependency) error {
	rows := make([][]string, 0, len(deps))
	for _, d := range deps {
		rows = append(rows, []string{d.Table, d.FeedName, d.FeedLocation, d.LoadStateVar, d.Repo, d.File})
	}

	return csvfile.Write(fs, path, cacheHeader, rows)
}

func ReadCSV(fs afero.Fs, path string) ([]Dependency, error) {
	records, err := csvfile.Read(fs, path)
	if err != nil {
		return nil, err
	}

	deps := make([]Dependency, 0, len(records))
	for _, r := range records {
		deps = append(deps, Dependency{
			Table:        r["table_name"],
			FeedName:     r["feed_name"],
			FeedLocation: r["feed_location"],
			LoadStateVar: r["load_state_var"],
			Repo:         r["repo"],
			File:         r["file"],
		})
	}

	return deps, nil
}

// JobEdges turns dependencies into job file -> table edges.
func JobEdges(deps []Dependency) []depgraph.Edge {
	edges := make([]depgraph.Edge, 0, len(deps))
	for _, d := range deps {
		edges = append(edges, depgraph.Edge{From: d.File, To: d.Table})
	}
	return edges
}
