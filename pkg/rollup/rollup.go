package rollup

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/snowusage/snowusage/pkg/depgraph"
	"github.com/snowusage/snowusage/pkg/query"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	rollupConfigKey = "ROLLUP_CONFIG"
	timeRollupsKey  = "time_rollups"
)

// sqlSections are read from both the daily and the monthly rollup files.
var sqlSections = []string{"ROLL_SQLS", "ROLL_ADVT_SQLS"}

// MalformedConfigError is returned when a rollup entry lacks a field the graph needs.
// No defaults are guessed for missing sources or targets.
type MalformedConfigError struct {
	Section string
	Entry   string
	Reason  string
}

func (e *MalformedConfigError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("malformed rollup config in section '%s': %s", e.Section, e.Reason)
	}
	return fmt.Sprintf("malformed rollup config in section '%s', entry '%s': %s", e.Section, e.Entry, e.Reason)
}

type timeRollup struct {
	Source string `mapstructure:"source"`
	Table  string `mapstructure:"table"`
}

type odfiRollup struct {
	TimeRollups map[string]timeRollup `mapstructure:"time_rollups"`
}

type rollSQL struct {
	Label string `mapstructure:"label"`
	SQL   string `mapstructure:"sql"`
}

// ParseODFI extracts source -> table edges from the time rollups of the first entry under
// ROLLUP_CONFIG. Files without a rollup config, or whose first entry is a list, yield no
// edges.
func ParseODFI(data []byte) ([]depgraph.Edge, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse the odfi config")
	}

	config := mappingValue(documentRoot(&doc), rollupConfigKey)
	if config == nil || config.Kind != yaml.MappingNode || len(config.Content) < 2 {
		return nil, nil
	}

	// mapping order matters here, only the first key is considered
	first := config.Content[1]
	if first.Kind != yaml.MappingNode {
		return nil, nil
	}

	var raw map[string]interface{}
	if err := first.Decode(&raw); err != nil {
		return nil, errors.Wrapf(err, "failed to decode rollup config '%s'", config.Content[0].Value)
	}
	if _, ok := raw[timeRollupsKey]; !ok {
		return nil, nil
	}

	var rollup odfiRollup
	if err := mapstructure.Decode(raw, &rollup); err != nil {
		return nil, &MalformedConfigError{Section: timeRollupsKey, Reason: err.Error()}
	}

	names := lo.Keys(rollup.TimeRollups)
	sort.Strings(names)

	edges := make([]depgraph.Edge, 0, len(names))
	for _, name := range names {
		r := rollup.TimeRollups[name]
		if r.Source == "" {
			return nil, &MalformedConfigError{Section: timeRollupsKey, Entry: name, Reason: "missing 'source'"}
		}
		if r.Table == "" {
			return nil, &MalformedConfigError{Section: timeRollupsKey, Entry: name, Reason: "missing 'table'"}
		}

		edges = append(edges, depgraph.Edge{From: strings.ToUpper(r.Source), To: strings.ToUpper(r.Table)})
	}

	return edges, nil
}

// ParseDaily extracts edges from the daily rollup SQL lists. The target is the label, the
// source is the first relation after FROM in the statement.
func ParseDaily(data []byte) ([]depgraph.Edge, error) {
	return parseRollSQLs(data, false)
}

// ParseMonthly works like ParseDaily but ignores the cleanup entries whose label mentions
// "delete".
func ParseMonthly(data []byte) ([]depgraph.Edge, error) {
	return parseRollSQLs(data, true)
}

func parseRollSQLs(data []byte, skipDeletes bool) ([]depgraph.Edge, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse the rollup config")
	}

	var edges []depgraph.Edge
	for _, section := range sqlSections {
		value, ok := raw[section]
		if !ok {
			return nil, &MalformedConfigError{Section: section, Reason: "section is missing"}
		}

		var entries []rollSQL
		if err := mapstructure.Decode(value, &entries); err != nil {
			return nil, &MalformedConfigError{Section: section, Reason: err.Error()}
		}

		for i, entry := range entries {
			if entry.Label == "" {
				return nil, &MalformedConfigError{Section: section, Entry: fmt.Sprintf("#%d", i), Reason: "missing 'label'"}
			}
			if skipDeletes && strings.Contains(entry.Label, "delete") {
				continue
			}

			source, found := query.SourceAfterFrom(entry.SQL)
			if !found {
				return nil, &MalformedConfigError{Section: section, Entry: entry.Label, Reason: "no source relation found after FROM"}
			}

			edges = append(edges, depgraph.Edge{From: source, To: strings.ToUpper(entry.Label)})
		}
	}

	return edges, nil
}

// LoadGraph reads every rollup definition under the jobs directory of the ETL repository
// and returns the combined rollup graph.
func LoadGraph(fs afero.Fs, gitDir string) (*depgraph.Graph, error) {
	odfiFiles, err := afero.Glob(fs, filepath.Join(gitDir, "jobs", "odfi_etls", "*.yaml"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list odfi configs")
	}
	sort.Strings(odfiFiles)

	var edges []depgraph.Edge
	for _, file := range odfiFiles {
		fileEdges, err := parseFile(fs, file, ParseODFI)
		if err != nil {
			return nil, err
		}
		edges = append(edges, fileEdges...)
	}

	daily, err := parseFile(fs, filepath.Join(gitDir, "jobs", "daily_rollups", "daily_rollups.yaml"), ParseDaily)
	if err != nil {
		return nil, err
	}
	monthly, err := parseFile(fs, filepath.Join(gitDir, "jobs", "monthly_rollups", "monthly_rollups.yaml"), ParseMonthly)
	if err != nil {
		return nil, err
	}
	edges = append(edges, daily...)
	edges = append(edges, monthly...)

	return depgraph.BuildEdgeGraph(edges), nil
}

func parseFile(fs afero.Fs, path string, parse func([]byte) ([]depgraph.Edge, error)) ([]depgraph.Edge, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read rollup config %s", path)
	}

	edges, err := parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse rollup config %s", path)
	}

	return edges, nil
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
