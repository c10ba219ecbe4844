package yamldeps

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/snowusage/snowusage/pkg/attribution"
	"github.com/snowusage/snowusage/pkg/logger"
	"github.com/snowusage/snowusage/pkg/path"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	EtlRepo    = "data-sustain-snowflake-etl"
	WheelsRepo = "data-sustain-snowflake-wheels"

	loadStateVarKey = "LOAD_STATE_VAR"
	feedNameKey     = "FEED_NAME"
	feedLocationKey = "FEED_LOCATION"
	sfObjectsKey    = "SF_OBJECT_NAMES"

	salesforcePrefix = "SF_"
)

var ErrNoStatements = errors.New("no statements found")

// retry-only configs legitimately carry no statements
var retryOnlyKeys = []string{"MAX_ATTEMPTS", "WAIT_BETWEEN_ATTEMPTS"}

// DOWNLOAD_STATE is loaded by a process that lives outside the ETL repository, so its
// files are fixed.
var (
	downloadStateFiles = []string{
		"SnowflakeToGCS/BidPerformanceReport/scripts.yaml",
		"SnowflakeToGCS/load_state.yaml",
	}
	bidPerformanceTables = []string{
		"ADVERTISER_DIM", "AD_UNIT_DIM", "BRAND_DIM", "DEAL_DIM", "DEMAND_PARTNER_DIM",
		"IAS_BUYER_BRAND_SUM_HOURLY_FACT_VIEW", "OX_BUYER_BRAND_SUM_HOURLY_FACT",
		"OX_COUNTRY_REGION_MAPPING", "PACKAGE_DIM", "PMP_DEAL_TYPE_MAPPING_DIM",
		"PUBLISHER_DIM",
	}
)

const salesforceMonitorFile = WheelsRepo + "/py-salesforce-pull/ox_dw_snowflake_salesforce_pull/settings.py"

// Dependency records that a job config under Repo/File loads or reads Table.
type Dependency struct {
	Table        string
	FeedName     string
	FeedLocation string
	LoadStateVar string
	Repo         string
	File         string
}

// Scanner attributes catalog tables to the YAML job configs of the ETL repositories
// checked out under Workspace.
type Scanner struct {
	Fs        afero.Fs
	Workspace string
	Matcher   *attribution.Matcher
	Logger    logger.Logger

	candidates []candidateFile
	parsed     map[string]*jobConfig
}

type candidateFile struct {
	path    string
	content string
}

type jobConfig struct {
	statements   []string
	feedName     string
	feedLocation string
	loadStateVar string
}

// Scan returns the dependencies of every given table, in table order.
func (s *Scanner) Scan(tables []string) ([]Dependency, error) {
	if err := s.indexCandidates(); err != nil {
		return nil, err
	}

	var result []Dependency
	for _, table := range tables {
		deps, err := s.scanTable(table)
		if err != nil {
			return nil, err
		}
		result = append(result, deps...)
	}

	return result, nil
}

func (s *Scanner) etlDir() string {
	return filepath.Join(s.Workspace, EtlRepo)
}

func (s *Scanner) wheelsConfig(name string) string {
	return filepath.Join(s.Workspace, WheelsRepo, "py-odfi-etl", "ox_dw_snowflake_odfi_etl", "app_config", name)
}

func (s *Scanner) scanTable(table string) ([]Dependency, error) {
	var deps []Dependency

	if table == "DOWNLOAD_STATE" {
		for _, file := range downloadStateFiles {
			s.Logger.Warnf("**SPECIAL CASE** %s found in %s", table, file)
			deps = append(deps, bidPerformanceDependency(table, file))
		}
		for _, other := range bidPerformanceTables {
			s.Logger.Warnf("**SPECIAL CASE** %s found in %s", other, downloadStateFiles[0])
			deps = append(deps, bidPerformanceDependency(other, downloadStateFiles[0]))
		}
		return deps, nil
	}

	if table == "MONITOR_SF_LOAD" {
		s.Logger.Warnf("**SPECIAL CASE** %s found in %s", table, salesforceMonitorFile)
		deps = append(deps, Dependency{Table: table, Repo: WheelsRepo, File: salesforceMonitorFile})
	}

	for _, file := range s.filesFor(table) {
		cfg, err := s.load(file)
		if err != nil {
			return nil, err
		}
		if !s.references(cfg.statements, table) {
			continue
		}

		rel, err := filepath.Rel(s.Workspace, file)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to resolve %s relative to the workspace", file)
		}
		rel = filepath.ToSlash(rel)
		s.Logger.Debugf("%s found in %s", table, rel)

		deps = append(deps, Dependency{
			Table:        table,
			FeedName:     cfg.feedName,
			FeedLocation: cfg.feedLocation,
			LoadStateVar: cfg.loadStateVar,
			Repo:         strings.Split(rel, "/")[0],
			File:         rel,
		})
	}

	return deps, nil
}

func bidPerformanceDependency(table, file string) Dependency {
	return Dependency{
		Table:        table,
		FeedName:     "BidPerformance",
		FeedLocation: "gcs",
		Repo:         "SnowflakeToGCS",
		File:         file,
	}
}

// filesFor lists the YAML files that mention table, plus the configs known to live
// outside the ETL repository.
func (s *Scanner) filesFor(table string) []string {
	lower := strings.ToLower(table)
	var files []string
	for _, c := range s.candidates {
		if strings.Contains(c.content, lower) {
			files = append(files, c.path)
		}
	}

	if strings.HasPrefix(table, salesforcePrefix) {
		files = append(files, filepath.Join(s.etlDir(), "conf", "env.sample.yaml"))
		files = lo.Uniq(files)
		sort.Strings(files)
	}
	if strings.HasPrefix(table, "CONTENT_TOPIC") {
		files = append(files, s.wheelsConfig("content_topics.yaml"))
	}
	if table == "ROLLUP_QUEUE" {
		files = append(files, s.wheelsConfig("rollup.yaml"))
	}

	return files
}

// references reports whether any statement genuinely references table. Statements
// touching the staging copy of the table are ignored, and salesforce tables skip
// disambiguation since they are configured by object name.
func (s *Scanner) references(statements []string, table string) bool {
	tmp := strings.ToLower(table) + "_tmp"
	for _, stmt := range statements {
		if !s.Matcher.Mentions(stmt, table) || strings.Contains(strings.ToLower(stmt), tmp) {
			continue
		}
		if strings.HasPrefix(table, salesforcePrefix) || s.Matcher.IsGenuineReference(stmt, table, "") {
			return true
		}
	}

	return false
}

func (s *Scanner) indexCandidates() error {
	if s.candidates != nil {
		return nil
	}

	files, err := path.GetAllFilesRecursive(s.Fs, s.etlDir(), []string{".yaml"})
	if err != nil {
		return err
	}

	candidates := make([]candidateFile, 0, len(files))
	for _, file := range files {
		buf, err := afero.ReadFile(s.Fs, file)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", file)
		}
		candidates = append(candidates, candidateFile{path: file, content: strings.ToLower(string(buf))})
	}

	s.candidates = candidates
	s.Logger.Debugf("indexed %d yaml files under %s", len(candidates), s.etlDir())

	return nil
}

func (s *Scanner) load(file string) (*jobConfig, error) {
	if cfg, ok := s.parsed[file]; ok {
		return cfg, nil
	}

	buf, err := afero.ReadFile(s.Fs, file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", file)
	}

	cfg, err := parseJobConfig(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", file)
	}

	if s.parsed == nil {
		s.parsed = make(map[string]*jobConfig)
	}
	s.parsed[file] = cfg

	return cfg, nil
}

func parseJobConfig(buf []byte) (*jobConfig, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(buf, &node); err != nil {
		return nil, err
	}

	doc := Decode(&node)
	cfg := &jobConfig{}
	if doc.Kind == Mapping {
		cfg.loadStateVar = scalar(doc, loadStateVarKey)
		cfg.feedName = scalar(doc, feedNameKey)
		cfg.feedLocation = scalar(doc, feedLocationKey)
		doc = doc.Without(loadStateVarKey, feedNameKey, feedLocationKey)
	}

	cfg.statements = Flatten(doc)
	if len(cfg.statements) == 0 && !isRetryOnly(doc) {
		return nil, ErrNoStatements
	}

	if objects, ok := doc.Lookup(sfObjectsKey); ok {
		for _, name := range Flatten(objects) {
			cfg.statements = append(cfg.statements, salesforcePrefix+strings.ToUpper(name))
		}
	}

	return cfg, nil
}

func isRetryOnly(doc Value) bool {
	if doc.Kind != Mapping {
		return false
	}

	keys := doc.Keys()
	return lo.Every(keys, retryOnlyKeys) && len(keys) == len(retryOnlyKeys)
}

func scalar(doc Value, key string) string {
	v, ok := doc.Lookup(key)
	if !ok {
		return ""
	}
	return v.Str
}
