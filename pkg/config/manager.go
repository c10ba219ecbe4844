package config

import (
	"errors"
	"fmt"
	fs2 "io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/snowusage/snowusage/pkg/bigquery"
	"github.com/snowusage/snowusage/pkg/directory"
	"github.com/snowusage/snowusage/pkg/gcs"
	"github.com/snowusage/snowusage/pkg/history"
	"github.com/snowusage/snowusage/pkg/mail"
	path2 "github.com/snowusage/snowusage/pkg/path"
	"github.com/snowusage/snowusage/pkg/snowflake"
	"github.com/snowusage/snowusage/pkg/usage"
	"github.com/snowusage/snowusage/pkg/yamldeps"
	"github.com/spf13/afero"
)

const DefaultFileName = ".snowusage.yml"

type GoogleCloud struct {
	BigQuery bigquery.Config `yaml:"bigquery"`

	// HistoryBucket stages the files loaded into the usage log.
	HistoryBucket gcs.Config `yaml:"history_bucket"`

	// ReportsBucket receives the tables unloaded from Snowflake, one prefix per table.
	ReportsBucket gcs.Config `yaml:"reports_bucket"`
	ReportsPrefix string     `yaml:"reports_prefix"`
}

type Paths struct {
	CacheDir  string `validate:"required" yaml:"cache_dir"`
	Workspace string `yaml:"workspace"`
	GitDir    string `yaml:"git_dir"`
}

// ETLRepo is the checkout of the ETL job repository, inside the workspace unless set
// explicitly.
func (p Paths) ETLRepo() string {
	if p.GitDir != "" {
		return p.GitDir
	}
	return filepath.Join(p.Workspace, yamldeps.EtlRepo)
}

// HistoryCacheDir keeps the files staged by the history loader.
func (p Paths) HistoryCacheDir() string {
	return filepath.Join(p.CacheDir, "query_history")
}

type History struct {
	Database   string `yaml:"database"`
	BlobPrefix string `yaml:"blob_prefix"`
}

type Analysis struct {
	QueryTypes    usage.Taxonomy `validate:"dive" yaml:"query_types"`
	ExcludeETL    bool           `yaml:"exclude_etl"`
	ETLUser       string         `yaml:"etl_user"`
	BISchema      string         `yaml:"bi_schema"`
	RetentionDays int            `validate:"gte=0" yaml:"retention_days"`
}

type Config struct {
	fs   afero.Fs
	path string

	Snowflake   snowflake.Config `yaml:"snowflake"`
	GoogleCloud GoogleCloud      `yaml:"google_cloud"`
	Directory   directory.Config `yaml:"directory"`
	Mail        mail.Config      `yaml:"mail"`
	Paths       Paths            `yaml:"paths"`
	History     History          `yaml:"history"`
	Analysis    Analysis         `yaml:"analysis"`
}

// Default is the configuration written for a new user; only the Snowflake credentials
// have to be filled in.
func Default() *Config {
	return &Config{
		Snowflake: snowflake.DefaultConfig(),
		GoogleCloud: GoogleCloud{
			BigQuery: bigquery.Config{
				ProjectID: "ox-data-devint",
				Dataset:   "snowflake_test",
			},
			HistoryBucket: gcs.Config{
				ProjectID:  "ox-data-devint",
				BucketName: "snowflake2bigquery",
			},
			ReportsBucket: gcs.Config{
				ProjectID:  "ox-data-prod",
				BucketName: "ox-data-prod-us-central1-reports",
			},
			ReportsPrefix: "snowflake/",
		},
		Directory: directory.DefaultConfig(),
		Mail:      mail.DefaultConfig(),
		Paths: Paths{
			CacheDir:  "cache",
			Workspace: ".",
		},
		History: History{
			Database:   history.DefaultDatabase,
			BlobPrefix: history.DefaultBlobPrefix,
		},
		Analysis: Analysis{
			QueryTypes:    usage.DefaultTaxonomy(),
			ExcludeETL:    true,
			ETLUser:       usage.DefaultETLUser,
			BISchema:      "BUSINESSINTELLIGENCE",
			RetentionDays: 21,
		},
	}
}

func (c *Config) Persist() error {
	return c.PersistToFs(c.fs)
}

func (c *Config) PersistToFs(fs afero.Fs) error {
	return path2.WriteYaml(fs, c.path, c)
}

// Taxonomy returns the configured query type categories, or the default ones.
func (c *Config) Taxonomy() usage.Taxonomy {
	if len(c.Analysis.QueryTypes) == 0 {
		return usage.DefaultTaxonomy()
	}
	return c.Analysis.QueryTypes
}

// OverrideFromEnv applies the credentials and endpoints set in the environment on top
// of the file.
func (c *Config) OverrideFromEnv() error {
	if err := c.Snowflake.OverrideFromEnv(); err != nil {
		return fmt.Errorf("failed to read snowflake settings from the environment: %w", err)
	}

	targets := map[string]interface{}{
		"bigquery":  &c.GoogleCloud.BigQuery,
		"directory": &c.Directory,
		"mail":      &c.Mail,
	}
	for name, target := range targets {
		if err := envconfig.Process("", target); err != nil {
			return fmt.Errorf("failed to read %s settings from the environment: %w", name, err)
		}
	}

	return nil
}

// LoadFromFile reads the file on top of the defaults, so only overrides need to be
// written down.
func LoadFromFile(fs afero.Fs, path string) (*Config, error) {
	config := Default()

	err := path2.ReadYaml(fs, path, config)
	if err != nil {
		return nil, err
	}

	config.fs = fs
	config.path = path

	if err := config.Taxonomy().Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func LoadOrCreate(fs afero.Fs, path string) (*Config, error) {
	config, err := LoadFromFile(fs, path)
	if err != nil && !errors.Is(err, fs2.ErrNotExist) {
		return nil, err
	}

	if err == nil {
		return config, ensureConfigIsInGitignore(fs, path)
	}

	config = Default()
	config.fs = fs
	config.path = path

	err = config.Persist()
	if err != nil {
		return nil, fmt.Errorf("failed to persist config: %w", err)
	}

	return config, ensureConfigIsInGitignore(fs, path)
}

func ensureConfigIsInGitignore(fs afero.Fs, filePath string) (err error) {
	// the config holds credentials, keep it out of git
	gitignorePath := path.Join(path.Dir(filePath), ".gitignore")
	fileNameToIgnore := path.Base(filePath)

	content, err := afero.ReadFile(fs, gitignorePath)
	if errors.Is(err, fs2.ErrNotExist) {
		return afero.WriteFile(fs, gitignorePath, []byte(fileNameToIgnore), 0o644)
	}
	if err != nil {
		return err
	}

	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == fileNameToIgnore {
			return nil
		}
	}

	file, err := fs.OpenFile(gitignorePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func(open afero.File) {
		tempErr := open.Close()
		if tempErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close file: %w", tempErr))
		}
	}(file)

	entry := fileNameToIgnore
	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		entry = "\n" + entry
	}
	_, err = file.WriteString(entry)
	return err
}
