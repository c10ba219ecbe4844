package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/snowusage/snowusage/pkg/attribution"
	"github.com/snowusage/snowusage/pkg/config"
	"github.com/snowusage/snowusage/pkg/depgraph"
	"github.com/snowusage/snowusage/pkg/git"
	"github.com/snowusage/snowusage/pkg/logger"
	"github.com/snowusage/snowusage/pkg/snowflake"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	fs = afero.NewCacheOnReadFs(afero.NewOsFs(), afero.NewMemMapFs(), 0)

	faint          = color.New(color.Faint).SprintFunc()
	infoPrinter    = color.New(color.Bold)
	errorPrinter   = color.New(color.FgRed, color.Bold)
	warningPrinter = color.New(color.FgYellow, color.Bold)
	successPrinter = color.New(color.FgGreen, color.Bold)

	now = time.Now
)

type printer interface {
	Println(a ...interface{}) (n int, err error)
	Printf(format string, a ...interface{}) (n int, err error)
	Print(a ...interface{}) (n int, err error)
}

var (
	startDateFlag = &cli.StringFlag{
		Name:  "start-date",
		Usage: "the first day of the period, in YYYYMMDD format or 'yesterday'",
	}
	endDateFlag = &cli.StringFlag{
		Name:  "end-date",
		Usage: "the last day of the period, in YYYYMMDD format or 'yesterday', defaults to today",
	}
)

func makeLogger(isDebug bool) *zap.SugaredLogger {
	l, err := logger.New(isDebug)
	if err != nil {
		panic(err)
	}

	return l
}

// loadConfig reads the file given with --config-file, creating it with the defaults on
// first use, and applies the environment on top.
func loadConfig(c *cli.Context) (*config.Config, error) {
	configFile := c.String("config-file")
	if configFile == "" {
		configFile = config.DefaultFileName
	}

	cfg, err := config.LoadOrCreate(fs, configFile)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load the config file at '%s'", configFile)
	}

	if err := cfg.OverrideFromEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func schemaCache(cfg *config.Config) *snowflake.SchemaCache {
	return &snowflake.SchemaCache{Fs: fs, Dir: cfg.Paths.CacheDir}
}

// catalog is the cached table list and view definitions with a matcher built over the
// table names.
type catalog struct {
	tables  []string
	views   []depgraph.ViewDefinition
	matcher *attribution.Matcher
}

func loadCatalog(cfg *config.Config) (*catalog, error) {
	cache := schemaCache(cfg)
	tables, err := cache.Tables()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read the cached tables, run 'snowusage schema refresh' first")
	}

	views, err := cache.Views()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read the cached views, run 'snowusage schema refresh' first")
	}

	return &catalog{
		tables:  tables,
		views:   views,
		matcher: attribution.NewMatcher(tables),
	}, nil
}

func openSnowflake(cfg *config.Config) (*snowflake.DB, error) {
	if !cfg.Snowflake.IsValid() {
		return nil, errors.New("snowflake credentials are missing, set them in the config file or through SNOWFLAKE_* variables")
	}

	return snowflake.NewDB(&cfg.Snowflake)
}

// logRevision logs the commit checked out at dir.
func logRevision(l logger.Logger, dir string) {
	repo, err := git.FindRepoFromPath(fs, dir)
	if err != nil {
		l.Debugf("%s is not inside a git checkout", dir)
		return
	}

	commit, err := repo.CurrentCommit(fs)
	if err != nil {
		l.Warnf("failed to resolve the current commit of %s: %v", repo.Path, err)
		return
	}

	l.Infof("reading %s at commit %s", repo.Path, commit)
}

func newTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(header)
	t.SetStyle(table.StyleLight)

	return t
}

func exitWithError(message string, err error) error {
	errorPrinter.Printf("%s: %v\n", message, err)
	return cli.Exit("", 1)
}

func printStatements(statements []string) {
	for _, s := range statements {
		fmt.Println(s)
	}
}
