package cmd

import (
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/snowusage/snowusage/pkg/config"
	"github.com/snowusage/snowusage/pkg/yamldeps"
	"github.com/urfave/cli/v2"
)

func Deps(isDebug *bool) *cli.Command {
	return &cli.Command{
		Name:  "deps",
		Usage: "find the ETL job configs that read or write each cached table",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "table",
				Usage: "only scan for these tables, the cache file is left untouched",
			},
		},
		Action: func(c *cli.Context) error {
			logger := makeLogger(*isDebug)

			cfg, err := loadConfig(c)
			if err != nil {
				return exitWithError("Failed to load the config", err)
			}

			cat, err := loadCatalog(cfg)
			if err != nil {
				return exitWithError("Failed to load the catalog", err)
			}

			tables := cat.tables
			only := c.StringSlice("table")
			if len(only) > 0 {
				tables = upper(only)
			}

			logRevision(logger, cfg.Paths.ETLRepo())
			scanner := &yamldeps.Scanner{
				Fs:        fs,
				Workspace: cfg.Paths.Workspace,
				Matcher:   cat.matcher,
				Logger:    logger,
			}
			deps, err := scanner.Scan(tables)
			if err != nil {
				return exitWithError("Failed to scan the job configs", err)
			}

			if len(only) == 0 {
				cachePath := yamldeps.CachePath(cfg.Paths.CacheDir)
				if err := yamldeps.WriteCSV(fs, cachePath, deps); err != nil {
					return exitWithError("Failed to save the dependencies", err)
				}
				logger.Infof("saved %d dependencies to %s", len(deps), cachePath)
			}

			t := newTable(table.Row{"Table", "Feed", "Load State", "Repo", "File"})
			for _, d := range deps {
				t.AppendRow(table.Row{d.Table, d.FeedName, d.LoadStateVar, d.Repo, d.File})
			}
			t.Render()

			return nil
		},
	}
}

// cachedDependencies reads the dependency cache written by the deps command; a missing
// cache yields no dependencies.
func cachedDependencies(cfg *config.Config) ([]yamldeps.Dependency, error) {
	deps, err := yamldeps.ReadCSV(fs, yamldeps.CachePath(cfg.Paths.CacheDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	return deps, err
}

func upper(names []string) []string {
	result := make([]string, 0, len(names))
	for _, n := range names {
		result = append(result, strings.ToUpper(n))
	}

	return result
}
