package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/snowusage/snowusage/pkg/report"
	"github.com/snowusage/snowusage/pkg/snowflake"
	"github.com/urfave/cli/v2"
)

func Schema(isDebug *bool) *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "manage the local snapshot of the Snowflake tables and views",
		Subcommands: []*cli.Command{
			{
				Name:  "refresh",
				Usage: "back up the cached schema and fetch the current tables and views from Snowflake",
				Action: func(c *cli.Context) error {
					logger := makeLogger(*isDebug)

					cfg, err := loadConfig(c)
					if err != nil {
						return exitWithError("Failed to load the config", err)
					}

					db, err := openSnowflake(cfg)
					if err != nil {
						return exitWithError("Failed to connect to Snowflake", err)
					}
					defer db.Close()

					cache := schemaCache(cfg)
					backups, err := cache.Backup(now())
					switch {
					case errors.Is(err, os.ErrNotExist):
						logger.Debug("no cached schema to back up yet")
					case err != nil:
						return exitWithError("Failed to back up the cached schema", err)
					default:
						for _, b := range backups {
							logger.Infof("backed up %s", b)
						}
					}

					tables, views, err := snowflake.RefreshSchema(c.Context, db, cache, cfg.Snowflake.Database, cfg.Snowflake.Schema, cfg.Analysis.BISchema)
					if err != nil {
						return exitWithError("Failed to refresh the schema", err)
					}

					successPrinter.Printf("Cached %d tables and %d views in %s\n", len(tables), len(views), cfg.Paths.CacheDir)
					return nil
				},
			},
			{
				Name:      "view",
				Usage:     "print the cached definition of a view",
				ArgsUsage: "[view name]",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return exitWithError("Failed to load the config", err)
					}

					views, err := schemaCache(cfg).Views()
					if err != nil {
						return exitWithError("Failed to read the cached views", err)
					}

					name := c.Args().Get(0)
					text, ok := report.ViewDefinition(views, name)
					if !ok {
						errorPrinter.Printf("View '%s' is not in the cache.\n", name)
						return cli.Exit("", 1)
					}

					infoPrinter.Println(text)
					return nil
				},
			},
		},
	}
}
