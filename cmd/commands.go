package cmd

import (
	"github.com/snowusage/snowusage/pkg/report"
	"github.com/urfave/cli/v2"
)

func Commands() *cli.Command {
	return &cli.Command{
		Name:  "commands",
		Usage: "print the Snowflake statements that clean up tables",
		Subcommands: []*cli.Command{
			{
				Name:      "drop",
				Usage:     "print drop statements for the given tables and views",
				ArgsUsage: "[table or view names...]",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						errorPrinter.Println("Please give at least one table or view to drop.")
						return cli.Exit("", 1)
					}

					cfg, err := loadConfig(c)
					if err != nil {
						return exitWithError("Failed to load the config", err)
					}

					views, err := schemaCache(cfg).Views()
					if err != nil {
						return exitWithError("Failed to read the cached views", err)
					}

					printStatements(report.DropCommands(upper(c.Args().Slice()), views))
					return nil
				},
			},
			{
				Name:      "retention",
				Usage:     "print statements that shorten the time travel retention of tables",
				ArgsUsage: "[table names...]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "days",
						Usage: "retention in days, defaults to the configured retention",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return exitWithError("Failed to load the config", err)
					}

					tables := upper(c.Args().Slice())
					if len(tables) == 0 {
						tables, err = schemaCache(cfg).Tables()
						if err != nil {
							return exitWithError("Failed to read the cached tables", err)
						}
					}

					days := c.Int("days")
					if days == 0 {
						days = cfg.Analysis.RetentionDays
					}

					printStatements(report.RetentionCommands(tables, days))
					return nil
				},
			},
		},
	}
}
