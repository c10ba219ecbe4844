package cmd

import (
	"slices"
	"strings"

	"github.com/snowusage/snowusage/pkg/bigquery"
	"github.com/snowusage/snowusage/pkg/date"
	"github.com/snowusage/snowusage/pkg/gcs"
	"github.com/snowusage/snowusage/pkg/history"
	"github.com/urfave/cli/v2"
)

func History(isDebug *bool) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "maintain the query and table usage log in BigQuery",
		Subcommands: []*cli.Command{
			{
				Name:  "load",
				Usage: "copy the Snowflake query history of each day into BigQuery and attribute it to the cached tables",
				Flags: []cli.Flag{
					startDateFlag,
					endDateFlag,
					&cli.StringFlag{
						Name:  "table",
						Usage: "only reattribute this table from the query history already in BigQuery",
					},
				},
				Action: func(c *cli.Context) error {
					logger := makeLogger(*isDebug)

					cfg, err := loadConfig(c)
					if err != nil {
						return exitWithError("Failed to load the config", err)
					}

					start, end, err := history.ResolveDates(c.String("start-date"), c.String("end-date"), now())
					if err != nil {
						return exitWithError("Invalid period", err)
					}

					cat, err := loadCatalog(cfg)
					if err != nil {
						return exitWithError("Failed to load the catalog", err)
					}

					override := strings.ToUpper(c.String("table"))
					if override != "" && !slices.Contains(cat.tables, override) {
						warningPrinter.Printf("'%s' is not in the cached catalog, its hits are loaded anyway.\n", override)
					}

					sf, err := openSnowflake(cfg)
					if err != nil {
						return exitWithError("Failed to connect to Snowflake", err)
					}
					defer sf.Close()

					bq, err := bigquery.NewDB(c.Context, &cfg.GoogleCloud.BigQuery)
					if err != nil {
						return exitWithError("Failed to connect to BigQuery", err)
					}
					defer bq.Close()

					storage, err := gcs.NewClient(c.Context, cfg.GoogleCloud.HistoryBucket)
					if err != nil {
						return exitWithError("Failed to connect to Cloud Storage", err)
					}
					defer storage.Close()

					loader := &history.Loader{
						Snowflake:  sf,
						BigQuery:   bq,
						Storage:    storage,
						Matcher:    cat.matcher,
						Fs:         fs,
						Logger:     logger,
						CacheDir:   cfg.Paths.HistoryCacheDir(),
						Dataset:    cfg.GoogleCloud.BigQuery.Dataset,
						Database:   cfg.History.Database,
						BlobPrefix: cfg.History.BlobPrefix,
					}

					infoPrinter.Printf("Loading %s to %s\n", start.Format(date.DayFormat), end.Format(date.DayFormat))
					if err := loader.Run(c.Context, start, end, override); err != nil {
						return exitWithError("Failed to load the query history", err)
					}

					successPrinter.Printf("Loaded %d days\n", len(date.Days(start, end)))
					return nil
				},
			},
		},
	}
}
