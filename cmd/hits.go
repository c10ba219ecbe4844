package cmd

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/snowusage/snowusage/pkg/bigquery"
	"github.com/snowusage/snowusage/pkg/config"
	"github.com/snowusage/snowusage/pkg/date"
	"github.com/snowusage/snowusage/pkg/gcs"
	"github.com/snowusage/snowusage/pkg/history"
	"github.com/snowusage/snowusage/pkg/report"
	"github.com/snowusage/snowusage/pkg/usage"
	"github.com/urfave/cli/v2"
)

const defaultReportDays = 30

func Hits(isDebug *bool) *cli.Command {
	return &cli.Command{
		Name:  "hits",
		Usage: "summarize how often each cached table was queried, per query type category",
		Flags: []cli.Flag{
			startDateFlag,
			endDateFlag,
			&cli.StringFlag{
				Name:  "sort",
				Usage: "the query type category to order by, defaults to the total",
			},
			&cli.BoolFlag{
				Name:  "unused",
				Usage: "only list the tables nothing reads, writes or depends on",
			},
			&cli.BoolFlag{
				Name:  "check-unloaded",
				Usage: "look up the tables unloaded into the reports bucket",
			},
		},
		Action: func(c *cli.Context) error {
			logger := makeLogger(*isDebug)

			cfg, err := loadConfig(c)
			if err != nil {
				return exitWithError("Failed to load the config", err)
			}

			start, end, err := reportPeriod(c.String("start-date"), c.String("end-date"), now())
			if err != nil {
				return exitWithError("Invalid period", err)
			}

			cat, err := loadCatalog(cfg)
			if err != nil {
				return exitWithError("Failed to load the catalog", err)
			}

			g, err := dependencyGraph(cfg, cat, logger)
			if err != nil {
				return exitWithError("Failed to build the dependency graph", err)
			}

			deps, err := cachedDependencies(cfg)
			if err != nil {
				return exitWithError("Failed to read the dependency cache", err)
			}

			bq, err := bigquery.NewDB(c.Context, &cfg.GoogleCloud.BigQuery)
			if err != nil {
				return exitWithError("Failed to connect to BigQuery", err)
			}
			defer bq.Close()

			repo := usageRepository(cfg, bq)
			hits, err := repo.HitBreakdown(c.Context, start, end)
			if err != nil {
				return exitWithError("Failed to fetch the table hits", err)
			}
			logger.Debugf("fetched hits of %d tables between %s and %s", len(hits), start.Format(date.DayFormat), end.Format(date.DayFormat))

			var unloaded []string
			if c.Bool("check-unloaded") {
				unloaded, err = unloadedTables(c.Context, cfg)
				if err != nil {
					return exitWithError("Failed to list the unloaded tables", err)
				}
			}

			tax := cfg.Taxonomy()
			summaries := report.Summarize(cat.tables, hits, g.Degrees(cat.tables), unloaded, deps, tax)

			if c.Bool("unused") {
				for _, name := range report.Unused(summaries) {
					infoPrinter.Println(name)
				}
				return nil
			}

			if err := sortSummaries(summaries, c.String("sort"), tax); err != nil {
				return exitWithError("Invalid sort order", err)
			}

			t := newTable(summaryHeader(tax))
			for _, s := range summaries {
				t.AppendRow(summaryRow(s, tax))
			}
			t.Render()

			return nil
		},
	}
}

func usageRepository(cfg *config.Config, querier bigquery.Selector) *usage.Repository {
	return &usage.Repository{
		Querier:    querier,
		Dataset:    cfg.GoogleCloud.BigQuery.Dataset,
		Taxonomy:   cfg.Taxonomy(),
		ExcludeETL: cfg.Analysis.ExcludeETL,
		ETLUser:    cfg.Analysis.ETLUser,
	}
}

func unloadedTables(ctx context.Context, cfg *config.Config) ([]string, error) {
	client, err := gcs.NewClient(ctx, cfg.GoogleCloud.ReportsBucket)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	return gcs.UnloadedTables(ctx, client, cfg.GoogleCloud.ReportsPrefix)
}

// reportPeriod resolves the report bounds. Without a start date the period covers the
// last defaultReportDays days up to the end date.
func reportPeriod(start, end string, today time.Time) (time.Time, time.Time, error) {
	startDay, endDay, err := history.ResolveDates(start, end, today)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if start == "" {
		startDay = endDay.AddDate(0, 0, -(defaultReportDays - 1))
	}

	return startDay, endDay, nil
}

func sortSummaries(summaries []report.TableSummary, category string, tax usage.Taxonomy) error {
	if category == "" {
		sort.SliceStable(summaries, func(i, j int) bool {
			return summaries[i].Total() > summaries[j].Total()
		})
		return nil
	}

	if _, ok := tax.Category(category); !ok {
		return errors.Errorf("unknown query type group '%s', expected one of %v", category, tax.Names())
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Categories[category] > summaries[j].Categories[category]
	})
	return nil
}

func summaryHeader(tax usage.Taxonomy) table.Row {
	header := table.Row{"Table"}
	for _, name := range tax.Names() {
		header = append(header, strings.ToUpper(name))
	}

	return append(header, "Total", "Degree", "Unloaded", "Jobs")
}

func summaryRow(s report.TableSummary, tax usage.Taxonomy) table.Row {
	row := table.Row{s.Table}
	for _, name := range tax.Names() {
		row = append(row, s.Categories[name])
	}

	unloaded := ""
	if s.Unloaded {
		unloaded = "yes"
	}

	return append(row, s.Total(), s.Degree, unloaded, len(s.Jobs))
}
