package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/snowusage/snowusage/pkg/bigquery"
	"github.com/snowusage/snowusage/pkg/usage"
	"github.com/urfave/cli/v2"
)

const usageDateFormat = "2006-01-02"

func Usage(isDebug *bool) *cli.Command {
	return &cli.Command{
		Name:      "usage",
		Usage:     "show the daily usage of a single table",
		ArgsUsage: "[table name]",
		Flags: []cli.Flag{
			startDateFlag,
			endDateFlag,
			&cli.StringFlag{
				Name:  "group",
				Usage: "break the hits of one query type category down by user",
			},
			&cli.BoolFlag{
				Name:  "text",
				Usage: "print every attributed query with its full text",
			},
		},
		Action: func(c *cli.Context) error {
			logger := makeLogger(*isDebug)

			tableName := strings.ToUpper(c.Args().Get(0))
			if tableName == "" {
				errorPrinter.Println("Please give a table name: snowusage usage <table name>")
				return cli.Exit("", 1)
			}

			cfg, err := loadConfig(c)
			if err != nil {
				return exitWithError("Failed to load the config", err)
			}

			start, end, err := reportPeriod(c.String("start-date"), c.String("end-date"), now())
			if err != nil {
				return exitWithError("Invalid period", err)
			}

			bq, err := bigquery.NewDB(c.Context, &cfg.GoogleCloud.BigQuery)
			if err != nil {
				return exitWithError("Failed to connect to BigQuery", err)
			}
			defer bq.Close()

			repo := usageRepository(cfg, bq)
			logger.Debugf("reading usage of %s from %s", tableName, repo.Dataset)

			switch {
			case c.Bool("text"):
				texts, err := repo.QueryTextHistory(c.Context, tableName)
				if err != nil {
					return exitWithError("Failed to fetch the queries", err)
				}
				for _, q := range texts {
					infoPrinter.Printf("%s %s %s %s\n", q.Date.Format(usageDateFormat), q.User, q.QueryType, faint(q.QueryID))
					color.New(color.FgCyan).Println(q.Text)
					fmt.Println()
				}

			case c.String("group") != "":
				records, err := repo.UsageHistory(c.Context, tableName, c.String("group"), start, end)
				if err != nil {
					return exitWithError("Failed to fetch the usage", err)
				}
				t := newTable(table.Row{"Date", "Query Type", "User", "Hits"})
				for _, r := range records {
					t.AppendRow(table.Row{r.Date.Format(usageDateFormat), r.QueryType, r.User, r.Hits})
				}
				t.Render()

			default:
				counts, err := repo.QueryTypeHistory(c.Context, tableName, start, end)
				if err != nil {
					return exitWithError("Failed to fetch the query type history", err)
				}
				printQueryTypeHistory(counts, cfg.Taxonomy())
			}

			return nil
		},
	}
}

// printQueryTypeHistory prints one row per day and one column per query type. Headers
// carry the chart color of their type.
func printQueryTypeHistory(counts []usage.QueryTypeCount, tax usage.Taxonomy) {
	t := newTable(queryTypeHeader(counts, tax))
	for _, row := range queryTypeRows(counts, tax) {
		t.AppendRow(row)
	}
	t.Render()
}

func queryTypeColumns(counts []usage.QueryTypeCount, tax usage.Taxonomy) []string {
	seen := make(map[string]bool)
	for _, c := range counts {
		seen[c.QueryType] = true
	}

	var columns []string
	for _, subtype := range tax.Subtypes() {
		if seen[subtype] {
			columns = append(columns, subtype)
		}
	}

	return columns
}

func queryTypeHeader(counts []usage.QueryTypeCount, tax usage.Taxonomy) table.Row {
	colors := tax.Colors()
	header := table.Row{"Date"}
	for _, column := range queryTypeColumns(counts, tax) {
		header = append(header, column+" "+faint(colors[column]))
	}

	return header
}

func queryTypeRows(counts []usage.QueryTypeCount, tax usage.Taxonomy) []table.Row {
	columns := queryTypeColumns(counts, tax)

	var days []string
	byDay := make(map[string]map[string]int64)
	for _, c := range counts {
		day := c.Date.Format(usageDateFormat)
		if _, ok := byDay[day]; !ok {
			byDay[day] = make(map[string]int64)
			days = append(days, day)
		}
		byDay[day][c.QueryType] += c.Hits
	}

	rows := make([]table.Row, 0, len(days))
	for _, day := range days {
		row := table.Row{day}
		for _, column := range columns {
			row = append(row, byDay[day][column])
		}
		rows = append(rows, row)
	}

	return rows
}
