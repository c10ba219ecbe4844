package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/snowusage/snowusage/pkg/config"
	"github.com/snowusage/snowusage/pkg/depgraph"
	"github.com/snowusage/snowusage/pkg/logger"
	"github.com/snowusage/snowusage/pkg/path"
	"github.com/snowusage/snowusage/pkg/rollup"
	"github.com/snowusage/snowusage/pkg/yamldeps"
	"github.com/urfave/cli/v2"
	"github.com/xlab/treeprint"
)

func Graph(isDebug *bool) *cli.Command {
	return &cli.Command{
		Name:  "graph",
		Usage: "show how tables, views and rollups depend on each other",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "table",
				Usage: "print the dependency tree of a single table or view",
			},
			&cli.BoolFlag{
				Name:  "full",
				Usage: "with --table, include indirect dependencies as well",
			},
			&cli.BoolFlag{
				Name:  "with-jobs",
				Usage: "include the ETL job configs found by the deps command",
			},
			&cli.IntFlag{
				Name:  "top",
				Usage: "number of most connected tables to list",
				Value: 20,
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

			g, err := dependencyGraph(cfg, cat, logger)
			if err != nil {
				return exitWithError("Failed to build the dependency graph", err)
			}

			if c.Bool("with-jobs") {
				deps, err := cachedDependencies(cfg)
				if err != nil {
					return exitWithError("Failed to read the dependency cache", err)
				}
				g = depgraph.Union(g, depgraph.BuildEdgeGraph(yamldeps.JobEdges(deps)))
			}

			if name := strings.ToUpper(c.String("table")); name != "" {
				if !g.HasNode(name) {
					warningPrinter.Printf("'%s' has no known dependencies.\n", name)
					return nil
				}
				fmt.Println(lineageTree(g, name, c.Bool("full")).String())
				return nil
			}

			t := newTable(table.Row{"Table", "Degree"})
			for _, row := range topDegrees(g.Degrees(cat.tables), c.Int("top")) {
				t.AppendRow(table.Row{row.name, row.degree})
			}
			t.Render()

			printCycles(warningPrinter, g.Cycles())
			return nil
		},
	}
}

// dependencyGraph joins the view graph of the catalog with the rollup graph of the ETL
// repository, when it is checked out.
func dependencyGraph(cfg *config.Config, cat *catalog, logger logger.Logger) (*depgraph.Graph, error) {
	views := depgraph.BuildViewGraph(cat.views, cat.matcher)
	logger.Debugf("view graph has %d nodes", views.Len())

	repo := cfg.Paths.ETLRepo()
	if !path.DirExists(fs, repo) {
		logger.Warnf("ETL repository not found at %s, rollups are left out", repo)
		return views, nil
	}
	logRevision(logger, repo)

	rollups, err := rollup.LoadGraph(fs, repo)
	if err != nil {
		return nil, err
	}
	logger.Debugf("rollup graph has %d nodes", rollups.Len())

	return depgraph.Union(views, rollups), nil
}

type degreeRow struct {
	name   string
	degree int
}

// topDegrees orders by degree, highest first, then by name. A non-positive limit keeps
// every row.
func topDegrees(degrees map[string]int, limit int) []degreeRow {
	rows := make([]degreeRow, 0, len(degrees))
	for name, degree := range degrees {
		rows = append(rows, degreeRow{name: name, degree: degree})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].degree != rows[j].degree {
			return rows[i].degree > rows[j].degree
		}
		return rows[i].name < rows[j].name
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	return rows
}

func lineageTree(g *depgraph.Graph, name string, full bool) treeprint.Tree {
	upstream, downstream := g.Upstream(name), g.Downstream(name)
	if full {
		upstream, downstream = g.FullUpstream(name), g.FullDownstream(name)
	}

	tree := treeprint.NewWithRoot(name)
	for _, section := range []struct {
		title string
		names []string
	}{
		{"upstream", upstream},
		{"downstream", downstream},
	} {
		branch := tree.AddBranch(fmt.Sprintf("%s (%d)", section.title, len(section.names)))
		for _, n := range section.names {
			branch.AddNode(n)
		}
	}

	return tree
}

func printCycles(p printer, cycles [][]string) {
	for _, cycle := range cycles {
		p.Printf("Circular dependency: %s\n", strings.Join(cycle, " <-> "))
	}
}
