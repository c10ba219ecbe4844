package cmd

import (
	"fmt"
	"html"

	"github.com/snowusage/snowusage/pkg/depgraph"
	"github.com/snowusage/snowusage/pkg/directory"
	"github.com/snowusage/snowusage/pkg/mail"
	"github.com/urfave/cli/v2"
	"github.com/xlab/treeprint"
)

func Employees(isDebug *bool) *cli.Command {
	return &cli.Command{
		Name:  "employees",
		Usage: "print the reporting lines of the employees in the company directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "root",
				Usage: "only print the people reporting to this cn, directly or not",
			},
			&cli.StringFlag{
				Name:  "mail-to",
				Usage: "comma separated recipients to mail the report to",
			},
			&cli.StringFlag{
				Name:  "bcc",
				Usage: "comma separated blind copy recipients",
			},
			&cli.StringFlag{
				Name:  "subject",
				Usage: "subject of the mailed report",
				Value: "Snowflake users by manager",
			},
		},
		Action: func(c *cli.Context) error {
			logger := makeLogger(*isDebug)

			cfg, err := loadConfig(c)
			if err != nil {
				return exitWithError("Failed to load the config", err)
			}

			client, err := directory.Dial(cfg.Directory)
			if err != nil {
				return exitWithError("Failed to connect to the directory", err)
			}
			defer client.Close()

			users, err := client.Users()
			if err != nil {
				return exitWithError("Failed to list the directory users", err)
			}

			employees := directory.Employees(users, cfg.Directory.Domain)
			logger.Debugf("found %d employees among %d directory entries", len(employees), len(users))

			tree := orgTree(directory.OrgGraph(employees), employees, c.String("root"))
			output := tree.String()
			fmt.Println(output)

			to := mail.SplitAddresses(c.String("mail-to"))
			if len(to) == 0 {
				return nil
			}

			sender := mail.NewSender(cfg.Mail)
			err = sender.Deliver(mail.Message{
				Subject:  c.String("subject"),
				HTMLBody: "<pre>" + html.EscapeString(output) + "</pre>",
				To:       to,
				Bcc:      mail.SplitAddresses(c.String("bcc")),
			})
			if err != nil {
				return exitWithError("Failed to mail the report", err)
			}

			successPrinter.Printf("Mailed the report to %d recipients\n", len(to))
			return nil
		},
	}
}

// orgTree renders the reporting lines below root, or below every person without a
// manager when root is empty.
func orgTree(g *depgraph.Graph, employees []directory.User, root string) treeprint.Tree {
	byCN := make(map[string]directory.User, len(employees))
	for _, e := range employees {
		byCN[e.CN] = e
	}

	label := func(cn string) string {
		if e, ok := byCN[cn]; ok && e.Email != "" {
			return fmt.Sprintf("%s %s", cn, faint(e.Email))
		}
		return cn
	}

	seen := make(map[string]bool)
	var addReports func(branch treeprint.Tree, cn string)
	addReports = func(branch treeprint.Tree, cn string) {
		seen[cn] = true
		for _, report := range g.Downstream(cn) {
			if seen[report] {
				continue
			}
			if len(g.Downstream(report)) == 0 {
				branch.AddNode(label(report))
				seen[report] = true
				continue
			}
			addReports(branch.AddBranch(label(report)), report)
		}
	}

	if root != "" {
		tree := treeprint.NewWithRoot(label(root))
		addReports(tree, root)
		return tree
	}

	tree := treeprint.NewWithRoot(fmt.Sprintf("%d employees", len(employees)))
	for _, cn := range g.Nodes() {
		if len(g.Upstream(cn)) > 0 || seen[cn] {
			continue
		}
		addReports(tree.AddBranch(label(cn)), cn)
	}

	return tree
}
