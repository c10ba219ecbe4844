package main

import (
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/snowusage/snowusage/cmd"
	"github.com/snowusage/snowusage/pkg/config"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = ""
)

func main() {
	isDebug := false
	color.NoColor = false

	versionCommand := cmd.VersionCmd(commit)

	cli.VersionPrinter = func(cCtx *cli.Context) {
		err := versionCommand.Action(cCtx)
		if err != nil {
			panic(err)
		}
	}

	app := &cli.App{
		Name:     "snowusage",
		Version:  version,
		Usage:    "Find out which Snowflake tables are used, by whom and by what",
		Compiled: time.Now(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "debug",
				Value:       false,
				Usage:       "show debug information",
				Destination: &isDebug,
			},
			&cli.StringFlag{
				Name:    "config-file",
				Value:   config.DefaultFileName,
				Usage:   "the path to the config file",
				EnvVars: []string{"SNOWUSAGE_CONFIG_FILE"},
			},
		},
		Commands: []*cli.Command{
			cmd.Schema(&isDebug),
			cmd.Deps(&isDebug),
			cmd.Graph(&isDebug),
			cmd.Hits(&isDebug),
			cmd.History(&isDebug),
			cmd.Usage(&isDebug),
			cmd.Employees(&isDebug),
			cmd.Commands(),
			versionCommand,
		},
	}

	_ = app.Run(os.Args)
}
