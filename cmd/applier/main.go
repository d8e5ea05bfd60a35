package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "ipo-applier"
	app.Usage = "Apply for open MeroShare IPOs on behalf of every configured account"
	app.Version = "1.0.0"
	app.Action = runCommand
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "Perform one run over all accounts and exit",
			Action: runCommand,
		},
		{
			Name:   "serve",
			Usage:  "Serve the report API and trigger runs on RUN_SCHEDULE",
			Action: serveCommand,
		},
		{
			Name:      "encrypt",
			Usage:     "Print an encrypted secret for use in the member list",
			ArgsUsage: "<value>",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "account, a", Usage: "member name the secret belongs to"},
			},
			Action: encryptCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
