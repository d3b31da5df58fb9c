package main

import (
	"fmt"
	"io"

	"github.com/urfave/cli"
)

const description = `plantctl talks to plantpot daemons over MQTT.

   Payloads are checked with the same decoder the daemon uses, so a request
   that validates here is accepted by the pot.`

func newApp(out io.Writer, dial dialFunc) *cli.App {
	app := cli.NewApp()
	app.Name = "plantctl"
	app.HelpName = "plantctl"
	app.Usage = "control smart plant pots"
	app.UsageText = "plantctl <command> [arguments...]"
	app.Description = description
	app.Version = fmt.Sprintf("%s (%s)", version, commit)
	app.Writer = out
	app.Commands = []cli.Command{
		{
			Name:      "validate",
			Aliases:   []string{"v"},
			Usage:     "check a control payload without sending it",
			ArgsUsage: "[file|-]",
			Flags:     validateFlags,
			Action: func(ctx *cli.Context) error {
				return validate(ctx, out)
			},
		},
		{
			Name:      "send",
			Aliases:   []string{"s"},
			Usage:     "build a control request from flags and publish it",
			ArgsUsage: " ",
			Flags:     sendFlags,
			Action: func(ctx *cli.Context) error {
				return send(ctx, out, dial)
			},
		},
	}
	return app
}
