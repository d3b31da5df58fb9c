package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/Mlodko/iot2025-plants/internal/control"
)

var validateFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "file, f",
		Usage: "read the payload from `FILE` (- for stdin)",
	},
}

func validate(ctx *cli.Context, out io.Writer) error {
	path := ctx.String("file")
	if path == "" {
		path = ctx.Args().First()
	}
	if path == "" {
		return cli.NewExitError("no payload file given", 2)
	}

	data, err := readPayload(path, os.Stdin)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	req, err := control.Decode(data)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("invalid: %v", err), 1)
	}
	fmt.Fprintf(out, "valid: %s\n", describe(req))
	return nil
}

func readPayload(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	return data, nil
}

// describe renders a request for humans.
func describe(req control.Request) string {
	s := req.Actuator() + " " + string(req.Cmd())
	switch r := req.(type) {
	case control.PumpRequest:
		if r.Command == control.CommandOn {
			s += fmt.Sprintf(" %d ml", r.VolumeML)
		}
		if r.Schedule != nil {
			s += " at " + r.Schedule.Start.String()
			if r.Schedule.Repeat > 0 {
				s += " every " + control.FormatDuration(r.Schedule.Repeat)
			}
		}
	case control.LightRequest:
		if sch := r.Schedule; sch != nil {
			s += " from " + sch.Start.String()
			switch {
			case sch.End != nil:
				s += " until " + sch.End.Format(time.RFC3339)
			case sch.Duration > 0:
				s += " for " + control.FormatDuration(sch.Duration)
			}
			if sch.Repeat > 0 {
				s += " every " + control.FormatDuration(sch.Repeat)
			}
		}
	}
	return s
}
