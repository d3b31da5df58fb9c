// plantctl validates and publishes plant pot control requests.
//
//	plantctl validate request.json
//	plantctl send --device $POT --actuator pump --command on --volume 140
//	plantctl send --device $POT --actuator light --command on --start now --duration PT2H --repeat P1D
package main

import (
	"fmt"
	"os"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newApp(os.Stdout, dialMQTT).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "plantctl: %v\n", err)
		os.Exit(1)
	}
}
