// Package main is the scanfuse command itself.
package main

import (
	"log"
	"os"

	"github.com/ganadobravo/scanfusion/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
