// Package main is the entry point for the driftctl CLI binary.
package main

import (
	"os"

	cli "driftline/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
