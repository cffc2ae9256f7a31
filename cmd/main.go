// Package main is the entry point for the secretshield CLI.
package main

import (
	"os"

	"github.com/security-cli/secretshield/cmd/cli"
)

// Version information (set via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, buildDate)
	os.Exit(cli.Execute())
}
