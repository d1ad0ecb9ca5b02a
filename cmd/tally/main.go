// Package main is the entry point for the tally CLI.
package main

import (
	"os"

	"github.com/mrz1836/tally/internal/cli"
)

// Set by the linker: -ldflags "-X main.version=... -X main.commit=... -X main.date=..."
//
//nolint:gochecknoglobals // populated at link time
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	cli.SetBuildInfo(cli.BuildInfo{Version: version, Commit: commit, Date: date})
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
