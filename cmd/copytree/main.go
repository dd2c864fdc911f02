// Package main is the entry point for the copytree CLI tool.
package main

import (
	"os"

	"github.com/copytree/copytree/internal/buildinfo"
	"github.com/copytree/copytree/internal/cli"
)

// version, commit, date are package-level vars so existing -ldflags build
// scripts keep working; they flow into buildinfo, which is what the rest of
// the CLI actually reads.
var (
	version   = "dev"
	commit    = "none"
	date      = "unknown"
	goVersion = "unknown"
)

func init() {
	buildinfo.Version = version
	buildinfo.Commit = commit
	buildinfo.Date = date
	buildinfo.GoVersion = goVersion
}

func main() {
	os.Exit(cli.Execute())
}
