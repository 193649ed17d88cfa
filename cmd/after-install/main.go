// Package main provides the after-install deployment hook.
//
// It runs once the application files are in place: every script matching
// app.scripts_glob under app.root is made executable and the work
// directories (logs, temp) are created.
//
// Usage:
//
//	after-install [--config file] [--root dir]
package main

import (
	"os"

	"github.com/artpar/stackhooks/internal/cli"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(cli.Execute(cli.AfterInstall(Version, BuildTime), os.Args[1:], os.Stdout, os.Stderr))
}
