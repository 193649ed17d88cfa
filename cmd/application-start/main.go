// Package main provides the application-start deployment hook.
//
// It restarts the container stack described by stack.file in stack.dir:
// compose down, compose up -d, then lists the running containers.
//
// Usage:
//
//	application-start [--config file] [--dir dir] [--file name]
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
	os.Exit(cli.Execute(cli.ApplicationStart(Version, BuildTime), os.Args[1:], os.Stdout, os.Stderr))
}
