// Package main is the entry point for the stratus CLI.
//
// stratus runs the cluster lifecycle API (stratus serve) and talks to a
// running server for everything else: creating, scaling, watching and
// terminating clusters, and managing templates, images and plugins.
//
// For detailed usage information, run:
//
//	stratus --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/stratus/cmd/stratus/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
