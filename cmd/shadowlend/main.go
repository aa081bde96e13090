// Package main is the entry point for the ShadowLend CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shadowlend/shadowlend/internal/cli"
)

// Stamped with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
//
//nolint:gochecknoglobals // linker-stamped build metadata
var (
	version string
	commit  string
	date    string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetBuildInfo(cli.BuildInfo{Version: version, Commit: commit, Date: date})
	err := cli.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
