// Package main is the entry point for the upload queue processor.
// It is meant to be started by an external scheduler, one run per invocation.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"uploadqueue/cmd/uploadqueue/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
