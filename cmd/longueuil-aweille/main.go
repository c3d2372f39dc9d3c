// Package main provides the longueuil-aweille registration bot. It waits for
// a Longueuil municipal activity to open and registers the configured
// participants as soon as a spot can be taken.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aweille/longueuil-aweille/pkg/cli"
)

func main() {
	// Create context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, closing browser...")
		cancel()
	}()

	os.Exit(cli.Run(ctx, os.Args))
}
