// Package main provides the quickapply CLI: sign in to a job board once,
// then quick-apply to job URLs with the saved session.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/quickapply/pkg/config"
)

const version = "0.1.0"

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitConfig  = 2
	exitAborted = 3
)

var (
	// errConfig marks configuration problems found at startup.
	errConfig = errors.New("configuration error")

	// errAborted marks an apply batch in which at least one attempt aborted.
	errAborted = errors.New("application aborted")
)

func main() {
	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
		cancel()
	}()

	a := newApp()
	err := newRootCmd(a).ExecuteContext(ctx)
	cancel()
	a.teardown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCodeFor(err))
}

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, config.ErrMissingCredentials), errors.Is(err, errConfig):
		return exitConfig
	case errors.Is(err, errAborted):
		return exitAborted
	default:
		return exitFailure
	}
}
