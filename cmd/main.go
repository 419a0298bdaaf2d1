package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/pulse/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})
	app := runner.command()

	err := app.Run(context.Background(), os.Args)
	runner.Close()

	switch {
	case err == nil:
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrTokenExpired):
		fmt.Fprintln(os.Stderr, "Not signed in to Spotify. Run `pulse auth login` first.")
		os.Exit(1)
	case errors.Is(err, shared.ErrNotImplemented):
		logger.Warn("not implemented")
		os.Exit(0)
	default:
		logger.Fatalf("application error: %v", err)
	}
}
