package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vaxsync/cmd"
	"vaxsync/internal/core/config"
)

func main() {
	// Load .env file, but don't overwrite system environment variables
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
