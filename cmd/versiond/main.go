package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Guocork/sui/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run() error {
	cfg, err := parseFlags()
	if err != nil {
		return fmt.Errorf("parse flags:\n%w", err)
	}

	logger.Init(cfg.LogLevel)

	if cfg.BatchPath == "" {
		return fmt.Errorf("-batch is required")
	}

	e, err := NewEngine(cfg)
	if err != nil {
		return fmt.Errorf("create engine:\n%w", err)
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	return e.Run(ctx)
}
