package main

import (
	"flag"
	"log/slog"
	"time"

	"github.com/Guocork/sui/internal/logger"
)

// Config holds the command configuration.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string

	// InMemory keeps all state in memory; DataPath is ignored.
	InMemory bool

	// BatchPath is the YAML batch file to assign.
	BatchPath string

	// SnapshotPath, if set, receives the epoch's table after the batch.
	SnapshotPath string

	// RestorePath, if set, is a snapshot imported before the batch runs.
	RestorePath string

	// CacheSize is the storage block cache size in bytes. Zero keeps the default.
	CacheSize int64

	// SyncInterval is the period of background WAL syncs. Zero keeps the default.
	SyncInterval time.Duration

	// Prune drops the tables of epochs before the batch's epoch.
	Prune bool

	// Timeout bounds the bootstrap reads of one batch.
	Timeout time.Duration

	// LogLevel is the minimum level written.
	LogLevel slog.Level
}

// parseFlags parses command-line flags into Config.
func parseFlags() (*Config, error) {
	cfg := &Config{}

	var level string

	flag.StringVar(&cfg.DataPath, "data", "./data", "Data directory path")
	flag.BoolVar(&cfg.InMemory, "memory", false, "Keep state in memory only")
	flag.StringVar(&cfg.BatchPath, "batch", "", "Batch YAML file (required)")
	flag.StringVar(&cfg.SnapshotPath, "snapshot", "", "Write the epoch table snapshot to this path")
	flag.StringVar(&cfg.RestorePath, "restore", "", "Import an epoch table snapshot before assigning")
	flag.Int64Var(&cfg.CacheSize, "cache-size", 32<<20, "Storage block cache size in bytes")
	flag.DurationVar(&cfg.SyncInterval, "sync-interval", 100*time.Millisecond, "Interval between WAL syncs")
	flag.BoolVar(&cfg.Prune, "prune", false, "Drop tables of earlier epochs")
	flag.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "Bootstrap timeout per batch")
	flag.StringVar(&level, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	var err error
	if cfg.LogLevel, err = logger.ParseLevel(level); err != nil {
		return nil, err
	}

	return cfg, nil
}
