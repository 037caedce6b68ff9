package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Guocork/sui/internal/epoch"
	"github.com/Guocork/sui/internal/fixture"
	"github.com/Guocork/sui/internal/logger"
	"github.com/Guocork/sui/internal/objstore"
	"github.com/Guocork/sui/internal/schedule"
	"github.com/Guocork/sui/internal/snapshot"
	"github.com/Guocork/sui/internal/storage"
)

// Engine assigns versions to batch files against persistent state.
type Engine struct {
	cfg     *Config
	storage *storage.Storage
	objects *objstore.Store
}

// NewEngine opens the storage described by cfg.
func NewEngine(cfg *Config) (*Engine, error) {
	e := &Engine{cfg: cfg}

	if err := e.initStorage(); err != nil {
		return nil, err
	}

	e.objects = objstore.New(e.storage)

	return e, nil
}

// storageOptions maps the configured tuning onto storage options.
func (e *Engine) storageOptions() []storage.Option {
	var opts []storage.Option

	if e.cfg.CacheSize != 0 {
		opts = append(opts, storage.WithCacheSize(e.cfg.CacheSize))
	}
	if e.cfg.SyncInterval != 0 {
		opts = append(opts, storage.WithSyncInterval(e.cfg.SyncInterval))
	}

	return opts
}

// initStorage initializes the Pebble storage.
func (e *Engine) initStorage() error {
	opts := e.storageOptions()

	if e.cfg.InMemory {
		db, err := storage.New("", append(opts, storage.WithInMemory())...)
		if err != nil {
			return fmt.Errorf("init storage:\n%w", err)
		}

		e.storage = db
		return nil
	}

	if err := os.MkdirAll(e.cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("create data directory:\n%w", err)
	}

	db, err := storage.New(filepath.Join(e.cfg.DataPath, "db"), opts...)
	if err != nil {
		return fmt.Errorf("init storage:\n%w", err)
	}

	e.storage = db

	return nil
}

// Run loads the batch file, assigns its versions and records the outcome.
// Batches with effects are replayed; others go through the consensus path
// and their final table is committed.
func (e *Engine) Run(ctx context.Context) error {
	start := time.Now()

	batch, err := fixture.Load(e.cfg.BatchPath)
	if err != nil {
		return fmt.Errorf("load batch:\n%w", err)
	}

	if err := e.objects.PutBatch(batch.Objects); err != nil {
		return fmt.Errorf("seed objects:\n%w", err)
	}

	stored, err := e.objects.Export()
	if err != nil {
		return fmt.Errorf("read objects:\n%w", err)
	}

	store, err := epoch.Open(e.storage, batch.Config, e.objects)
	if err != nil {
		return fmt.Errorf("open epoch store:\n%w", err)
	}

	if e.cfg.RestorePath != "" {
		if err := e.restore(store); err != nil {
			return err
		}
	}

	logger.Info("assigning batch",
		"epoch", store.Epoch(),
		"objects", len(stored),
		"items", len(batch.Items),
		"cancelled", len(batch.Cancelled),
		"replay", batch.HasEffects(),
	)

	if batch.HasEffects() && len(batch.Cancelled) > 0 {
		logger.Warn("cancellations are ignored when replaying effects", "cancelled", len(batch.Cancelled))
	}

	var assigned schedule.AssignedTxAndVersions

	if batch.HasEffects() {
		assigned, err = schedule.AssignFromEffects(ctx, store, batch.Executed)
		if err != nil {
			return fmt.Errorf("assign from effects:\n%w", err)
		}
	} else {
		result, err := schedule.AssignFromConsensus(ctx, store, batch.Items, batch.Cancelled)
		if err != nil {
			return fmt.Errorf("assign from consensus:\n%w", err)
		}

		if err := store.CommitNextVersions(result.NextVersions); err != nil {
			return fmt.Errorf("commit next versions:\n%w", err)
		}

		assigned = result.Assigned
	}

	sentinels := 0
	for i, a := range assigned {
		logger.Info("assigned", "item", batch.Names[i], "key", a.Key, "versions", formatVersions(a.Versions))
		sentinels += countCancelled(a.Versions)
	}

	if e.cfg.Prune {
		if err := epoch.Prune(e.storage, store.Epoch()); err != nil {
			return fmt.Errorf("prune epochs:\n%w", err)
		}
	}

	if e.cfg.SnapshotPath != "" {
		if err := e.writeSnapshot(store); err != nil {
			return err
		}
	}

	logger.Info("batch done", "lineages", len(store.Export()), "cancelled_versions", sentinels, logger.Timed(start))

	return nil
}

// restore imports the snapshot at RestorePath into store.
func (e *Engine) restore(store *epoch.Store) error {
	data, err := os.ReadFile(e.cfg.RestorePath)
	if err != nil {
		return fmt.Errorf("read snapshot:\n%w", err)
	}

	snap, err := snapshot.Parse(data)
	if err != nil {
		return fmt.Errorf("parse snapshot:\n%w", err)
	}

	if snap.Epoch != store.Epoch() {
		return fmt.Errorf("snapshot is for epoch %d, batch is for epoch %d", snap.Epoch, store.Epoch())
	}

	if err := store.Import(snap.Entries); err != nil {
		return fmt.Errorf("import snapshot:\n%w", err)
	}

	logger.Info("restored snapshot", "epoch", snap.Epoch, "entries", len(snap.Entries))

	return nil
}

// writeSnapshot writes the epoch's table to SnapshotPath.
func (e *Engine) writeSnapshot(store *epoch.Store) error {
	data, err := snapshot.Create(store.Epoch(), store.Export())
	if err != nil {
		return fmt.Errorf("create snapshot:\n%w", err)
	}

	if err := os.WriteFile(e.cfg.SnapshotPath, data, 0644); err != nil {
		return fmt.Errorf("write snapshot:\n%w", err)
	}

	logger.Info("wrote snapshot", "path", e.cfg.SnapshotPath, "bytes", len(data))

	return nil
}

// Close closes the storage.
func (e *Engine) Close() {
	if e.storage != nil {
		e.storage.Close()
	}
}

// formatVersions renders assigned versions as id@initial=version pairs.
func formatVersions(versions schedule.AssignedVersions) string {
	parts := make([]string, len(versions))
	for i, v := range versions {
		parts[i] = v.Key.String() + "=" + v.Version.String()
	}

	return "[" + strings.Join(parts, " ") + "]"
}

// countCancelled counts the sentinel versions among assignments.
func countCancelled(versions schedule.AssignedVersions) int {
	n := 0
	for _, v := range versions {
		if v.Version.IsCancelled() {
			n++
		}
	}

	return n
}
