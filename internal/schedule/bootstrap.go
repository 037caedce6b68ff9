package schedule

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/Guocork/sui/internal/types"
)

// EpochStore is the per-epoch state version assignment reads from.
type EpochStore interface {
	EpochStartConfig() *types.EpochStartConfig
	AccumulatorsEnabled() bool

	// GetOrInitNextObjectVersions returns the next version of each key,
	// initializing lineages first touched in this epoch from durable storage.
	GetOrInitNextObjectVersions(ctx context.Context, keys []types.LineageKey) (map[types.LineageKey]types.Version, error)
}

// getOrInitVersions bootstraps the table for the sorted, de-duplicated keys.
func getOrInitVersions(ctx context.Context, store EpochStore, keys []types.LineageKey) (map[types.LineageKey]types.Version, error) {
	keys = types.SortedUniqueLineageKeys(keys)

	table, err := store.GetOrInitNextObjectVersions(ctx, keys)
	if err != nil {
		return nil, errors.Wrap(err, "init next object versions")
	}

	return table, nil
}
