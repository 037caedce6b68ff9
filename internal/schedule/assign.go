package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/Guocork/sui/internal/logger"
	"github.com/Guocork/sui/internal/types"
)

// AssignFromConsensus assigns shared object versions to a consensus-ordered
// batch. The table is bootstrapped once for every lineage the batch touches,
// then items are processed strictly in the given order: each item may observe
// versions written by the ones before it.
//
// The only error is a storage failure during bootstrap, in which case
// nothing is assigned. Inconsistent batches panic.
func AssignFromConsensus(ctx context.Context, store EpochStore, items []Schedulable, cancelled types.CancelledTxns) (*BatchResult, error) {
	start := time.Now()
	cfg := store.EpochStartConfig()
	log := logger.With("epoch", cfg.Epoch)

	var keys []types.LineageKey
	for _, item := range items {
		if _, ok := item.(AccumulatorSettlement); ok && !store.AccumulatorsEnabled() {
			invariantf("AccumulatorSettlement should not be scheduled when accumulators are disabled")
		}

		for _, in := range item.SharedInputs(cfg) {
			keys = append(keys, in.LineageKey())
		}
	}

	table, err := getOrInitVersions(ctx, store, keys)
	if err != nil {
		return nil, err
	}

	assigned := make(AssignedTxAndVersions, 0, len(items))
	for _, item := range items {
		key := item.Key()
		assigned = append(assigned, TxAssignment{
			Key:      key,
			Versions: assignForItem(log, cfg, item, key, table, cancelled),
		})
	}

	log.Debug("assigned batch versions",
		"items", len(items),
		"lineages", len(table),
		logger.Timed(start),
	)

	return &BatchResult{NextVersions: table, Assigned: assigned}, nil
}

// assignForItem returns the versions item observes and, unless the item is
// cancelled, advances every mutable shared input in table to the item's
// lamport version.
func assignForItem(log *slog.Logger, cfg *types.EpochStartConfig, item Schedulable, key types.TransactionKey, table map[types.LineageKey]types.Version, cancelled types.CancelledTxns) AssignedVersions {
	shared := item.SharedInputs(cfg)
	if len(shared) == 0 {
		return AssignedVersions{}
	}

	reason, isCancelled := cancellation(key, cancelled)

	inputs := item.NonSharedInputKeys()
	inputs = append(inputs, item.ReceivingKeys()...)

	assigned := make(AssignedVersions, 0, len(shared))

	if isCancelled {
		// Cancelled items see sentinels; shared objects do not raise their lamport version.
		for _, in := range shared {
			assigned = append(assigned, types.LineageVersion{
				Key:     in.LineageKey(),
				Version: cancelledVersion(reason, in.ID),
			})
		}
	} else {
		for _, in := range shared {
			observed, ok := table[in.LineageKey()]
			if !ok {
				invariantf("%s: shared input %s missing from next version table", key, in.LineageKey())
			}

			assigned = append(assigned, types.LineageVersion{Key: in.LineageKey(), Version: observed})
			inputs = append(inputs, types.ObjectKey{ID: in.ID, Version: observed})
		}
	}

	next := lamportVersion(inputs)
	if !next.IsValid() {
		invariantf("%s: assigned version must be valid, got %s", key, next)
	}

	if !isCancelled {
		for _, in := range shared {
			if !in.Mutable {
				continue
			}

			lk := in.LineageKey()
			if _, ok := table[lk]; !ok {
				invariantf("%s: object %s must exist in next version table", key, lk)
			}

			table[lk] = next
		}
	}

	log.Debug("locking shared objects",
		"tx", key,
		"versions", assigned,
		"next", next,
		"cancelled", isCancelled,
	)

	return assigned
}

// cancellation looks up the item's cancellation reason. Only digest-keyed
// items can be cancelled.
func cancellation(key types.TransactionKey, cancelled types.CancelledTxns) (types.CancelReason, bool) {
	digest, ok := key.AsDigest()
	if !ok {
		return types.CancelReason{}, false
	}

	reason, ok := cancelled[digest]
	return reason, ok
}

// cancelledVersion picks the sentinel a cancelled item records for object id.
func cancelledVersion(reason types.CancelReason, id types.ObjectID) types.Version {
	switch reason.Kind {
	case types.CancelCongestion:
		if reason.IsCongested(id) {
			return types.Congested
		}
		return types.CancelledRead

	case types.CancelDkgFailed:
		if id == types.RandomnessStateObjectID {
			return types.RandomnessUnavailable
		}
		return types.CancelledRead

	default:
		invariantf("unknown cancellation kind %d", reason.Kind)
		return types.VersionZero
	}
}

// lamportVersion returns one more than the highest input version.
func lamportVersion(inputs []types.ObjectKey) types.Version {
	versions := make([]types.Version, len(inputs))
	for i, k := range inputs {
		versions[i] = k.Version
	}

	return types.LamportIncrement(versions...)
}
