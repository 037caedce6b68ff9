package schedule

import (
	"context"

	"github.com/Guocork/sui/internal/logger"
	"github.com/Guocork/sui/internal/types"
)

// Executed pairs a transaction with the effects of its execution.
type Executed struct {
	Tx      *types.Transaction
	Effects *types.Effects
}

// AssignFromEffects derives assignments from already-known effects, as when
// replaying checkpoints. It still bootstraps every touched lineage: the
// first touch in an epoch must read the durable version whichever path
// gets there first. The effects are trusted; no lamport version is computed.
func AssignFromEffects(ctx context.Context, store EpochStore, executed []Executed) (AssignedTxAndVersions, error) {
	var keys []types.LineageKey
	for _, e := range executed {
		keys = append(keys, e.Tx.SharedLineageKeys()...)
	}

	if _, err := getOrInitVersions(ctx, store, keys); err != nil {
		return nil, err
	}

	assigned := make(AssignedTxAndVersions, 0, len(executed))
	for _, e := range executed {
		key := e.Tx.Key()
		versions := versionsFromEffects(key, e.Tx, e.Effects)

		logger.Debug("assigned shared object versions from effects",
			"tx", key,
			"versions", versions,
		)

		assigned = append(assigned, TxAssignment{Key: key, Versions: versions})
	}

	return assigned, nil
}

// versionsFromEffects pairs each declared shared input with the version
// its effects recorded.
func versionsFromEffects(key types.TransactionKey, tx *types.Transaction, effects *types.Effects) AssignedVersions {
	if digest, _ := key.AsDigest(); effects.TransactionDigest != digest {
		invariantf("%s: effects belong to transaction %s", key, effects.TransactionDigest)
	}

	declared := make(map[types.ObjectID]bool, len(tx.Shared))
	versions := make(AssignedVersions, 0, len(tx.Shared))

	for _, in := range tx.Shared {
		v, ok := effects.SharedVersion(in.ID)
		if !ok {
			invariantf("%s: effects missing shared input %s", key, in.LineageKey())
		}

		declared[in.ID] = true
		versions = append(versions, types.LineageVersion{Key: in.LineageKey(), Version: v})
	}

	for _, k := range effects.InputShared {
		if !declared[k.ID] {
			invariantf("%s: transaction must have all inputs from effects, missing %s", key, k.ID)
		}
	}

	return versions
}
