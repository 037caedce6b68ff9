package schedule

import (
	"slices"

	"github.com/Guocork/sui/internal/types"
)

// Schedulable is a unit of work that consumes shared object versions.
// The set of implementations is closed: Transaction, RandomnessStateUpdate,
// Withdraw and AccumulatorSettlement.
type Schedulable interface {
	// Key returns the item's unique scheduling key.
	Key() types.TransactionKey

	// SharedInputs returns the shared objects the item accesses, in
	// declaration order. System items synthesize theirs from cfg.
	SharedInputs(cfg *types.EpochStartConfig) []types.SharedInput

	// NonSharedInputKeys returns owned and immutable inputs. The caller
	// owns the returned slice.
	NonSharedInputKeys() []types.ObjectKey

	// ReceivingKeys returns objects the item receives.
	ReceivingKeys() []types.ObjectKey

	// AsTx returns the underlying transaction, or nil for system items.
	AsTx() *types.Transaction

	schedulable()
}

// Transaction schedules a certified transaction.
type Transaction struct {
	Tx *types.Transaction
}

func (t Transaction) Key() types.TransactionKey { return t.Tx.Key() }

func (t Transaction) SharedInputs(_ *types.EpochStartConfig) []types.SharedInput {
	return t.Tx.Shared
}

func (t Transaction) NonSharedInputKeys() []types.ObjectKey {
	return slices.Clone(t.Tx.Owned)
}

func (t Transaction) ReceivingKeys() []types.ObjectKey { return t.Tx.Receiving }

func (t Transaction) AsTx() *types.Transaction { return t.Tx }

func (Transaction) schedulable() {}

// RandomnessStateUpdate schedules the randomness round (Epoch, Round).
// It always mutates the randomness object.
type RandomnessStateUpdate struct {
	Epoch uint64
	Round uint64
}

func (r RandomnessStateUpdate) Key() types.TransactionKey {
	return types.RandomnessRoundKey(r.Epoch, r.Round)
}

func (r RandomnessStateUpdate) SharedInputs(cfg *types.EpochStartConfig) []types.SharedInput {
	initial, ok := cfg.RandomnessObjInitialSharedVersion()
	if !ok {
		invariantf("randomness obj initial shared version should be set (epoch %d)", cfg.Epoch)
	}

	return []types.SharedInput{{
		ID:                   types.RandomnessStateObjectID,
		InitialSharedVersion: initial,
		Mutable:              true,
	}}
}

func (RandomnessStateUpdate) NonSharedInputKeys() []types.ObjectKey { return nil }

func (RandomnessStateUpdate) ReceivingKeys() []types.ObjectKey { return nil }

func (RandomnessStateUpdate) AsTx() *types.Transaction { return nil }

func (RandomnessStateUpdate) schedulable() {}

// Withdraw schedules a transaction with withdraw reservations. The
// accumulator version it depends on counts as one of its inputs.
type Withdraw struct {
	Tx                 *types.Transaction
	AccumulatorVersion types.Version
}

func (w Withdraw) Key() types.TransactionKey { return w.Tx.Key() }

func (w Withdraw) SharedInputs(_ *types.EpochStartConfig) []types.SharedInput {
	return w.Tx.Shared
}

func (w Withdraw) NonSharedInputKeys() []types.ObjectKey {
	keys := make([]types.ObjectKey, 0, len(w.Tx.Owned)+1)
	keys = append(keys, w.Tx.Owned...)
	return append(keys, types.ObjectKey{ID: types.AccumulatorRootObjectID, Version: w.AccumulatorVersion})
}

func (w Withdraw) ReceivingKeys() []types.ObjectKey { return w.Tx.Receiving }

func (w Withdraw) AsTx() *types.Transaction { return w.Tx }

func (Withdraw) schedulable() {}

// AccumulatorSettlement schedules the settlement at checkpoint Height.
// It always mutates the accumulator root object.
type AccumulatorSettlement struct {
	Epoch  uint64
	Height uint64
}

func (a AccumulatorSettlement) Key() types.TransactionKey {
	return types.AccumulatorSettlementKey(a.Epoch, a.Height)
}

func (a AccumulatorSettlement) SharedInputs(cfg *types.EpochStartConfig) []types.SharedInput {
	initial, ok := cfg.AccumulatorRootObjInitialSharedVersion()
	if !ok {
		invariantf("accumulator root obj initial shared version should be set (epoch %d)", cfg.Epoch)
	}

	return []types.SharedInput{{
		ID:                   types.AccumulatorRootObjectID,
		InitialSharedVersion: initial,
		Mutable:              true,
	}}
}

func (AccumulatorSettlement) NonSharedInputKeys() []types.ObjectKey { return nil }

func (AccumulatorSettlement) ReceivingKeys() []types.ObjectKey { return nil }

func (AccumulatorSettlement) AsTx() *types.Transaction { return nil }

func (AccumulatorSettlement) schedulable() {}
