package schedule

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guocork/sui/internal/types"
)

// effectsFor builds the effects a transaction would produce after running
// at the given assigned versions.
func effectsFor(tx *types.Transaction, versions AssignedVersions) *types.Effects {
	effects := &types.Effects{TransactionDigest: tx.Digest()}
	for _, v := range versions {
		effects.InputShared = append(effects.InputShared, types.ObjectKey{ID: v.Key.ID, Version: v.Version})
	}

	return effects
}

// TestAssignFromEffects_MatchesConsensus tests that replaying effects yields
// the assignments the consensus path produced.
func TestAssignFromEffects_MatchesConsensus(t *testing.T) {
	obj := sharedForTesting(1)
	id, init := obj.ID, obj.InitialSharedVersion

	txs := []*types.Transaction{
		txWithGasVersion(t, []types.SharedInput{sharedInput(id, init, true)}, 3),
		txWithGasVersion(t, []types.SharedInput{sharedInput(id, init, false)}, 5),
		txWithGasVersion(t, []types.SharedInput{sharedInput(id, init, true)}, 9),
		txWithGasVersion(t, []types.SharedInput{sharedInput(id, init, true)}, 11),
	}

	forward, err := AssignFromConsensus(context.Background(), newTestStore(t, defaultConfig(), obj), asSchedulables(txs), nil)
	require.NoError(t, err)

	executed := make([]Executed, len(txs))
	for i, tx := range txs {
		executed[i] = Executed{Tx: tx, Effects: effectsFor(tx, forward.Assigned[i].Versions)}
	}

	store := newTestStore(t, defaultConfig(), obj)
	replayed, err := AssignFromEffects(context.Background(), store, executed)
	require.NoError(t, err)

	assert.Equal(t, forward.Assigned, replayed)

	// Replay still initializes the lineage for the epoch.
	v, ok := store.GetNextObjectVersion(id, init)
	require.True(t, ok)
	assert.Equal(t, init, v)
}

// TestAssignFromEffects_Cancelled tests that sentinels recorded in effects are
// returned as-is.
func TestAssignFromEffects_Cancelled(t *testing.T) {
	obj1, obj2 := sharedForTesting(1), sharedForTesting(2)
	tx := txWithGasVersion(t, []types.SharedInput{
		sharedInput(obj1.ID, 1, true),
		sharedInput(obj2.ID, 1, false),
	}, 5)

	effects := &types.Effects{
		TransactionDigest: tx.Digest(),
		InputShared: []types.ObjectKey{
			{ID: obj2.ID, Version: types.CancelledRead},
			{ID: obj1.ID, Version: types.Congested},
		},
	}

	got, err := AssignFromEffects(context.Background(), newTestStore(t, defaultConfig(), obj1, obj2),
		[]Executed{{Tx: tx, Effects: effects}})
	require.NoError(t, err)

	assert.Equal(t, AssignedVersions{lv(obj1.ID, 1, types.Congested), lv(obj2.ID, 1, types.CancelledRead)}, got[0].Versions)
}

// TestAssignFromEffects_BootstrapError tests that a read failure while
// initializing replayed lineages is returned rather than ignored.
func TestAssignFromEffects_BootstrapError(t *testing.T) {
	cause := errors.New("object store unavailable")
	store := &failingStore{cfg: defaultConfig(), err: cause}

	obj := sharedForTesting(1)
	tx := txWithGasVersion(t, []types.SharedInput{sharedInput(obj.ID, 1, true)}, 2)
	effects := effectsFor(tx, AssignedVersions{lv(obj.ID, 1, 1)})

	got, err := AssignFromEffects(context.Background(), store, []Executed{{Tx: tx, Effects: effects}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.Nil(t, got)
}

// TestAssignFromEffects_NoSharedInputs tests the empty assignment.
func TestAssignFromEffects_NoSharedInputs(t *testing.T) {
	tx := txWithGasVersion(t, nil, 4)

	got, err := AssignFromEffects(context.Background(), newTestStore(t, defaultConfig()),
		[]Executed{{Tx: tx, Effects: &types.Effects{TransactionDigest: tx.Digest()}}})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, tx.Key(), got[0].Key)
	assert.Empty(t, got[0].Versions)
}

// TestAssignFromEffects_Inconsistent tests that effects disagreeing with the
// transaction are fatal.
func TestAssignFromEffects_Inconsistent(t *testing.T) {
	obj1, obj2 := sharedForTesting(1), sharedForTesting(2)

	tests := []struct {
		name    string
		effects func(tx *types.Transaction) *types.Effects
	}{
		{
			name: "missing declared input",
			effects: func(tx *types.Transaction) *types.Effects {
				return &types.Effects{TransactionDigest: tx.Digest()}
			},
		},
		{
			name: "undeclared input",
			effects: func(tx *types.Transaction) *types.Effects {
				return &types.Effects{TransactionDigest: tx.Digest(), InputShared: []types.ObjectKey{
					{ID: obj1.ID, Version: 1},
					{ID: obj2.ID, Version: 1},
				}}
			},
		},
		{
			name: "foreign digest",
			effects: func(*types.Transaction) *types.Effects {
				return &types.Effects{InputShared: []types.ObjectKey{{ID: obj1.ID, Version: 1}}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t, defaultConfig(), obj1, obj2)
			tx := txWithGasVersion(t, []types.SharedInput{sharedInput(obj1.ID, 1, true)}, 2)

			assert.Panics(t, func() {
				_, _ = AssignFromEffects(context.Background(), store, []Executed{{Tx: tx, Effects: tt.effects(tx)}})
			})
		})
	}
}
