package epoch

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guocork/sui/internal/objstore"
	"github.com/Guocork/sui/internal/storage"
	"github.com/Guocork/sui/internal/types"
)

// countingReader wraps an object reader and counts lookups.
type countingReader struct {
	inner ObjectReader
	reads map[types.ObjectID]int
	fail  error
}

func (r *countingReader) GetObject(id types.ObjectID) (*types.Object, error) {
	r.reads[id]++
	if r.fail != nil {
		return nil, r.fail
	}
	return r.inner.GetObject(id)
}

type fixture struct {
	db      *storage.Storage
	objects *objstore.Store
	reader  *countingReader
}

// newFixture creates in-memory storage with an object store seeded with objs.
func newFixture(t *testing.T, objs ...types.Object) *fixture {
	t.Helper()

	db, err := storage.New("", storage.WithInMemory())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	objects := objstore.New(db)
	require.NoError(t, objects.PutBatch(objs))

	return &fixture{
		db:      db,
		objects: objects,
		reader:  &countingReader{inner: objects, reads: make(map[types.ObjectID]int)},
	}
}

func (f *fixture) open(t *testing.T, epoch uint64) *Store {
	t.Helper()

	s, err := Open(f.db, types.EpochStartConfig{Epoch: epoch}, f.reader)
	require.NoError(t, err)

	return s
}

func lineage(n uint64, initial types.Version) types.LineageKey {
	return types.LineageKey{ID: types.ObjectIDFromUint64(n), InitialVersion: initial}
}

// TestGetOrInit_ReadsCurrentVersion tests bootstrap from the durable version.
func TestGetOrInit_ReadsCurrentVersion(t *testing.T) {
	f := newFixture(t, types.Object{ID: types.ObjectIDFromUint64(1), Version: 9, InitialSharedVersion: 2})
	s := f.open(t, 1)

	got, err := s.GetOrInitNextObjectVersions(context.Background(), []types.LineageKey{lineage(1, 2)})
	require.NoError(t, err)

	assert.Equal(t, map[types.LineageKey]types.Version{lineage(1, 2): 9}, got)
}

// TestGetOrInit_InitializesOnce tests that a lineage is read at most once per epoch.
func TestGetOrInit_InitializesOnce(t *testing.T) {
	id := types.ObjectIDFromUint64(1)
	f := newFixture(t, types.Object{ID: id, Version: 3, InitialSharedVersion: 1})
	s := f.open(t, 1)
	ctx := context.Background()

	_, err := s.GetOrInitNextObjectVersions(ctx, []types.LineageKey{lineage(1, 1)})
	require.NoError(t, err)

	require.NoError(t, s.CommitNextVersions(map[types.LineageKey]types.Version{lineage(1, 1): 8}))

	// The durable object moving on must not re-seed the epoch's table.
	require.NoError(t, f.objects.PutBatch([]types.Object{{ID: id, Version: 20, InitialSharedVersion: 1}}))

	got, err := s.GetOrInitNextObjectVersions(ctx, []types.LineageKey{lineage(1, 1)})
	require.NoError(t, err)

	assert.Equal(t, types.Version(8), got[lineage(1, 1)])
	assert.Equal(t, 1, f.reader.reads[id])
}

// TestGetOrInit_MissingOrReshared tests the initial-version fallback.
func TestGetOrInit_MissingOrReshared(t *testing.T) {
	f := newFixture(t,
		types.Object{ID: types.ObjectIDFromUint64(2), Version: 40, InitialSharedVersion: 30},
		types.Object{ID: types.ObjectIDFromUint64(3), Version: 12},
	)
	s := f.open(t, 1)

	keys := []types.LineageKey{lineage(1, 5), lineage(2, 7), lineage(3, 4)}
	got, err := s.GetOrInitNextObjectVersions(context.Background(), keys)
	require.NoError(t, err)

	assert.Equal(t, types.Version(5), got[lineage(1, 5)], "missing object starts at its initial version")
	assert.Equal(t, types.Version(7), got[lineage(2, 7)], "re-shared object starts at the lineage's initial version")
	assert.Equal(t, types.Version(4), got[lineage(3, 4)], "owned object starts at the lineage's initial version")
}

// TestGetOrInit_ReadErrorNoPartialState tests that a read failure leaves the table untouched.
func TestGetOrInit_ReadErrorNoPartialState(t *testing.T) {
	f := newFixture(t, types.Object{ID: types.ObjectIDFromUint64(1), Version: 3, InitialSharedVersion: 1})
	s := f.open(t, 1)

	cause := errors.New("disk gone")
	f.reader.fail = cause

	_, err := s.GetOrInitNextObjectVersions(context.Background(), []types.LineageKey{lineage(1, 1)})
	require.Error(t, err)

	var readErr *ReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(t, lineage(1, 1), readErr.Key)
	assert.True(t, errors.Is(err, cause))

	_, ok := s.GetNextObjectVersion(types.ObjectIDFromUint64(1), 1)
	assert.False(t, ok)
}

// TestGetOrInit_ContextCancelled tests that a cancelled context aborts before reading.
func TestGetOrInit_ContextCancelled(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetOrInitNextObjectVersions(ctx, []types.LineageKey{lineage(1, 1)})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.reader.reads)
}

// TestCommit_RejectsRegressionAndUnknown tests the commit invariants.
func TestCommit_RejectsRegressionAndUnknown(t *testing.T) {
	f := newFixture(t, types.Object{ID: types.ObjectIDFromUint64(1), Version: 6, InitialSharedVersion: 1})
	s := f.open(t, 1)

	_, err := s.GetOrInitNextObjectVersions(context.Background(), []types.LineageKey{lineage(1, 1)})
	require.NoError(t, err)

	err = s.CommitNextVersions(map[types.LineageKey]types.Version{lineage(1, 1): 5})
	assert.ErrorIs(t, err, ErrVersionRegression)

	err = s.CommitNextVersions(map[types.LineageKey]types.Version{lineage(2, 1): 5})
	assert.ErrorIs(t, err, ErrUnknownLineage)

	err = s.CommitNextVersions(map[types.LineageKey]types.Version{lineage(1, 1): types.Congested})
	assert.Error(t, err)

	v, _ := s.GetNextObjectVersion(types.ObjectIDFromUint64(1), 1)
	assert.Equal(t, types.Version(6), v)
}

// TestOpen_ReloadsPersistedEpoch tests that a reopened store resumes its table
// and that other epochs are isolated.
func TestOpen_ReloadsPersistedEpoch(t *testing.T) {
	f := newFixture(t, types.Object{ID: types.ObjectIDFromUint64(1), Version: 2, InitialSharedVersion: 1})
	ctx := context.Background()

	s := f.open(t, 4)
	_, err := s.GetOrInitNextObjectVersions(ctx, []types.LineageKey{lineage(1, 1)})
	require.NoError(t, err)
	require.NoError(t, s.CommitNextVersions(map[types.LineageKey]types.Version{lineage(1, 1): 11}))

	reopened := f.open(t, 4)
	v, ok := reopened.GetNextObjectVersion(types.ObjectIDFromUint64(1), 1)
	require.True(t, ok)
	assert.Equal(t, types.Version(11), v)

	next := f.open(t, 5)
	_, ok = next.GetNextObjectVersion(types.ObjectIDFromUint64(1), 1)
	assert.False(t, ok, "a new epoch starts with an empty table")
}

// TestPrune tests that earlier epochs are dropped and later ones kept.
func TestPrune(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, epoch := range []uint64{1, 2, 3} {
		s := f.open(t, epoch)
		_, err := s.GetOrInitNextObjectVersions(ctx, []types.LineageKey{lineage(1, 1)})
		require.NoError(t, err)
	}

	require.NoError(t, Prune(f.db, 3))

	assert.Empty(t, f.open(t, 1).Export())
	assert.Empty(t, f.open(t, 2).Export())
	assert.Len(t, f.open(t, 3).Export(), 1)
}

// TestExportImport tests that import only raises entries.
func TestExportImport(t *testing.T) {
	src := newFixture(t)
	ctx := context.Background()

	a := src.open(t, 1)
	_, err := a.GetOrInitNextObjectVersions(ctx, []types.LineageKey{lineage(1, 1), lineage(2, 3)})
	require.NoError(t, err)
	require.NoError(t, a.CommitNextVersions(map[types.LineageKey]types.Version{lineage(1, 1): 9}))

	dst := newFixture(t)
	b := dst.open(t, 1)
	_, err = b.GetOrInitNextObjectVersions(ctx, []types.LineageKey{lineage(2, 3)})
	require.NoError(t, err)
	require.NoError(t, b.CommitNextVersions(map[types.LineageKey]types.Version{lineage(2, 3): 12}))

	require.NoError(t, b.Import(a.Export()))

	assert.Equal(t, []types.LineageVersion{
		{Key: lineage(1, 1), Version: 9},
		{Key: lineage(2, 3), Version: 12},
	}, b.Export())
}
