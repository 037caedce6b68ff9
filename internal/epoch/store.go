package epoch

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/Guocork/sui/internal/logger"
	"github.com/Guocork/sui/internal/storage"
	"github.com/Guocork/sui/internal/types"
)

// nextVersionPrefix is the Pebble key prefix for next-version entries:
// "n:" + epoch (8 BE) + objectID (32) + initial version (8 BE).
var nextVersionPrefix = []byte("n:")

const nextVersionKeySize = 2 + 8 + types.ObjectIDSize + 8

// ErrVersionRegression is returned when a commit would lower a lineage's next version.
var ErrVersionRegression = errors.New("next version regression")

// ErrUnknownLineage is returned when a commit names a lineage never bootstrapped.
var ErrUnknownLineage = errors.New("lineage not initialized in epoch")

// ObjectReader reads the durable record of an object.
// It returns nil, nil when the object does not exist.
type ObjectReader interface {
	GetObject(id types.ObjectID) (*types.Object, error)
}

// ReadError reports a durable read failure while bootstrapping a lineage.
type ReadError struct {
	Key types.LineageKey
	Err error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	return "bootstrap " + e.Key.String() + ": " + e.Err.Error()
}

// Unwrap returns the underlying storage error.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// Store is the per-epoch table of shared object next versions.
// Entries are created on first touch from the durable object store,
// held in memory, and persisted so a restarted replica resumes the
// same table. It is safe for concurrent use.
type Store struct {
	db     *storage.Storage
	cfg    types.EpochStartConfig
	reader ObjectReader

	mu   sync.RWMutex
	next map[types.LineageKey]types.Version
}

// Open creates the store for cfg.Epoch and loads any entries persisted
// by an earlier run of the same epoch.
func Open(db *storage.Storage, cfg types.EpochStartConfig, reader ObjectReader) (*Store, error) {
	s := &Store{
		db:     db,
		cfg:    cfg,
		reader: reader,
		next:   make(map[types.LineageKey]types.Version),
	}

	if err := s.load(); err != nil {
		return nil, errors.Wrapf(err, "load epoch %d next versions", cfg.Epoch)
	}

	return s, nil
}

// Epoch returns the epoch this store belongs to.
func (s *Store) Epoch() uint64 {
	return s.cfg.Epoch
}

// EpochStartConfig returns the epoch's start configuration.
func (s *Store) EpochStartConfig() *types.EpochStartConfig {
	return &s.cfg
}

// AccumulatorsEnabled reports whether accumulator settlements may be scheduled.
func (s *Store) AccumulatorsEnabled() bool {
	return s.cfg.AccumulatorsEnabled
}

// GetOrInitNextObjectVersions returns the next version of every key,
// first initializing absent lineages from the durable object store.
// Present lineages are never re-read. Initialization is all-or-nothing:
// on a read failure no entry is added.
func (s *Store) GetOrInitNextObjectVersions(ctx context.Context, keys []types.LineageKey) (map[types.LineageKey]types.Version, error) {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []types.LineageVersion

	for _, key := range keys {
		if _, ok := s.next[key]; ok {
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		obj, err := s.reader.GetObject(key.ID)
		if err != nil {
			return nil, &ReadError{Key: key, Err: err}
		}

		fresh = append(fresh, types.LineageVersion{Key: key, Version: initialNextVersion(key, obj)})
	}

	if len(fresh) > 0 {
		if err := s.persist(fresh); err != nil {
			return nil, errors.Wrap(err, "persist initialized versions")
		}

		for _, e := range fresh {
			s.next[e.Key] = e.Version
		}
	}

	result := make(map[types.LineageKey]types.Version, len(keys))
	for _, key := range keys {
		result[key] = s.next[key]
	}

	logger.Debug("next versions ready",
		"epoch", s.cfg.Epoch,
		"keys", len(keys),
		"initialized", len(fresh),
		logger.Timed(start),
	)

	return result, nil
}

// initialNextVersion picks a lineage's first next version in the epoch:
// the object's current version if it is still shared at the lineage's
// initial version, otherwise the initial version itself.
func initialNextVersion(key types.LineageKey, obj *types.Object) types.Version {
	if obj == nil || !obj.IsShared() || obj.InitialSharedVersion != key.InitialVersion {
		return key.InitialVersion
	}

	return obj.Version
}

// GetNextObjectVersion returns the lineage's next version, if initialized.
func (s *Store) GetNextObjectVersion(id types.ObjectID, initial types.Version) (types.Version, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.next[types.LineageKey{ID: id, InitialVersion: initial}]
	return v, ok
}

// CommitNextVersions records a batch's final table. Every lineage must
// already be initialized and no entry may move backwards.
func (s *Store) CommitNextVersions(table map[types.LineageKey]types.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := types.SortedLineageVersions(table)

	for _, e := range entries {
		current, ok := s.next[e.Key]
		if !ok {
			return errors.Wrapf(ErrUnknownLineage, "commit %s", e.Key)
		}

		if !e.Version.IsValid() {
			return errors.Newf("commit %s: invalid version %s", e.Key, e.Version)
		}

		if e.Version < current {
			return errors.Wrapf(ErrVersionRegression, "commit %s: %d < %d", e.Key, uint64(e.Version), uint64(current))
		}
	}

	if err := s.persist(entries); err != nil {
		return errors.Wrap(err, "persist committed versions")
	}

	for _, e := range entries {
		s.next[e.Key] = e.Version
	}

	return nil
}

// Export returns every entry of the epoch's table, ordered by key.
func (s *Store) Export() []types.LineageVersion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return types.SortedLineageVersions(s.next)
}

// Import merges entries received from a peer's snapshot. An entry only
// replaces a local one that is missing or lower.
func (s *Store) Import(entries []types.LineageVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var apply []types.LineageVersion
	for _, e := range entries {
		if !e.Version.IsValid() {
			return errors.Newf("import %s: invalid version %s", e.Key, e.Version)
		}

		if current, ok := s.next[e.Key]; ok && current >= e.Version {
			continue
		}

		apply = append(apply, e)
	}

	if err := s.persist(apply); err != nil {
		return errors.Wrap(err, "persist imported versions")
	}

	for _, e := range apply {
		s.next[e.Key] = e.Version
	}

	return nil
}

// Prune removes the persisted tables of every epoch before the given one.
func Prune(db *storage.Storage, before uint64) error {
	if before == 0 {
		return nil
	}

	return db.DeleteRange(epochPrefix(0), epochPrefix(before))
}

// load reads this epoch's persisted entries into memory.
func (s *Store) load() error {
	return s.db.IteratePrefix(epochPrefix(s.cfg.Epoch), func(key, value []byte) error {
		if len(key) != nextVersionKeySize || len(value) != 8 {
			return errors.Newf("corrupt next version entry %x", key)
		}

		s.next[decodeKey(key)] = types.Version(binary.LittleEndian.Uint64(value))

		return nil
	})
}

// persist writes entries for this epoch in one batch.
func (s *Store) persist(entries []types.LineageVersion) error {
	if len(entries) == 0 {
		return nil
	}

	pairs := make([]storage.KeyValue, len(entries))
	for i, e := range entries {
		value := make([]byte, 8)
		binary.LittleEndian.PutUint64(value, uint64(e.Version))

		pairs[i] = storage.KeyValue{Key: makeKey(s.cfg.Epoch, e.Key), Value: value}
	}

	return s.db.SetBatch(pairs)
}

// epochPrefix returns "n:" + epoch.
func epochPrefix(epoch uint64) []byte {
	prefix := make([]byte, len(nextVersionPrefix)+8)
	copy(prefix, nextVersionPrefix)
	binary.BigEndian.PutUint64(prefix[len(nextVersionPrefix):], epoch)
	return prefix
}

// makeKey builds the Pebble key for one lineage in one epoch.
func makeKey(epoch uint64, k types.LineageKey) []byte {
	key := make([]byte, 0, nextVersionKeySize)
	key = append(key, epochPrefix(epoch)...)
	key = append(key, k.ID[:]...)
	key = binary.BigEndian.AppendUint64(key, uint64(k.InitialVersion))
	return key
}

// decodeKey extracts the lineage from a next-version key.
func decodeKey(key []byte) types.LineageKey {
	var k types.LineageKey
	off := len(nextVersionPrefix) + 8
	copy(k.ID[:], key[off:off+types.ObjectIDSize])
	k.InitialVersion = types.Version(binary.BigEndian.Uint64(key[off+types.ObjectIDSize:]))
	return k
}
