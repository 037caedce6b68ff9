package objstore

import (
	"encoding/binary"
	"fmt"

	"github.com/Guocork/sui/internal/storage"
	"github.com/Guocork/sui/internal/types"
)

// objectKeyPrefix is the Pebble key prefix for object records.
var objectKeyPrefix = []byte("o:")

// recordSize is version (8 bytes LE) + initial shared version (8 bytes LE).
const recordSize = 16

// Store holds the current version of every object, persisted to Pebble
// under the "o:" prefix. It is the durable read path consulted when a
// shared object's lineage is first touched in an epoch.
type Store struct {
	db *storage.Storage
}

// New creates an object store backed by the given storage.
func New(db *storage.Storage) *Store {
	return &Store{db: db}
}

// GetObject returns the object's record, or nil if it does not exist.
func (s *Store) GetObject(id types.ObjectID) (*types.Object, error) {
	value, err := s.db.Get(makeKey(id))
	if err != nil {
		return nil, fmt.Errorf("read object %s:\n%w", id.Short(), err)
	}

	if value == nil {
		return nil, nil
	}

	return decodeRecord(id, value)
}

// PutBatch atomically stores multiple object records.
func (s *Store) PutBatch(objs []types.Object) error {
	pairs := make([]storage.KeyValue, len(objs))
	for i, obj := range objs {
		pairs[i] = storage.KeyValue{Key: makeKey(obj.ID), Value: encodeRecord(obj)}
	}

	return s.db.SetBatch(pairs)
}

// Export returns every stored object in ID order.
func (s *Store) Export() ([]types.Object, error) {
	var objs []types.Object

	err := s.db.IteratePrefix(objectKeyPrefix, func(key, value []byte) error {
		if len(key) != len(objectKeyPrefix)+types.ObjectIDSize {
			return nil
		}

		var id types.ObjectID
		copy(id[:], key[len(objectKeyPrefix):])

		obj, err := decodeRecord(id, value)
		if err != nil {
			return err
		}

		objs = append(objs, *obj)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return objs, nil
}

// makeKey builds the Pebble key for an object: "o:" + objectID.
func makeKey(id types.ObjectID) []byte {
	key := make([]byte, len(objectKeyPrefix)+types.ObjectIDSize)
	copy(key, objectKeyPrefix)
	copy(key[len(objectKeyPrefix):], id[:])
	return key
}

// encodeRecord encodes version + initial shared version.
func encodeRecord(obj types.Object) []byte {
	value := make([]byte, recordSize)
	binary.LittleEndian.PutUint64(value[:8], uint64(obj.Version))
	binary.LittleEndian.PutUint64(value[8:16], uint64(obj.InitialSharedVersion))
	return value
}

// decodeRecord decodes a stored record for id.
func decodeRecord(id types.ObjectID, value []byte) (*types.Object, error) {
	if len(value) != recordSize {
		return nil, fmt.Errorf("object %s: corrupt record of %d bytes", id.Short(), len(value))
	}

	return &types.Object{
		ID:                   id,
		Version:              types.Version(binary.LittleEndian.Uint64(value[:8])),
		InitialSharedVersion: types.Version(binary.LittleEndian.Uint64(value[8:16])),
	}, nil
}
