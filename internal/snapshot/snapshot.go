package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/cockroachdb/errors"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/Guocork/sui/internal/snapshot/schema"
	"github.com/Guocork/sui/internal/types"
)

// formatVersion is the current snapshot format version.
const formatVersion = 1

// ErrChecksum is returned when a snapshot's content does not match its checksum.
var ErrChecksum = errors.New("snapshot checksum mismatch")

// ErrMalformed is returned when a snapshot's offsets point outside the buffer.
var ErrMalformed = errors.New("malformed snapshot")

// Snapshot is one epoch's next-version table.
type Snapshot struct {
	Epoch   uint64
	Entries []types.LineageVersion
}

// Create encodes the table as a checksummed FlatBuffers buffer and
// compresses it with zstd. Entries are sorted first so every replica
// holding the same table produces the same bytes.
func Create(epoch uint64, entries []types.LineageVersion) ([]byte, error) {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b types.LineageVersion) int {
		return a.Key.Compare(b.Key)
	})

	data := build(epoch, sorted)

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// Parse decompresses and decodes a snapshot, verifying its checksum.
func Parse(data []byte) (*Snapshot, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Wrap(err, "decompress snapshot")
	}

	return decode(raw)
}

// build writes the FlatBuffers table.
func build(epoch uint64, entries []types.LineageVersion) []byte {
	checksum := computeChecksum(formatVersion, epoch, entries)

	builder := flatbuffers.NewBuilder(64 + len(entries)*64)

	offsets := make([]flatbuffers.UOffsetT, len(entries))
	for i, e := range entries {
		id := builder.CreateByteVector(e.Key.ID[:])

		schema.LineageEntryStart(builder)
		schema.LineageEntryAddId(builder, id)
		schema.LineageEntryAddInitialVersion(builder, uint64(e.Key.InitialVersion))
		schema.LineageEntryAddNextVersion(builder, uint64(e.Version))
		offsets[i] = schema.LineageEntryEnd(builder)
	}

	schema.VersionTableStartEntriesVector(builder, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	entriesVec := builder.EndVector(len(offsets))

	checksumVec := builder.CreateByteVector(checksum[:])

	schema.VersionTableStart(builder)
	schema.VersionTableAddFormat(builder, formatVersion)
	schema.VersionTableAddEpoch(builder, epoch)
	schema.VersionTableAddEntries(builder, entriesVec)
	schema.VersionTableAddChecksum(builder, checksumVec)
	builder.Finish(schema.VersionTableEnd(builder))

	return builder.FinishedBytes()
}

// decode reads the FlatBuffers table and verifies the checksum.
func decode(raw []byte) (*Snapshot, error) {
	if len(raw) < flatbuffers.SizeUOffsetT {
		return nil, errors.Newf("snapshot too short: %d bytes", len(raw))
	}

	if err := verify(raw); err != nil {
		return nil, err
	}

	table := schema.GetRootAsVersionTable(raw, 0)

	if f := table.Format(); f != formatVersion {
		return nil, errors.Newf("unsupported snapshot format %d", f)
	}

	snap := &Snapshot{
		Epoch:   table.Epoch(),
		Entries: make([]types.LineageVersion, 0, table.EntriesLength()),
	}

	var entry schema.LineageEntry
	for i := 0; i < table.EntriesLength(); i++ {
		table.Entries(&entry, i)

		idBytes := entry.IdBytes()
		if len(idBytes) != types.ObjectIDSize {
			return nil, errors.Newf("entry %d: invalid id length %d", i, len(idBytes))
		}

		var e types.LineageVersion
		copy(e.Key.ID[:], idBytes)
		e.Key.InitialVersion = types.Version(entry.InitialVersion())
		e.Version = types.Version(entry.NextVersion())

		snap.Entries = append(snap.Entries, e)
	}

	stored := table.ChecksumBytes()
	if len(stored) != 32 {
		return nil, errors.Newf("invalid checksum length: %d", len(stored))
	}

	expected := computeChecksum(formatVersion, snap.Epoch, snap.Entries)
	if !bytes.Equal(stored, expected[:]) {
		return nil, ErrChecksum
	}

	return snap, nil
}

// computeChecksum hashes the canonical (sorted) table contents.
func computeChecksum(format uint32, epoch uint64, entries []types.LineageVersion) [32]byte {
	hasher := blake3.New()

	var buf [8]byte
	binary.BigEndian.PutUint32(buf[:4], format)
	hasher.Write(buf[:4])

	binary.BigEndian.PutUint64(buf[:], epoch)
	hasher.Write(buf[:])

	for _, e := range entries {
		hasher.Write(e.Key.ID[:])
		binary.BigEndian.PutUint64(buf[:], uint64(e.Key.InitialVersion))
		hasher.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], uint64(e.Version))
		hasher.Write(buf[:])
	}

	var checksum [32]byte
	hasher.Sum(checksum[:0])

	return checksum
}
