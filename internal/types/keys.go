package types

import (
	"bytes"
	"cmp"
	"encoding/hex"
	"fmt"
	"slices"
)

// Digest is the 32-byte blake3 digest of a transaction.
type Digest [32]byte

// String returns the hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// LineageKey identifies one shared object's version lineage within an epoch.
// An object re-shared at a different initial version is a distinct lineage.
type LineageKey struct {
	ID             ObjectID
	InitialVersion Version
}

// Compare orders lineage keys by ID bytes, then initial version.
func (k LineageKey) Compare(other LineageKey) int {
	if c := bytes.Compare(k.ID[:], other.ID[:]); c != 0 {
		return c
	}

	return cmp.Compare(k.InitialVersion, other.InitialVersion)
}

// String formats the key for logs.
func (k LineageKey) String() string {
	return fmt.Sprintf("%s@%d", k.ID.Short(), uint64(k.InitialVersion))
}

// SortedUniqueLineageKeys sorts keys and drops duplicates in place.
func SortedUniqueLineageKeys(keys []LineageKey) []LineageKey {
	slices.SortFunc(keys, LineageKey.Compare)
	return slices.Compact(keys)
}

// ObjectKey is an object ID at a specific version.
type ObjectKey struct {
	ID      ObjectID
	Version Version
}

// SharedInput declares a transaction's access to a shared object.
type SharedInput struct {
	ID                   ObjectID
	InitialSharedVersion Version
	Mutable              bool
}

// LineageKey returns the lineage the input refers to.
func (s SharedInput) LineageKey() LineageKey {
	return LineageKey{ID: s.ID, InitialVersion: s.InitialSharedVersion}
}

// KeyKind distinguishes the kinds of schedulable items.
type KeyKind uint8

const (
	// KeyDigest keys a user or system transaction by its digest.
	KeyDigest KeyKind = iota

	// KeyRandomnessRound keys a randomness state update by (epoch, round).
	KeyRandomnessRound

	// KeyAccumulatorSettlement keys a settlement by (epoch, checkpoint height).
	KeyAccumulatorSettlement
)

// TransactionKey uniquely identifies a schedulable item.
// It is comparable and usable as a map key.
type TransactionKey struct {
	Kind   KeyKind
	Digest Digest // set for KeyDigest
	Epoch  uint64 // set for round and settlement keys
	Seq    uint64 // randomness round or checkpoint height
}

// DigestKey returns the key of a transaction.
func DigestKey(d Digest) TransactionKey {
	return TransactionKey{Kind: KeyDigest, Digest: d}
}

// RandomnessRoundKey returns the key of a randomness state update.
func RandomnessRoundKey(epoch, round uint64) TransactionKey {
	return TransactionKey{Kind: KeyRandomnessRound, Epoch: epoch, Seq: round}
}

// AccumulatorSettlementKey returns the key of an accumulator settlement.
func AccumulatorSettlementKey(epoch, height uint64) TransactionKey {
	return TransactionKey{Kind: KeyAccumulatorSettlement, Epoch: epoch, Seq: height}
}

// AsDigest returns the transaction digest if the key has one.
func (k TransactionKey) AsDigest() (Digest, bool) {
	if k.Kind != KeyDigest {
		return Digest{}, false
	}

	return k.Digest, true
}

// String formats the key for logs.
func (k TransactionKey) String() string {
	switch k.Kind {
	case KeyRandomnessRound:
		return fmt.Sprintf("randomness(%d,%d)", k.Epoch, k.Seq)
	case KeyAccumulatorSettlement:
		return fmt.Sprintf("settlement(%d,%d)", k.Epoch, k.Seq)
	default:
		return "tx(" + hex.EncodeToString(k.Digest[:8]) + ")"
	}
}

// LineageVersion pairs a lineage with a version of it.
type LineageVersion struct {
	Key     LineageKey
	Version Version
}

// SortedLineageVersions returns the table's entries ordered by key.
func SortedLineageVersions(table map[LineageKey]Version) []LineageVersion {
	entries := make([]LineageVersion, 0, len(table))
	for k, v := range table {
		entries = append(entries, LineageVersion{Key: k, Version: v})
	}

	slices.SortFunc(entries, func(a, b LineageVersion) int {
		return a.Key.Compare(b.Key)
	})

	return entries
}
