package types

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// ObjectIDSize is the length of an object identifier in bytes.
const ObjectIDSize = 32

// ObjectID identifies an object.
type ObjectID [ObjectIDSize]byte

var (
	// RandomnessStateObjectID is the well-known shared randomness object.
	RandomnessStateObjectID = ObjectIDFromUint64(0x8)

	// AccumulatorRootObjectID is the well-known shared accumulator root object.
	AccumulatorRootObjectID = ObjectIDFromUint64(0xacc)
)

// ObjectIDFromUint64 returns the ID whose big-endian value is n.
func ObjectIDFromUint64(n uint64) ObjectID {
	var id ObjectID
	binary.BigEndian.PutUint64(id[ObjectIDSize-8:], n)
	return id
}

// ParseObjectID parses a hex ID with optional 0x prefix.
// Short inputs are left-padded with zeros, so "0x8" is the randomness object.
func ParseObjectID(s string) (ObjectID, error) {
	var id ObjectID

	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) == 0 || len(s) > ObjectIDSize*2 {
		return id, fmt.Errorf("invalid object id length %d", len(s))
	}

	if len(s)%2 == 1 {
		s = "0" + s
	}

	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("decode object id:\n%w", err)
	}

	copy(id[ObjectIDSize-len(raw):], raw)

	return id, nil
}

// String returns the 0x-prefixed hex encoding of the ID.
func (id ObjectID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// Short returns an abbreviated hex form for log lines: leading zeros
// are dropped and at most eight digits are kept.
func (id ObjectID) Short() string {
	s := strings.TrimLeft(hex.EncodeToString(id[:]), "0")
	if s == "" {
		return "0x0"
	}

	if len(s) > 8 {
		s = s[:8]
	}

	return "0x" + s
}

// Object is the durable record of an object's current version.
type Object struct {
	ID      ObjectID
	Version Version

	// InitialSharedVersion is the version at which the object became
	// shared, or zero if the object is not shared.
	InitialSharedVersion Version
}

// IsShared reports whether the object is shared.
func (o *Object) IsShared() bool {
	return o.InitialSharedVersion != VersionZero
}
