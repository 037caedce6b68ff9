package types

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Transaction is a certified transaction as far as version assignment
// is concerned: the objects it reads and writes, plus an opaque payload
// that distinguishes otherwise identical transactions.
type Transaction struct {
	Shared    []SharedInput // shared inputs in declaration order
	Owned     []ObjectKey   // owned and immutable inputs, gas included
	Receiving []ObjectKey   // objects received by this transaction
	Payload   []byte
}

// Digest returns the blake3 digest of the transaction's canonical encoding.
func (tx *Transaction) Digest() Digest {
	return blake3.Sum256(tx.encode())
}

// Key returns the transaction's scheduling key.
func (tx *Transaction) Key() TransactionKey {
	return DigestKey(tx.Digest())
}

// SharedLineageKeys returns the lineage of every shared input.
func (tx *Transaction) SharedLineageKeys() []LineageKey {
	keys := make([]LineageKey, len(tx.Shared))
	for i, s := range tx.Shared {
		keys[i] = s.LineageKey()
	}

	return keys
}

// encode writes every field length-prefixed, big-endian.
func (tx *Transaction) encode() []byte {
	size := 16 + len(tx.Shared)*(ObjectIDSize+9) +
		(len(tx.Owned)+len(tx.Receiving))*(ObjectIDSize+8) + len(tx.Payload)
	buf := make([]byte, 0, size)

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(tx.Shared)))
	for _, s := range tx.Shared {
		buf = append(buf, s.ID[:]...)
		buf = binary.BigEndian.AppendUint64(buf, uint64(s.InitialSharedVersion))
		if s.Mutable {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}

	buf = appendObjectKeys(buf, tx.Owned)
	buf = appendObjectKeys(buf, tx.Receiving)

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(tx.Payload)))
	buf = append(buf, tx.Payload...)

	return buf
}

// appendObjectKeys appends a length-prefixed list of (id, version) pairs.
func appendObjectKeys(buf []byte, keys []ObjectKey) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(keys)))
	for _, k := range keys {
		buf = append(buf, k.ID[:]...)
		buf = binary.BigEndian.AppendUint64(buf, uint64(k.Version))
	}

	return buf
}

// Effects is the executed outcome of a transaction, reduced to the
// shared object versions it ran against.
type Effects struct {
	TransactionDigest Digest

	// InputShared holds, for every shared input, the version the
	// transaction observed (or the sentinel it was cancelled with).
	InputShared []ObjectKey
}

// SharedVersion returns the recorded input version of object id.
func (e *Effects) SharedVersion(id ObjectID) (Version, bool) {
	for _, k := range e.InputShared {
		if k.ID == id {
			return k.Version, true
		}
	}

	return VersionZero, false
}
