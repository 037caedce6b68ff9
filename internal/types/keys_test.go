package types

import (
	"strings"
	"testing"
)

// TestSortedUniqueLineageKeys tests ordering by ID then initial version.
func TestSortedUniqueLineageKeys(t *testing.T) {
	a := ObjectIDFromUint64(1)
	b := ObjectIDFromUint64(2)

	keys := []LineageKey{
		{ID: b, InitialVersion: 1},
		{ID: a, InitialVersion: 5},
		{ID: a, InitialVersion: 2},
		{ID: b, InitialVersion: 1},
	}

	got := SortedUniqueLineageKeys(keys)
	want := []LineageKey{
		{ID: a, InitialVersion: 2},
		{ID: a, InitialVersion: 5},
		{ID: b, InitialVersion: 1},
	}

	if len(got) != len(want) {
		t.Fatalf("got %d keys, want %d", len(got), len(want))
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("key %d = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestParseObjectID tests short and full hex forms.
func TestParseObjectID(t *testing.T) {
	id, err := ParseObjectID("0x8")
	if err != nil {
		t.Fatalf("ParseObjectID: %v", err)
	}

	if id != RandomnessStateObjectID {
		t.Fatalf("0x8 = %s, want randomness object", id)
	}

	id, err = ParseObjectID(AccumulatorRootObjectID.String())
	if err != nil {
		t.Fatalf("ParseObjectID: %v", err)
	}

	if id != AccumulatorRootObjectID {
		t.Fatalf("round trip = %s, want %s", id, AccumulatorRootObjectID)
	}

	for _, bad := range []string{"", "0x", "zz", "0x" + strings.Repeat("a", 65)} {
		if _, err := ParseObjectID(bad); err == nil {
			t.Errorf("ParseObjectID(%q) succeeded", bad)
		}
	}
}

// TestTransactionKey_AsDigest tests that only transaction keys carry a digest.
func TestTransactionKey_AsDigest(t *testing.T) {
	d := Digest{0x01}

	if got, ok := DigestKey(d).AsDigest(); !ok || got != d {
		t.Fatalf("DigestKey.AsDigest() = %v, %v", got, ok)
	}

	if _, ok := RandomnessRoundKey(1, 2).AsDigest(); ok {
		t.Fatal("randomness key has a digest")
	}

	if _, ok := AccumulatorSettlementKey(1, 2).AsDigest(); ok {
		t.Fatal("settlement key has a digest")
	}

	if RandomnessRoundKey(1, 2) == AccumulatorSettlementKey(1, 2) {
		t.Fatal("keys of different kinds compare equal")
	}
}

// TestTransaction_Digest tests digest stability and sensitivity.
func TestTransaction_Digest(t *testing.T) {
	tx := &Transaction{
		Shared: []SharedInput{{ID: ObjectIDFromUint64(1), InitialSharedVersion: 1, Mutable: true}},
		Owned:  []ObjectKey{{ID: ObjectIDFromUint64(2), Version: 3}},
	}

	if tx.Digest() != tx.Digest() {
		t.Fatal("digest not deterministic")
	}

	other := *tx
	other.Shared = []SharedInput{{ID: ObjectIDFromUint64(1), InitialSharedVersion: 1, Mutable: false}}

	if tx.Digest() == other.Digest() {
		t.Fatal("mutability not covered by digest")
	}

	moved := &Transaction{Owned: tx.Owned[:0], Receiving: tx.Owned}
	stay := &Transaction{Owned: tx.Owned}
	if moved.Digest() == stay.Digest() {
		t.Fatal("owned and receiving lists not distinguished")
	}
}

// TestCancelReason_IsCongested tests congestion membership.
func TestCancelReason_IsCongested(t *testing.T) {
	a := ObjectIDFromUint64(1)
	b := ObjectIDFromUint64(2)

	r := CongestionOnObjects(a)
	if !r.IsCongested(a) || r.IsCongested(b) {
		t.Fatal("congestion membership wrong")
	}

	if DkgFailed().IsCongested(a) {
		t.Fatal("DKG failure reports congestion")
	}
}

// TestObjectID_Short tests the abbreviated log form.
func TestObjectID_Short(t *testing.T) {
	var full ObjectID
	for i := range full {
		full[i] = 0xab
	}

	tests := []struct {
		id   ObjectID
		want string
	}{
		{ObjectID{}, "0x0"},
		{RandomnessStateObjectID, "0x8"},
		{AccumulatorRootObjectID, "0xacc"},
		{full, "0xabababab"},
	}

	for _, tt := range tests {
		if got := tt.id.Short(); got != tt.want {
			t.Errorf("Short() = %q, want %q", got, tt.want)
		}
	}
}
