package types

import "slices"

// CancelKind is the reason a transaction was cancelled before execution.
type CancelKind uint8

const (
	// CancelCongestion cancels a transaction contending on overloaded objects.
	CancelCongestion CancelKind = iota + 1

	// CancelDkgFailed cancels a randomness-using transaction after DKG failure.
	CancelDkgFailed
)

// CancelReason is an externally decided cancellation.
type CancelReason struct {
	Kind CancelKind

	// CongestedObjects lists the objects that caused a congestion cancellation.
	CongestedObjects []ObjectID
}

// CongestionOnObjects returns a congestion cancellation naming ids.
func CongestionOnObjects(ids ...ObjectID) CancelReason {
	return CancelReason{Kind: CancelCongestion, CongestedObjects: ids}
}

// DkgFailed returns a DKG-failure cancellation.
func DkgFailed() CancelReason {
	return CancelReason{Kind: CancelDkgFailed}
}

// IsCongested reports whether id is named by a congestion cancellation.
func (r CancelReason) IsCongested(id ObjectID) bool {
	return r.Kind == CancelCongestion && slices.Contains(r.CongestedObjects, id)
}

// CancelledTxns maps transaction digests to their cancellation reason.
type CancelledTxns map[Digest]CancelReason
