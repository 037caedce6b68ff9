package schedule

import "github.com/Guocork/sui/internal/types"

// AssignedVersions lists the versions one item observes, in the order its
// shared inputs were declared.
type AssignedVersions []types.LineageVersion

// TxAssignment pairs an item's key with its assigned versions.
type TxAssignment struct {
	Key      types.TransactionKey
	Versions AssignedVersions
}

// AssignedTxAndVersions lists assignments in batch order.
type AssignedTxAndVersions []TxAssignment

// Map indexes the assignments by item key.
func (a AssignedTxAndVersions) Map() map[types.TransactionKey]AssignedVersions {
	m := make(map[types.TransactionKey]AssignedVersions, len(a))
	for _, tx := range a {
		m[tx.Key] = tx.Versions
	}

	return m
}

// BatchResult is the outcome of assigning versions to one batch.
type BatchResult struct {
	// NextVersions is the table after the batch, covering every
	// lineage the batch referenced.
	NextVersions map[types.LineageKey]types.Version

	// Assigned holds one entry per item, in batch order.
	Assigned AssignedTxAndVersions
}
