package fixture

import (
	"github.com/cockroachdb/errors"
	"github.com/zeebo/blake3"

	"github.com/Guocork/sui/internal/schedule"
	"github.com/Guocork/sui/internal/types"
)

// Batch is a batch file converted to engine types.
type Batch struct {
	Config  types.EpochStartConfig
	Objects []types.Object

	// Names holds each item's name, parallel to Items.
	Names []string
	Items []schedule.Schedulable

	Cancelled types.CancelledTxns

	// Executed is nil unless the file carries effects.
	Executed []schedule.Executed
}

// HasEffects reports whether the batch should be replayed from effects.
func (b *Batch) HasEffects() bool {
	return b.Executed != nil
}

// GasObjectID derives the gas object of the named item, so that gas
// versions can be written without inventing IDs.
func GasObjectID(item string) types.ObjectID {
	return types.ObjectID(blake3.Sum256([]byte("gas/" + item)))
}

// Build validates the file and converts it.
func (f *File) Build() (*Batch, error) {
	b := &Batch{
		Config:    f.Epoch.config(),
		Cancelled: make(types.CancelledTxns),
	}

	objects, err := f.objects()
	if err != nil {
		return nil, err
	}
	b.Objects = objects

	if len(f.Items) == 0 {
		return nil, errors.Wrap(ErrInvalid, "items list is empty")
	}

	txs := make(map[string]*types.Transaction, len(f.Items))
	seen := make(map[string]bool, len(f.Items))

	for i, spec := range f.Items {
		if spec.Name == "" {
			return nil, errors.Wrapf(ErrInvalid, "item %d has no name", i)
		}

		if seen[spec.Name] {
			return nil, errors.Wrapf(ErrInvalid, "duplicate item %q", spec.Name)
		}
		seen[spec.Name] = true

		item, err := spec.build(b.Config.Epoch)
		if err != nil {
			return nil, errors.Wrapf(err, "item %q", spec.Name)
		}

		if tx := item.AsTx(); tx != nil {
			txs[spec.Name] = tx
		}

		b.Names = append(b.Names, spec.Name)
		b.Items = append(b.Items, item)
	}

	for _, c := range f.Cancelled {
		if err := c.apply(txs, b.Cancelled); err != nil {
			return nil, err
		}
	}

	if len(f.Effects) > 0 {
		executed, err := f.executed(txs)
		if err != nil {
			return nil, err
		}
		b.Executed = executed
	}

	return b, nil
}

// objects converts the durable object records.
func (f *File) objects() ([]types.Object, error) {
	objects := make([]types.Object, 0, len(f.Objects))

	for _, spec := range f.Objects {
		id, err := types.ParseObjectID(spec.ID)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalid, "object %q: %v", spec.ID, err)
		}

		obj := types.Object{
			ID:                   id,
			Version:              types.Version(spec.Version),
			InitialSharedVersion: types.Version(spec.InitialSharedVersion),
		}

		if !obj.Version.IsValid() {
			return nil, errors.Wrapf(ErrInvalid, "object %q: invalid version %d", spec.ID, spec.Version)
		}

		objects = append(objects, obj)
	}

	return objects, nil
}

// build converts one item.
func (s ItemSpec) build(epoch uint64) (schedule.Schedulable, error) {
	switch s.Kind {
	case KindTransaction:
		tx, err := s.transaction()
		if err != nil {
			return nil, err
		}
		return schedule.Transaction{Tx: tx}, nil

	case KindWithdraw:
		if s.AccumulatorVersion == 0 {
			return nil, errors.Wrap(ErrInvalid, "withdraw needs accumulator_version")
		}

		if !types.Version(s.AccumulatorVersion).IsValid() {
			return nil, errors.Wrapf(ErrInvalid, "invalid accumulator_version %d", s.AccumulatorVersion)
		}

		tx, err := s.transaction()
		if err != nil {
			return nil, err
		}
		return schedule.Withdraw{Tx: tx, AccumulatorVersion: types.Version(s.AccumulatorVersion)}, nil

	case KindRandomness:
		if err := s.noInputs(); err != nil {
			return nil, err
		}
		return schedule.RandomnessStateUpdate{Epoch: epoch, Round: s.Round}, nil

	case KindSettlement:
		if err := s.noInputs(); err != nil {
			return nil, err
		}
		return schedule.AccumulatorSettlement{Epoch: epoch, Height: s.Height}, nil

	default:
		return nil, errors.Wrapf(ErrInvalid, "unknown kind %q", s.Kind)
	}
}

// transaction converts the input declarations of a transaction item. The
// item name is the payload, keeping digests distinct.
func (s ItemSpec) transaction() (*types.Transaction, error) {
	tx := &types.Transaction{Payload: []byte(s.Name)}

	for _, in := range s.Shared {
		id, err := types.ParseObjectID(in.Object)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalid, "shared object %q: %v", in.Object, err)
		}

		if in.Initial == 0 {
			return nil, errors.Wrapf(ErrInvalid, "shared object %q has no initial version", in.Object)
		}

		if !types.Version(in.Initial).IsValid() {
			return nil, errors.Wrapf(ErrInvalid, "shared object %q: invalid initial version %d", in.Object, in.Initial)
		}

		tx.Shared = append(tx.Shared, types.SharedInput{
			ID:                   id,
			InitialSharedVersion: types.Version(in.Initial),
			Mutable:              in.Mutable,
		})
	}

	if s.Gas != 0 {
		if !types.Version(s.Gas).IsValid() {
			return nil, errors.Wrapf(ErrInvalid, "invalid gas version %d", s.Gas)
		}

		tx.Owned = append(tx.Owned, types.ObjectKey{ID: GasObjectID(s.Name), Version: types.Version(s.Gas)})
	}

	owned, err := inputKeys(s.Owned)
	if err != nil {
		return nil, err
	}
	tx.Owned = append(tx.Owned, owned...)

	if tx.Receiving, err = inputKeys(s.Receiving); err != nil {
		return nil, err
	}

	return tx, nil
}

// noInputs rejects input declarations on system items.
func (s ItemSpec) noInputs() error {
	if len(s.Shared) > 0 || len(s.Owned) > 0 || len(s.Receiving) > 0 || s.Gas != 0 {
		return errors.Wrapf(ErrInvalid, "%s items take no inputs", s.Kind)
	}

	return nil
}

// apply records one cancellation.
func (c CancelSpec) apply(txs map[string]*types.Transaction, cancelled types.CancelledTxns) error {
	tx, ok := txs[c.Item]
	if !ok {
		return errors.Wrapf(ErrInvalid, "cancelled item %q is not a transaction in the batch", c.Item)
	}

	digest := tx.Digest()
	if _, dup := cancelled[digest]; dup {
		return errors.Wrapf(ErrInvalid, "item %q cancelled twice", c.Item)
	}

	switch {
	case c.DkgFailed && len(c.Congested) == 0:
		cancelled[digest] = types.DkgFailed()

	case !c.DkgFailed && len(c.Congested) > 0:
		ids := make([]types.ObjectID, 0, len(c.Congested))
		for _, s := range c.Congested {
			id, err := types.ParseObjectID(s)
			if err != nil {
				return errors.Wrapf(ErrInvalid, "congested object %q: %v", s, err)
			}
			ids = append(ids, id)
		}
		cancelled[digest] = types.CongestionOnObjects(ids...)

	default:
		return errors.Wrapf(ErrInvalid, "item %q needs exactly one of congested or dkg_failed", c.Item)
	}

	return nil
}

// executed pairs every item with its recorded effects.
func (f *File) executed(txs map[string]*types.Transaction) ([]schedule.Executed, error) {
	for name := range f.Effects {
		if _, ok := txs[name]; !ok {
			return nil, errors.Wrapf(ErrInvalid, "effects for unknown transaction %q", name)
		}
	}

	executed := make([]schedule.Executed, 0, len(f.Items))

	for _, spec := range f.Items {
		tx, ok := txs[spec.Name]
		if !ok {
			return nil, errors.Wrapf(ErrInvalid, "%s item %q cannot be replayed from effects", spec.Kind, spec.Name)
		}

		recorded, ok := f.Effects[spec.Name]
		if !ok {
			return nil, errors.Wrapf(ErrInvalid, "no effects for item %q", spec.Name)
		}

		inputs, err := objectKeys(recorded)
		if err != nil {
			return nil, errors.Wrapf(err, "effects of %q", spec.Name)
		}

		executed = append(executed, schedule.Executed{
			Tx:      tx,
			Effects: &types.Effects{TransactionDigest: tx.Digest(), InputShared: inputs},
		})
	}

	return executed, nil
}
