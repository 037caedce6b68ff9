package fixture

import (
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/Guocork/sui/internal/types"
)

// Item kinds accepted in a batch file.
const (
	KindTransaction = "transaction"
	KindRandomness  = "randomness"
	KindWithdraw    = "withdraw"
	KindSettlement  = "settlement"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid batch file")

// File is the YAML description of one consensus batch: the objects the
// durable store starts with, the epoch configuration, the ordered items,
// the cancellation decisions and optionally the effects of execution.
type File struct {
	// Epoch holds the epoch start configuration.
	Epoch EpochSpec `yaml:"epoch"`

	// Objects seeds the durable object store.
	Objects []ObjectSpec `yaml:"objects,omitempty"`

	// Items lists the schedulable items in consensus order.
	Items []ItemSpec `yaml:"items"`

	// Cancelled lists the items cancelled before execution, by name.
	Cancelled []CancelSpec `yaml:"cancelled,omitempty"`

	// Effects maps an item name to the shared input versions its
	// execution recorded. When present it must cover every item.
	Effects map[string][]ObjectVersionSpec `yaml:"effects,omitempty"`
}

// EpochSpec mirrors types.EpochStartConfig.
type EpochSpec struct {
	Epoch                     uint64 `yaml:"epoch"`
	RandomnessInitialVersion  uint64 `yaml:"randomness_initial_version,omitempty"`
	AccumulatorInitialVersion uint64 `yaml:"accumulator_initial_version,omitempty"`
	AccumulatorsEnabled       bool   `yaml:"accumulators_enabled,omitempty"`
}

// ObjectSpec is one durable object record.
type ObjectSpec struct {
	ID                   string `yaml:"id"`
	Version              uint64 `yaml:"version"`
	InitialSharedVersion uint64 `yaml:"initial_shared_version,omitempty"`
}

// SharedSpec is one shared input declaration.
type SharedSpec struct {
	Object  string `yaml:"object"`
	Initial uint64 `yaml:"initial"`
	Mutable bool   `yaml:"mutable,omitempty"`
}

// ObjectVersionSpec is an object at a version. Version accepts the
// sentinel names CANCELLED_READ, CONGESTED and RANDOMNESS_UNAVAILABLE,
// which are only meaningful in recorded effects.
type ObjectVersionSpec struct {
	Object  string      `yaml:"object"`
	Version VersionSpec `yaml:"version"`
}

// VersionSpec is a version written as a decimal or a sentinel name.
type VersionSpec types.Version

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *VersionSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Wrapf(ErrInvalid, "line %d: version must be a scalar", node.Line)
	}

	parsed, err := types.ParseVersion(node.Value)
	if err != nil {
		return errors.Wrapf(ErrInvalid, "line %d: %v", node.Line, err)
	}

	*v = VersionSpec(parsed)

	return nil
}

// ItemSpec is one schedulable item.
type ItemSpec struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// Transaction and withdraw fields.
	Shared    []SharedSpec        `yaml:"shared,omitempty"`
	Gas       uint64              `yaml:"gas,omitempty"`
	Owned     []ObjectVersionSpec `yaml:"owned,omitempty"`
	Receiving []ObjectVersionSpec `yaml:"receiving,omitempty"`

	// AccumulatorVersion is the withdraw's accumulator dependency.
	AccumulatorVersion uint64 `yaml:"accumulator_version,omitempty"`

	// Round is the randomness round; Height the settlement checkpoint.
	Round  uint64 `yaml:"round,omitempty"`
	Height uint64 `yaml:"height,omitempty"`
}

// CancelSpec cancels one item, either for congestion on the named
// objects or because DKG failed.
type CancelSpec struct {
	Item      string   `yaml:"item"`
	Congested []string `yaml:"congested,omitempty"`
	DkgFailed bool     `yaml:"dkg_failed,omitempty"`
}

// Load reads and builds the batch file at path.
func Load(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read batch file")
	}

	return Parse(data)
}

// Parse decodes a batch file, rejecting unknown fields, and builds it.
func Parse(data []byte) (*Batch, error) {
	var f File

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "parse batch file")
	}

	return f.Build()
}

// config converts the epoch section.
func (e EpochSpec) config() types.EpochStartConfig {
	return types.EpochStartConfig{
		Epoch:                            e.Epoch,
		RandomnessObjInitialVersion:      types.Version(e.RandomnessInitialVersion),
		AccumulatorRootObjInitialVersion: types.Version(e.AccumulatorInitialVersion),
		AccumulatorsEnabled:              e.AccumulatorsEnabled,
	}
}

// objectKey parses an (object, version) pair.
func (s ObjectVersionSpec) objectKey() (types.ObjectKey, error) {
	id, err := types.ParseObjectID(s.Object)
	if err != nil {
		return types.ObjectKey{}, errors.Wrapf(ErrInvalid, "object %q: %v", s.Object, err)
	}

	return types.ObjectKey{ID: id, Version: types.Version(s.Version)}, nil
}

// inputKeys parses transaction inputs, which must be at valid versions.
func inputKeys(specs []ObjectVersionSpec) ([]types.ObjectKey, error) {
	keys, err := objectKeys(specs)
	if err != nil {
		return nil, err
	}

	for _, k := range keys {
		if !k.Version.IsValid() {
			return nil, errors.Wrapf(ErrInvalid, "object %s: invalid input version %s", k.ID.Short(), k.Version)
		}
	}

	return keys, nil
}

// objectKeys parses a list of (object, version) pairs.
func objectKeys(specs []ObjectVersionSpec) ([]types.ObjectKey, error) {
	keys := make([]types.ObjectKey, 0, len(specs))
	for _, s := range specs {
		k, err := s.objectKey()
		if err != nil {
			return nil, err
		}

		keys = append(keys, k)
	}

	return keys, nil
}
