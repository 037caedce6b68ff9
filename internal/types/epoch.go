package types

// EpochStartConfig holds the per-epoch configuration consulted by
// version assignment. A zero initial version means unset.
type EpochStartConfig struct {
	Epoch                            uint64
	RandomnessObjInitialVersion      Version
	AccumulatorRootObjInitialVersion Version
	AccumulatorsEnabled              bool
}

// RandomnessObjInitialSharedVersion returns the randomness object's
// initial shared version, if the epoch has one.
func (c *EpochStartConfig) RandomnessObjInitialSharedVersion() (Version, bool) {
	return c.RandomnessObjInitialVersion, c.RandomnessObjInitialVersion != VersionZero
}

// AccumulatorRootObjInitialSharedVersion returns the accumulator root
// object's initial shared version, if the epoch has one.
func (c *EpochStartConfig) AccumulatorRootObjInitialSharedVersion() (Version, bool) {
	return c.AccumulatorRootObjInitialVersion, c.AccumulatorRootObjInitialVersion != VersionZero
}
