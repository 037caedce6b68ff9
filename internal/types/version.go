package types

import (
	"fmt"
	"strconv"
)

// Version is a position in a shared object's version lineage.
// Valid versions are in (0, VersionMaxValidExcl). Values above that
// range are sentinels recorded in place of a version for cancelled items.
type Version uint64

const (
	// VersionZero is the invalid, uninitialized version.
	VersionZero Version = 0

	// VersionMaxValidExcl is the exclusive upper bound of valid versions.
	VersionMaxValidExcl Version = 1 << 63

	// VersionMax is the largest valid version.
	VersionMax = VersionMaxValidExcl - 1

	// CancelledRead marks a shared input of a cancelled transaction.
	CancelledRead = VersionMaxValidExcl + 1

	// Congested marks a shared input whose congestion caused the cancellation.
	Congested = VersionMaxValidExcl + 2

	// RandomnessUnavailable marks the randomness object when DKG failed.
	RandomnessUnavailable = VersionMaxValidExcl + 3
)

// IsValid reports whether v is a real version: non-zero and not a sentinel.
func (v Version) IsValid() bool {
	return v != VersionZero && v < VersionMaxValidExcl
}

// IsCancelled reports whether v is one of the cancellation sentinels.
func (v Version) IsCancelled() bool {
	return v == CancelledRead || v == Congested || v == RandomnessUnavailable
}

// Next returns the version immediately after v.
func (v Version) Next() Version {
	return v + 1
}

// String returns the decimal version or the sentinel name.
func (v Version) String() string {
	switch v {
	case CancelledRead:
		return "CANCELLED_READ"
	case Congested:
		return "CONGESTED"
	case RandomnessUnavailable:
		return "RANDOMNESS_UNAVAILABLE"
	default:
		return strconv.FormatUint(uint64(v), 10)
	}
}

// ParseVersion parses a decimal version or a sentinel name as printed by String.
func ParseVersion(s string) (Version, error) {
	switch s {
	case "CANCELLED_READ":
		return CancelledRead, nil
	case "CONGESTED":
		return Congested, nil
	case "RANDOMNESS_UNAVAILABLE":
		return RandomnessUnavailable, nil
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return VersionZero, fmt.Errorf("parse version %q:\n%w", s, err)
	}

	return Version(n), nil
}

// LamportIncrement returns one more than the largest input version.
// The result wraps to zero (invalid) if an input is the maximum uint64.
func LamportIncrement(inputs ...Version) Version {
	var highest Version
	for _, v := range inputs {
		if v > highest {
			highest = v
		}
	}

	return highest + 1
}
