package snapshot

import (
	"github.com/cockroachdb/errors"
	flatbuffers "github.com/google/flatbuffers/go"
)

// Field slots of the tables in version_table.fbs.
const (
	slotFormat   = 4
	slotEpoch    = 6
	slotEntries  = 8
	slotChecksum = 10

	slotEntryID      = 4
	slotEntryInitial = 6
	slotEntryNext    = 8
)

// verifier checks that every offset the generated accessors follow stays
// inside the buffer. Offsets are computed the same way the accessors do.
type verifier struct {
	buf []byte
}

// verify walks the whole VersionTable in raw.
func verify(raw []byte) error {
	v := verifier{buf: raw}

	if err := v.in(0, flatbuffers.SizeUOffsetT, "root offset"); err != nil {
		return err
	}

	root, err := v.table(uint64(flatbuffers.GetUOffsetT(raw)), "root table")
	if err != nil {
		return err
	}

	if err := v.scalar(root, slotFormat, 4, "format"); err != nil {
		return err
	}
	if err := v.scalar(root, slotEpoch, 8, "epoch"); err != nil {
		return err
	}

	start, n, err := v.vector(root, slotEntries, flatbuffers.SizeUOffsetT, "entries")
	if err != nil {
		return err
	}

	for j := uint64(0); j < uint64(n); j++ {
		x := flatbuffers.UOffsetT(start + j*flatbuffers.SizeUOffsetT)
		pos := x + flatbuffers.GetUOffsetT(raw[x:])

		entry, err := v.table(uint64(pos), "entry")
		if err != nil {
			return errors.Wrapf(err, "entry %d", j)
		}

		if _, _, err := v.vector(entry, slotEntryID, 1, "id"); err != nil {
			return errors.Wrapf(err, "entry %d", j)
		}
		if err := v.scalar(entry, slotEntryInitial, 8, "initial version"); err != nil {
			return errors.Wrapf(err, "entry %d", j)
		}
		if err := v.scalar(entry, slotEntryNext, 8, "next version"); err != nil {
			return errors.Wrapf(err, "entry %d", j)
		}
	}

	_, _, err = v.vector(root, slotChecksum, 1, "checksum")

	return err
}

// in checks that [pos, pos+size) lies inside the buffer.
func (v verifier) in(pos, size uint64, what string) error {
	n := uint64(len(v.buf))
	if pos > n || size > n-pos {
		return errors.Wrapf(ErrMalformed, "%s out of range", what)
	}

	return nil
}

// table checks the table at pos and its vtable.
func (v verifier) table(pos uint64, what string) (flatbuffers.Table, error) {
	if err := v.in(pos, flatbuffers.SizeSOffsetT, what); err != nil {
		return flatbuffers.Table{}, err
	}

	vt := uint64(flatbuffers.UOffsetT(flatbuffers.SOffsetT(pos) - flatbuffers.GetSOffsetT(v.buf[pos:])))
	if err := v.in(vt, 2*flatbuffers.SizeVOffsetT, what+" vtable"); err != nil {
		return flatbuffers.Table{}, err
	}

	// Slots are even, so an even size keeps every slot read inside the vtable.
	size := uint64(flatbuffers.GetVOffsetT(v.buf[vt:]))
	if size%2 != 0 {
		return flatbuffers.Table{}, errors.Wrapf(ErrMalformed, "%s vtable size %d", what, size)
	}
	if err := v.in(vt, size, what+" vtable"); err != nil {
		return flatbuffers.Table{}, err
	}

	return flatbuffers.Table{Bytes: v.buf, Pos: flatbuffers.UOffsetT(pos)}, nil
}

// scalar checks a fixed-size field.
func (v verifier) scalar(t flatbuffers.Table, slot flatbuffers.VOffsetT, size uint64, what string) error {
	o := t.Offset(slot)
	if o == 0 {
		return nil
	}

	return v.in(uint64(t.Pos)+uint64(o), size, what)
}

// vector checks a vector field and returns its data position and length.
func (v verifier) vector(t flatbuffers.Table, slot flatbuffers.VOffsetT, elem uint64, what string) (uint64, int, error) {
	o := flatbuffers.UOffsetT(t.Offset(slot))
	if o == 0 {
		return 0, 0, nil
	}

	if err := v.in(uint64(t.Pos)+uint64(o), flatbuffers.SizeUOffsetT, what+" offset"); err != nil {
		return 0, 0, err
	}

	start := uint64(t.Vector(o))
	if start < flatbuffers.SizeUOffsetT {
		return 0, 0, errors.Wrapf(ErrMalformed, "%s out of range", what)
	}
	if err := v.in(start-flatbuffers.SizeUOffsetT, flatbuffers.SizeUOffsetT, what+" length"); err != nil {
		return 0, 0, err
	}

	n := t.VectorLen(o)
	if err := v.in(start, uint64(n)*elem, what); err != nil {
		return 0, 0, err
	}

	return start, n, nil
}
