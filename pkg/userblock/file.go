package userblock

import (
	"io"

	"github.com/metador-go/ih5/pkg/ih5err"
)

// Load reads and parses the user-block at the start of r. It probes the
// first probeSize bytes; if the claimed size exceeds probeSize, it re-reads
// the full claimed size before parsing the JSON body, per the load algorithm
// in the format's specification.
func Load(r io.ReaderAt) (UserBlock, int, error) {
	probe := make([]byte, probeSize)
	n, err := r.ReadAt(probe, 0)
	if err != nil && err != io.EOF {
		return UserBlock{}, 0, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "reading user-block probe", err)
	}
	probe = probe[:n]

	ub, claimedSize, parseErr := Parse(probe)
	if parseErr == nil {
		return ub, claimedSize, nil
	}
	if !NeedsFullBlock(parseErr) {
		return UserBlock{}, 0, parseErr
	}
	if claimedSize <= probeSize {
		return UserBlock{}, 0, ih5err.New(ih5err.ErrCorruptUserBlock, "user-block JSON not terminated within claimed size")
	}

	full := make([]byte, claimedSize)
	n, err = r.ReadAt(full, 0)
	if err != nil && err != io.EOF {
		return UserBlock{}, 0, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "reading full user-block", err)
	}
	full = full[:n]

	ub, claimedSize, err = Parse(full)
	if err != nil {
		return UserBlock{}, 0, err
	}
	return ub, claimedSize, nil
}

// Save serializes ub into the reserved size-byte region and writes it at
// offset 0 of w. It first reads the existing first four bytes; if they equal
// the raw HDF5 signature, the file was never created with a reserved
// user-block and the write is refused.
func Save(rw io.ReaderAt, w io.WriterAt, ub UserBlock, size int) error {
	head := make([]byte, 4)
	n, err := rw.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return ih5err.Wrap(ih5err.ErrCorruptUserBlock, "probing for reserved user-block", err)
	}
	head = head[:n]
	if len(head) == 4 && string(head) == string(hdf5Signature) {
		return ih5err.New(ih5err.ErrNoReservedUserBlock, "file begins with the HDF5 signature; no user-block was reserved")
	}

	block, err := Serialize(ub, size)
	if err != nil {
		return err
	}

	if _, err := w.WriteAt(block, 0); err != nil {
		return ih5err.Wrap(ih5err.ErrCorruptUserBlock, "writing user-block", err)
	}
	return nil
}
