package chain

import (
	"github.com/metador-go/ih5/pkg/ih5err"
	"github.com/metador-go/ih5/pkg/integrity"
)

// Validate checks that files (already ordered by patch_index ascending) form
// a valid chain per §4.4: consistent chain_uuid, strictly increasing patch
// indexes with correct predecessor links, unique patch UUIDs, and a verified
// integrity hashsum on every file (only the tail may lack one). allowBaseless permits the
// first file to have a non-nil prev_patch (applying a patch subchain against
// an absent stub base).
//
// The tail is allowed to lack a hashsum; in that case it is an incomplete
// writable patch and the caller decides separately whether that is
// acceptable for the requested open mode.
func Validate(files []*File, allowBaseless bool, hashAlgorithm string) error {
	if len(files) == 0 {
		return ih5err.New(ih5err.ErrBrokenChain, "a chain must contain at least one file")
	}

	chainUUID := files[0].ChainUUID()
	seen := make(map[string]bool, len(files))

	for i, f := range files {
		if f.ChainUUID() != chainUUID {
			return ih5err.Newf(ih5err.ErrBrokenChain, "file %q has chain_uuid %q, expected %q", f.Path(), f.ChainUUID(), chainUUID).WithPath(f.Path())
		}
		if seen[f.PatchUUID()] {
			return ih5err.Newf(ih5err.ErrBrokenChain, "duplicate patch_uuid %q", f.PatchUUID()).WithPath(f.Path())
		}
		seen[f.PatchUUID()] = true

		if i == 0 {
			if f.PrevPatchUUID() != nil && !allowBaseless {
				return ih5err.Newf(ih5err.ErrBrokenChain, "base file %q must have prev_patch = null", f.Path()).WithPath(f.Path())
			}
			continue
		}

		prev := files[i-1]
		if f.PatchIndex() <= prev.PatchIndex() {
			return ih5err.Newf(ih5err.ErrBrokenChain, "patch_index %d does not exceed predecessor's %d", f.PatchIndex(), prev.PatchIndex()).WithPath(f.Path())
		}
		if f.PrevPatchUUID() == nil || *f.PrevPatchUUID() != prev.PatchUUID() {
			return ih5err.Newf(ih5err.ErrBrokenChain, "file %q's prev_patch does not match predecessor's patch_uuid %q", f.Path(), prev.PatchUUID()).WithPath(f.Path())
		}
	}

	for i, f := range files {
		isTail := i == len(files)-1
		if f.Hashsum() == nil {
			if !isTail {
				return ih5err.Newf(ih5err.ErrIncompleteTail, "non-tail file %q has no payload hashsum", f.Path()).WithPath(f.Path())
			}
			continue // incomplete writable tail, checked by the caller's open mode
		}
		r, err := f.h5.PayloadHashReader()
		if err != nil {
			return err
		}
		if err := integrity.Verify(r, 0, *f.Hashsum()); err != nil {
			return ih5err.Wrap(ih5err.ErrIntegrityFailure, "payload hashsum mismatch", err).WithPath(f.Path())
		}
	}
	return nil
}
