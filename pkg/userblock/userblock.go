// Package userblock implements the codec for the fixed-size administrative
// header HDF5 reserves at the start of every container file:
//
//	ih5_v01\n<claimed-size-decimal>\n<json-object>\x00<zero-padding>
package userblock

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/metador-go/ih5/pkg/ih5err"
)

// Magic is the fixed string identifying an ih5 container.
const Magic = "ih5_v01"

// MinSize is the smallest allowed reserved user-block size.
const MinSize = 512

// hdf5Signature is the first four bytes of an unreserved HDF5 file; its
// presence means no user-block was carved out at creation time.
var hdf5Signature = []byte("\x89HDF")

// probeSize is how much of the file Load reads before deciding whether it
// must re-read the full claimed size.
const probeSize = 512

// ManifestExtKey is the fixed key under which the manifest-aware variant
// stores its extension section inside UserBlock.Exts.
const ManifestExtKey = "ih5mf_v01"

// UserBlock is the administrative record embedded in every container file.
type UserBlock struct {
	RecordUUID  string         `json:"record_uuid"`
	PatchIndex  int            `json:"patch_index"`
	PatchUUID   string         `json:"patch_uuid"`
	PrevPatch   *string        `json:"prev_patch"`
	HDF5Hashsum *string        `json:"hdf5_hashsum"`
	Exts        map[string]any `json:"ub_exts"`
}

// ManifestExt is the manifest-aware extension section stored under ManifestExtKey.
type ManifestExt struct {
	IsStubContainer bool   `json:"is_stub_container"`
	ManifestUUID    string `json:"manifest_uuid"`
	ManifestHashsum string `json:"manifest_hashsum"`
}

// Clone returns a deep copy suitable for embedding in a derived file (e.g. a
// stub or a merge target) without aliasing the Exts map.
func (ub UserBlock) Clone() UserBlock {
	clone := ub
	if ub.PrevPatch != nil {
		prev := *ub.PrevPatch
		clone.PrevPatch = &prev
	}
	if ub.HDF5Hashsum != nil {
		sum := *ub.HDF5Hashsum
		clone.HDF5Hashsum = &sum
	}
	if ub.Exts != nil {
		clone.Exts = make(map[string]any, len(ub.Exts))
		for k, v := range ub.Exts {
			clone.Exts[k] = v
		}
	}
	return clone
}

// WithoutExt returns a copy of ub with the given extension key removed, used
// to embed a self-referential-free copy of the tail user-block inside a
// manifest sidecar.
func (ub UserBlock) WithoutExt(key string) UserBlock {
	clone := ub.Clone()
	if clone.Exts != nil {
		delete(clone.Exts, key)
	}
	return clone
}

// Serialize renders ub into the "<magic>\n<size>\n<json>\x00<padding>" layout
// for a reserved region of the given size. It fails with ErrUserBlockTooSmall
// if the header plus terminator does not fit.
func Serialize(ub UserBlock, size int) ([]byte, error) {
	payload, err := json.Marshal(ub)
	if err != nil {
		return nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "marshaling user-block", err)
	}
	if bytes.ContainsRune(payload, '\n') {
		return nil, ih5err.New(ih5err.ErrCorruptUserBlock, "serialized user-block JSON must not contain newlines")
	}

	header := append([]byte(Magic+"\n"), []byte(strconv.Itoa(size)+"\n")...)
	header = append(header, payload...)
	header = append(header, 0)

	if len(header) > size {
		return nil, ih5err.Newf(ih5err.ErrUserBlockTooSmall,
			"serialized user-block is %d bytes, reserved region is %d", len(header), size)
	}

	block := make([]byte, size)
	copy(block, header)
	return block, nil
}

// Parse decodes block, the leading bytes of a file, into a UserBlock.
// block must contain at least probeSize bytes, or
// the complete claimed size if that is larger — callers are responsible for
// re-reading per the claimed size as Load does.
func Parse(block []byte) (UserBlock, int, error) {
	if len(hdf5Signature) <= len(block) && bytes.Equal(block[:len(hdf5Signature)], hdf5Signature) {
		return UserBlock{}, 0, ih5err.New(ih5err.ErrNoReservedUserBlock, "file begins with the HDF5 signature; no user-block was reserved")
	}

	firstNL := bytes.IndexByte(block, '\n')
	if firstNL < 0 {
		return UserBlock{}, 0, ih5err.New(ih5err.ErrNotAContainer, "missing magic line")
	}
	magicLine := string(block[:firstNL])
	if magicLine != Magic {
		return UserBlock{}, 0, ih5err.Newf(ih5err.ErrNotAContainer, "magic %q does not match %q", magicLine, Magic)
	}

	rest := block[firstNL+1:]
	secondNL := bytes.IndexByte(rest, '\n')
	if secondNL < 0 {
		return UserBlock{}, 0, ih5err.New(ih5err.ErrCorruptUserBlock, "missing size line")
	}
	sizeStr := string(rest[:secondNL])
	claimedSize, err := atoi(sizeStr)
	if err != nil {
		return UserBlock{}, 0, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "parsing claimed size", err)
	}

	jsonAndPad := rest[secondNL+1:]
	nul := bytes.IndexByte(jsonAndPad, 0)
	if nul < 0 {
		// The probe window may have been too small to contain the NUL; the
		// caller (Load) will re-probe with the full claimed size.
		return UserBlock{}, claimedSize, errNeedFullBlock
	}

	var ub UserBlock
	if err := json.Unmarshal(jsonAndPad[:nul], &ub); err != nil {
		return UserBlock{}, claimedSize, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "unmarshaling user-block json", err)
	}
	return ub, claimedSize, nil
}

// errNeedFullBlock is a sentinel returned by Parse to tell Load the probe
// window didn't contain the terminating NUL and a full re-read is required.
var errNeedFullBlock = ih5err.New(ih5err.ErrCorruptUserBlock, "user-block JSON not terminated within probe window")

// NeedsFullBlock reports whether err indicates the caller should re-read the
// full claimed size and retry Parse.
func NeedsFullBlock(err error) bool {
	return err == errNeedFullBlock
}

func atoi(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ih5err.Newf(ih5err.ErrCorruptUserBlock, "invalid size field %q", s)
	}
	return n, nil
}

// IsPowerOfTwoAtLeastMin reports whether size is a power of two no smaller
// than MinSize, the invariant required of a reserved user-block region.
func IsPowerOfTwoAtLeastMin(size int) bool {
	if size < MinSize {
		return false
	}
	return size&(size-1) == 0
}
