// Package manifest implements the sidecar mechanism of §4.9/§4.10: a JSON
// file carrying a chain's skeleton and its tail user-block, plus the
// manifest-aware chain variant that embeds a link to that sidecar in the
// tail's user-block extension section and validates it on open.
package manifest

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/google/uuid"

	"github.com/metador-go/ih5/pkg/ih5err"
	"github.com/metador-go/ih5/pkg/skeleton"
	"github.com/metador-go/ih5/pkg/userblock"
)

// Manifest is the decoded contents of a sidecar file (§6.3).
type Manifest struct {
	ManifestUUID string              `json:"manifest_uuid"`
	UserBlock    userblock.UserBlock `json:"user_block"`
	Skeleton     *skeleton.Skeleton  `json:"skeleton"`
	Exts         map[string]any      `json:"manifest_exts"`
}

// Build assembles a fresh Manifest for the chain described by files (oldest
// first), snapshotting tailUB with its own extension section stripped to
// avoid embedding a self-reference (§4.9).
func Build(files []skeleton.FileView, tailUB userblock.UserBlock, exts map[string]any) *Manifest {
	return &Manifest{
		ManifestUUID: uuid.NewString(),
		UserBlock:    tailUB.WithoutExt(userblock.ManifestExtKey),
		Skeleton:     skeleton.Extract(files),
		Exts:         exts,
	}
}

// Marshal renders mf as newline-terminated UTF-8 JSON (§6.3).
func (mf *Manifest) Marshal() ([]byte, error) {
	data, err := json.Marshal(mf)
	if err != nil {
		return nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "marshaling manifest", err)
	}
	return append(data, '\n'), nil
}

// Save writes mf's canonical JSON encoding to path.
func (mf *Manifest) Save(path string) error {
	data, err := mf.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ih5err.Wrap(ih5err.ErrCorruptUserBlock, "writing manifest sidecar", err).WithPath(path)
	}
	return nil
}

// Load reads and parses the manifest sidecar at path, returning both the
// decoded Manifest and its raw bytes (needed by callers that must hash
// exactly the file's on-disk content, e.g. create_stub).
func Load(path string) (*Manifest, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "reading manifest sidecar", err).WithPath(path)
	}
	var mf Manifest
	if err := json.Unmarshal(bytes.TrimRight(data, "\n"), &mf); err != nil {
		return nil, nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "parsing manifest sidecar", err).WithPath(path)
	}
	return &mf, data, nil
}

// DecodeExt extracts the manifest-aware extension section from ub, if
// present. The value may be a freshly-set userblock.ManifestExt (same
// process, pre-commit) or a map[string]any produced by a JSON round-trip
// (read back from disk); both decode identically via a re-marshal.
func DecodeExt(ub userblock.UserBlock) (userblock.ManifestExt, bool, error) {
	raw, ok := ub.Exts[userblock.ManifestExtKey]
	if !ok {
		return userblock.ManifestExt{}, false, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return userblock.ManifestExt{}, false, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "re-marshaling manifest extension", err)
	}
	var ext userblock.ManifestExt
	if err := json.Unmarshal(data, &ext); err != nil {
		return userblock.ManifestExt{}, false, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "decoding manifest extension", err)
	}
	return ext, true, nil
}
