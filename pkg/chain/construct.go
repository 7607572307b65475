package chain

import (
	"github.com/metador-go/ih5/pkg/h5file"
	"github.com/metador-go/ih5/pkg/userblock"
)

// NewFile wraps an already-open h5file.File and its administrative
// user-block into a chain File. Exported for callers (pkg/stub,
// pkg/manifest) that assemble a chain's files outside the normal Open path.
func NewFile(h *h5file.File, ub userblock.UserBlock, cfg Config) *File {
	return &File{h5: h, ub: ub, config: cfg}
}

// WrapSingleFile returns a Chain containing exactly f, in the given state.
// Used by pkg/stub to finish constructing a stub base (Writable, then
// committed through the normal CommitPatch path) and by pkg/manifest to
// wrap a freshly created tail before running its extended commit sequence.
func WrapSingleFile(dir, name string, f *File, state State, cfg Config) *Chain {
	return &Chain{dir: dir, name: name, files: []*File{f}, cfg: cfg, state: state}
}
