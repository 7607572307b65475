package chain

import (
	"github.com/metador-go/ih5/pkg/h5file"
	"github.com/metador-go/ih5/pkg/userblock"
)

// File is one physical file in a chain: a handle into pkg/h5file plus the
// administrative user-block record that identifies its place in the chain.
type File struct {
	h5     *h5file.File
	ub     userblock.UserBlock
	config Config
}

// Tree returns the payload tree, satisfying overlay.FileView.
func (f *File) Tree() *h5file.Tree { return f.h5.Tree() }

// PatchIndex returns the file's position in the chain, satisfying overlay.FileView.
func (f *File) PatchIndex() int { return f.ub.PatchIndex }

// PatchUUID returns the file's own identity, satisfying overlay.FileView.
func (f *File) PatchUUID() string { return f.ub.PatchUUID }

// PrevPatchUUID returns the predecessor's identity, or nil for the base.
func (f *File) PrevPatchUUID() *string { return f.ub.PrevPatch }

// ChainUUID returns the record identity shared by every file in the chain.
func (f *File) ChainUUID() string { return f.ub.RecordUUID }

// Hashsum returns the committed payload hashsum, or nil if this file is an
// incomplete writable tail.
func (f *File) Hashsum() *string { return f.ub.HDF5Hashsum }

// IsWritable reports whether this file's underlying handle is open for
// writing. Only ever true for the tail.
func (f *File) IsWritable() bool { return f.h5.Writable() }

// Path returns the file's path on disk.
func (f *File) Path() string { return f.h5.Path() }

// UserBlock returns a copy of the administrative record.
func (f *File) UserBlock() userblock.UserBlock { return f.ub.Clone() }

// Extensions returns the ub_exts map, never nil.
func (f *File) Extensions() map[string]any {
	if f.ub.Exts == nil {
		return map[string]any{}
	}
	return f.ub.Exts
}

func (f *File) close() error {
	return f.h5.Close()
}
