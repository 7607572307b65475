package overlay

import (
	"github.com/metador-go/ih5/pkg/h5file"
	"github.com/metador-go/ih5/pkg/ih5err"
)

// Dataset is the virtual overlay view of a dataset. Unlike Group, a
// Dataset's creationIndex is not a left bound for merging but the single
// file slot whose content is authoritative for this resolution (§4.5.3:
// "content wins").
type Dataset struct {
	node
}

// Equal reports whether other addresses the same dataset per §4.5.5.
func (d *Dataset) Equal(other *Dataset) bool {
	if other == nil {
		return false
	}
	return d.node.equal(other.node)
}

// contentSlot is the file index holding this dataset's authoritative value.
func (d *Dataset) contentSlot() int { return d.creationIndex }

// Value returns the dataset's current merged value.
func (d *Dataset) Value() (h5file.Value, error) {
	v, ok := d.ov.files[d.contentSlot()].Tree().GetDataset(d.path)
	if !ok {
		return h5file.Value{}, ih5err.Newf(ih5err.ErrNotFound, "%q does not exist", d.path)
	}
	return v, nil
}

// inTail reports whether this dataset's content already lives in the
// writable tail file.
func (d *Dataset) inTail() bool {
	return d.contentSlot() == d.ov.tailIndex()
}

// SetValue overwrites the dataset's value. It always writes through the
// writable tail, regardless of where the dataset's current content lives
// (a whole-value replace does not need the old value, unlike CopyIntoPatch
// or partial index access).
func (d *Dataset) SetValue(v h5file.Value) (*Dataset, error) {
	if IsForbiddenValue(v) {
		return nil, ih5err.New(ih5err.ErrForbiddenValue, "cannot write the reserved deletion sentinel as a user value")
	}
	tail, err := d.ov.writableTree()
	if err != nil {
		return nil, err
	}
	if err := tail.CreateDataset(d.path, v); err != nil {
		return nil, err
	}
	return &Dataset{node{ov: d.ov, path: d.path, creationIndex: d.ov.tailIndex()}}, nil
}

// CopyIntoPatch materializes this dataset's current value into the writable
// tail file without changing it, so it can subsequently be edited in place
// (§4.5.4's copy_into_patch helper). It is a no-op (returning d unchanged)
// if the content already lives in the tail.
func (d *Dataset) CopyIntoPatch() (*Dataset, error) {
	if d.inTail() {
		return d, nil
	}
	v, err := d.Value()
	if err != nil {
		return nil, err
	}
	tail, err := d.ov.writableTree()
	if err != nil {
		return nil, err
	}
	if err := tail.CreateDataset(d.path, v); err != nil {
		return nil, err
	}
	return &Dataset{node{ov: d.ov, path: d.path, creationIndex: d.ov.tailIndex()}}, nil
}

// Slice returns the raw bytes of the dataset's value from offset for length
// bytes, the overlay's stand-in for HDF5 numeric dataset indexing over a
// byte-oriented payload.
func (d *Dataset) Slice(offset, length int) ([]byte, error) {
	v, err := d.Value()
	if err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 || offset+length > len(v.Raw) {
		return nil, ih5err.Newf(ih5err.ErrInvalidKey, "slice [%d:%d] out of range for dataset of length %d", offset, offset+length, len(v.Raw))
	}
	out := make([]byte, length)
	copy(out, v.Raw[offset:offset+length])
	return out, nil
}

// SetSlice overwrites length bytes at offset with data. Per §4.5.4, index
// access is only passed through (writable) when the dataset already lives
// in the tail file and the chain is writable; otherwise it fails ReadOnly,
// mirroring how a non-tail file is always read-only regardless of mode.
func (d *Dataset) SetSlice(offset int, data []byte) error {
	if !d.inTail() {
		return ih5err.New(ih5err.ErrReadOnly, "dataset is not in the writable tail; call CopyIntoPatch first")
	}
	tail, err := d.ov.writableTree()
	if err != nil {
		return err
	}
	v, ok := tail.GetDataset(d.path)
	if !ok {
		return ih5err.Newf(ih5err.ErrNotFound, "%q does not exist in the tail", d.path)
	}
	if offset < 0 || offset+len(data) > len(v.Raw) {
		return ih5err.Newf(ih5err.ErrInvalidKey, "slice [%d:%d] out of range for dataset of length %d", offset, offset+len(data), len(v.Raw))
	}
	raw := append([]byte(nil), v.Raw...)
	copy(raw[offset:], data)
	return tail.SetDatasetValue(d.path, h5file.RawValue(raw))
}

// Attrs returns the attribute set attached to this dataset.
func (d *Dataset) Attrs() *AttributeSet {
	return &AttributeSet{node: d.node, isRootOrGroup: false}
}
