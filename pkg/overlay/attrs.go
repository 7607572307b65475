package overlay

import (
	"sort"

	"github.com/metador-go/ih5/pkg/h5file"
	"github.com/metador-go/ih5/pkg/ih5err"
)

// AttributeSet is the virtual overlay view of the attributes attached to a
// node (root, group, or dataset). Reads merge every file from the owning
// node's creation index (or content slot, for a dataset) onward, newest to
// oldest, filtering out the reserved substitution-marker key (§4.5.3).
type AttributeSet struct {
	node
	isRootOrGroup bool
}

// Contains reports whether key is set on the node.
func (a *AttributeSet) Contains(key string) bool {
	_, ok := a.ov.GetAttribute(a.path, key, a.creationIndex)
	return ok
}

// Get returns the value of key, or ErrNotFound if unset.
func (a *AttributeSet) Get(key string) (h5file.Value, error) {
	v, ok := a.ov.GetAttribute(a.path, key, a.creationIndex)
	if !ok {
		return h5file.Value{}, ih5err.Newf(ih5err.ErrNotFound, "attribute %q not set on %q", key, a.path)
	}
	return v, nil
}

// GetOrDefault returns the value of key, or def if unset (§6.5's
// get-with-default).
func (a *AttributeSet) GetOrDefault(key string, def h5file.Value) h5file.Value {
	v, ok := a.ov.GetAttribute(a.path, key, a.creationIndex)
	if !ok {
		return def
	}
	return v
}

// Keys returns every set attribute name, sorted for deterministic iteration.
func (a *AttributeSet) Keys() []string {
	attrs := a.ov.Attributes(a.path, a.creationIndex)
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of set attributes.
func (a *AttributeSet) Len() int {
	return len(a.ov.Attributes(a.path, a.creationIndex))
}

// Items returns a copy of the full merged attribute map.
func (a *AttributeSet) Items() map[string]h5file.Value {
	return a.ov.Attributes(a.path, a.creationIndex)
}

// ensureInTail makes sure the owning node has some representation in the
// writable tail before an attribute write, materializing a dataset's value
// via copy_into_patch (§4.5.4) or letting the group auto-vivify as a virtual
// group.
func (a *AttributeSet) ensureInTail(tail *h5file.Tree) error {
	if tail.Exists(a.path) {
		return nil
	}
	if a.isRootOrGroup {
		return tail.CreateGroup(a.path)
	}
	// Dataset: copy its current value from its content slot into the tail
	// so the attribute override has something to attach to.
	v, ok := a.ov.files[a.creationIndex].Tree().GetDataset(a.path)
	if !ok {
		return ih5err.Newf(ih5err.ErrNotFound, "%q does not exist", a.path)
	}
	return tail.CreateDataset(a.path, v)
}

// Set sets key to v in the writable tail, materializing the owning node
// into the tail first if needed.
func (a *AttributeSet) Set(key string, v h5file.Value) error {
	if err := ValidateAttrKey(key); err != nil {
		return err
	}
	if IsForbiddenValue(v) {
		return ih5err.New(ih5err.ErrForbiddenValue, "cannot write the reserved deletion sentinel as a user value")
	}
	tail, err := a.ov.writableTree()
	if err != nil {
		return err
	}
	if err := a.ensureInTail(tail); err != nil {
		return err
	}
	return tail.SetAttribute(a.path, key, v)
}

// Delete removes key. If no earlier file sets it, only the in-tail entry is
// removed; otherwise a deletion marker is written for the key in the tail,
// materializing the owning node first if needed. Deleting a key that is not
// visible in the merged view fails with ErrNotFound.
func (a *AttributeSet) Delete(key string) error {
	if err := ValidateAttrKey(key); err != nil {
		return err
	}
	if _, ok := a.ov.GetAttribute(a.path, key, a.creationIndex); !ok {
		return ih5err.Newf(ih5err.ErrNotFound, "attribute %q not set on %q", key, a.path)
	}

	tail, err := a.ov.writableTree()
	if err != nil {
		return err
	}

	existsOlder := false
	if a.ov.tailIndex() > a.creationIndex {
		for s := a.ov.tailIndex() - 1; s >= a.creationIndex; s-- {
			v, ok := a.ov.files[s].Tree().GetAttribute(a.path, key)
			if ok && !isDeletionMarker(v) {
				existsOlder = true
				break
			}
		}
	}

	if tail.Exists(a.path) {
		if v, ok := tail.GetAttribute(a.path, key); ok && !isDeletionMarker(v) {
			if err := tail.DeleteAttribute(a.path, key); err != nil {
				return err
			}
		}
	}

	if existsOlder {
		if err := a.ensureInTail(tail); err != nil {
			return err
		}
		if err := tail.SetAttribute(a.path, key, DeletionMarker); err != nil {
			return err
		}
	}
	return nil
}
