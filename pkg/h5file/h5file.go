// Package h5file implements the HDF5-like collaborator left as an external
// interface by the format's specification (an implementation providing
// groups, datasets, attributes, and a reserved fixed-size user-block). It is
// a single-file, single-writer container: everything past the reserved
// user-block region is a gob-encoded tree of groups and datasets.
//
// This is the one package in the repository built on the standard library
// for its payload codec rather than a third-party library — see DESIGN.md
// for why no importable pure-Go single-file HDF5 writer in the retrieval
// pack could serve this role.
package h5file

import (
	"path"
	"strings"
	"sync"

	"github.com/metador-go/ih5/pkg/ih5err"
)

// Kind identifies what a tree entry represents.
type Kind int

const (
	KindGroup Kind = iota
	KindDataset
)

func (k Kind) String() string {
	if k == KindGroup {
		return "group"
	}
	return "dataset"
}

// Value is the content of a dataset or an attribute. Empty distinguishes an
// HDF5 "empty" dataspace/value (no storage, used by stub materialization)
// from a zero-length but present raw value.
type Value struct {
	Empty bool
	Raw   []byte
}

// EmptyValue returns a Value representing an HDF5 empty dataspace.
func EmptyValue() Value {
	return Value{Empty: true}
}

// RawValue returns a Value wrapping a copy of b.
func RawValue(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{Raw: cp}
}

// node is one entry of the tree: either a group (with children) or a dataset
// (with a value). Both kinds may carry attributes. Fields are exported so
// encoding/gob can serialize them.
type node struct {
	Kind     Kind
	Value    Value
	Attrs    map[string]Value
	Children map[string]*node
}

func newGroupNode() *node {
	return &node{Kind: KindGroup, Attrs: map[string]Value{}, Children: map[string]*node{}}
}

func newDatasetNode(v Value) *node {
	return &node{Kind: KindDataset, Value: v, Attrs: map[string]Value{}}
}

// Tree is the in-memory payload of a container file: a rooted hierarchy of
// groups and datasets. It is safe for concurrent use; callers normally hold
// the enclosing File's lock instead of relying on this directly.
type Tree struct {
	mu   sync.RWMutex
	root *node
}

// NewTree returns an empty tree containing only the root group.
func NewTree() *Tree {
	return &Tree{root: newGroupNode()}
}

func splitPath(p string) []string {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// lookup walks segs from the root, returning the node and its parent group
// node (nil if segs is empty, i.e. the root itself was requested).
func (t *Tree) lookup(segs []string) (n *node, parent *node, ok bool) {
	cur := t.root
	if len(segs) == 0 {
		return cur, nil, true
	}
	for i, seg := range segs {
		if cur.Kind != KindGroup {
			return nil, nil, false
		}
		child, exists := cur.Children[seg]
		if !exists {
			return nil, nil, false
		}
		if i == len(segs)-1 {
			return child, cur, true
		}
		cur = child
	}
	return nil, nil, false
}

// Exists reports whether a group or dataset exists at path p.
func (t *Tree) Exists(p string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, _, ok := t.lookup(splitPath(p))
	return ok
}

// Kind reports the kind of the node at path p.
func (t *Tree) Kind(p string) (Kind, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, _, ok := t.lookup(splitPath(p))
	if !ok {
		return 0, false
	}
	return n.Kind, true
}

// CreateGroup creates an empty group at path p, creating any missing parent
// groups along the way. It fails with PathConflict if a dataset already
// occupies p or any parent segment.
func (t *Tree) CreateGroup(p string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.mkdirAll(splitPath(p))
	return err
}

func (t *Tree) mkdirAll(segs []string) (*node, error) {
	cur := t.root
	for i, seg := range segs {
		if cur.Kind != KindGroup {
			return nil, ih5err.Newf(ih5err.ErrPathConflict, "segment %q is not a group", strings.Join(segs[:i], "/"))
		}
		child, exists := cur.Children[seg]
		if !exists {
			child = newGroupNode()
			cur.Children[seg] = child
		} else if child.Kind != KindGroup {
			return nil, ih5err.Newf(ih5err.ErrPathConflict, "%q already exists as a dataset", strings.Join(segs[:i+1], "/"))
		}
		cur = child
	}
	return cur, nil
}

// parentGroup ensures every group on the path to (but excluding) the final
// segment exists, returning the parent group node and the final segment name.
func (t *Tree) parentGroup(segs []string) (*node, string, error) {
	if len(segs) == 0 {
		return nil, "", ih5err.New(ih5err.ErrInvalidKey, "cannot create the root itself")
	}
	parent, err := t.mkdirAll(segs[:len(segs)-1])
	if err != nil {
		return nil, "", err
	}
	return parent, segs[len(segs)-1], nil
}

// CreateDataset creates (or overwrites) a dataset at path p with value v,
// creating missing parent groups. Fails with PathConflict if p already
// exists as a group.
func (t *Tree) CreateDataset(p string, v Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	segs := splitPath(p)
	parent, name, err := t.parentGroup(segs)
	if err != nil {
		return err
	}
	if existing, ok := parent.Children[name]; ok && existing.Kind == KindGroup {
		return ih5err.Newf(ih5err.ErrPathConflict, "%q already exists as a group", p)
	}
	parent.Children[name] = newDatasetNode(v)
	return nil
}

// GetDataset returns the value of the dataset at path p.
func (t *Tree) GetDataset(p string) (Value, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, _, ok := t.lookup(splitPath(p))
	if !ok || n.Kind != KindDataset {
		return Value{}, false
	}
	return n.Value, true
}

// SetDatasetValue overwrites the value of an existing dataset at path p.
func (t *Tree) SetDatasetValue(p string, v Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, _, ok := t.lookup(splitPath(p))
	if !ok || n.Kind != KindDataset {
		return ih5err.Newf(ih5err.ErrPathConflict, "%q is not a dataset", p)
	}
	n.Value = v
	return nil
}

// Delete removes the node at path p (group or dataset) from its parent.
func (t *Tree) Delete(p string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	segs := splitPath(p)
	if len(segs) == 0 {
		return ih5err.New(ih5err.ErrInvalidKey, "cannot delete the root group")
	}
	_, parent, ok := t.lookup(segs)
	if !ok {
		return nil // nothing to remove
	}
	delete(parent.Children, segs[len(segs)-1])
	return nil
}

// Children lists the direct children of the group at path p, by name and kind.
func (t *Tree) Children(p string) (map[string]Kind, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, _, ok := t.lookup(splitPath(p))
	if len(splitPath(p)) == 0 {
		n = t.root
		ok = true
	}
	if !ok || n.Kind != KindGroup {
		return nil, false
	}
	out := make(map[string]Kind, len(n.Children))
	for name, child := range n.Children {
		out[name] = child.Kind
	}
	return out, true
}

// Attributes returns a copy of the attribute map of the node at path p.
func (t *Tree) Attributes(p string) (map[string]Value, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	segs := splitPath(p)
	var n *node
	if len(segs) == 0 {
		n = t.root
	} else {
		var ok bool
		n, _, ok = t.lookup(segs)
		if !ok {
			return nil, false
		}
	}
	out := make(map[string]Value, len(n.Attrs))
	for k, v := range n.Attrs {
		out[k] = v
	}
	return out, true
}

// GetAttribute returns the value of attribute key on the node at path p.
func (t *Tree) GetAttribute(p, key string) (Value, bool) {
	attrs, ok := t.Attributes(p)
	if !ok {
		return Value{}, false
	}
	v, ok := attrs[key]
	return v, ok
}

// SetAttribute sets attribute key to v on the node at path p, creating
// missing parent groups if p itself does not yet exist as a group.
func (t *Tree) SetAttribute(p, key string, v Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	segs := splitPath(p)
	var n *node
	if len(segs) == 0 {
		n = t.root
	} else {
		var err error
		n, err = t.mkdirAll(segs)
		if err != nil {
			// p may address an existing dataset rather than a group.
			var ok bool
			n, _, ok = t.lookup(segs)
			if !ok {
				return err
			}
		}
	}
	n.Attrs[key] = v
	return nil
}

// DeleteAttribute removes attribute key from the node at path p.
func (t *Tree) DeleteAttribute(p, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	segs := splitPath(p)
	var n *node
	if len(segs) == 0 {
		n = t.root
	} else {
		var ok bool
		n, _, ok = t.lookup(segs)
		if !ok {
			return nil
		}
	}
	delete(n.Attrs, key)
	return nil
}

// clone deep-copies a node subtree.
func (n *node) clone() *node {
	cp := &node{Kind: n.Kind, Value: Value{Empty: n.Value.Empty, Raw: append([]byte(nil), n.Value.Raw...)}}
	if n.Attrs != nil {
		cp.Attrs = make(map[string]Value, len(n.Attrs))
		for k, v := range n.Attrs {
			cp.Attrs[k] = Value{Empty: v.Empty, Raw: append([]byte(nil), v.Raw...)}
		}
	}
	if n.Children != nil {
		cp.Children = make(map[string]*node, len(n.Children))
		for k, v := range n.Children {
			cp.Children[k] = v.clone()
		}
	}
	return cp
}

// CopySubtree deep-copies the subtree rooted at srcPath in t into dstPath of
// dst (which may be the same tree), creating parent groups of dstPath as
// needed. It fails with PathConflict if dstPath already exists as a group
// while srcPath is a dataset, or vice versa.
func (t *Tree) CopySubtree(srcPath string, dst *Tree, dstPath string) error {
	t.mu.RLock()
	srcSegs := splitPath(srcPath)
	var src *node
	if len(srcSegs) == 0 {
		src = t.root
	} else {
		var ok bool
		src, _, ok = t.lookup(srcSegs)
		if !ok {
			t.mu.RUnlock()
			return ih5err.Newf(ih5err.ErrPathConflict, "%q does not exist", srcPath)
		}
	}
	cloned := src.clone()
	t.mu.RUnlock()

	dst.mu.Lock()
	defer dst.mu.Unlock()
	dstSegs := splitPath(dstPath)
	if len(dstSegs) == 0 {
		dst.root = cloned
		return nil
	}
	parent, name, err := dst.parentGroup(dstSegs)
	if err != nil {
		return err
	}
	parent.Children[name] = cloned
	return nil
}

// VisitFunc is called once per descendant of the visited path (not the path
// itself), in an unspecified order, with its absolute path and kind.
type VisitFunc func(path string, kind Kind) error

// Visit walks every descendant of the group at path p, calling fn for each.
func (t *Tree) Visit(p string, fn VisitFunc) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	segs := splitPath(p)
	var n *node
	if len(segs) == 0 {
		n = t.root
	} else {
		var ok bool
		n, _, ok = t.lookup(segs)
		if !ok {
			return ih5err.Newf(ih5err.ErrPathConflict, "%q does not exist", p)
		}
	}
	return visitChildren(n, p, fn)
}

func visitChildren(n *node, base string, fn VisitFunc) error {
	if n.Kind != KindGroup {
		return nil
	}
	for name, child := range n.Children {
		childPath := path.Join(base, name)
		if err := fn(childPath, child.Kind); err != nil {
			return err
		}
		if err := visitChildren(child, childPath, fn); err != nil {
			return err
		}
	}
	return nil
}
