package overlay

import (
	"sort"

	"github.com/metador-go/ih5/pkg/h5file"
	"github.com/metador-go/ih5/pkg/ih5err"
)

// Group is the virtual overlay view of a group: a container for named
// children (groups or datasets) merged across every file in the chain from
// its creation index onward (§4.5.1).
type Group struct {
	node
}

// Root returns the virtual root group ("/") of the chain described by
// files, ordered oldest (base) first, newest (tail) last.
func Root(files []FileView) *Group {
	return &Group{node{ov: New(files), path: "/", creationIndex: 0}}
}

// RootOf returns the virtual root group of an already-constructed Overlay,
// used by callers (e.g. pkg/skeleton) that build one Overlay and need
// several independent views into it.
func RootOf(ov *Overlay) *Group {
	return &Group{node{ov: ov, path: "/", creationIndex: 0}}
}

// Equal reports whether other addresses the same group per §4.5.5.
func (g *Group) Equal(other *Group) bool {
	if other == nil {
		return false
	}
	return g.node.equal(other.node)
}

// Contains reports whether name exists as an immediate child of g.
func (g *Group) Contains(name string) bool {
	children := g.ov.Children(g.path, g.creationIndex)
	_, ok := children[name]
	return ok
}

// Kind returns the kind of the immediate child name, if any.
func (g *Group) Kind(name string) (h5file.Kind, bool) {
	children := g.ov.Children(g.path, g.creationIndex)
	k, ok := children[name]
	return k, ok
}

// Len returns the number of immediate children.
func (g *Group) Len() int {
	return len(g.ov.Children(g.path, g.creationIndex))
}

// Keys returns the immediate children's names, sorted for deterministic
// iteration (the underlying merge is order-independent; sorting here just
// gives callers a stable enumeration akin to h5py's lexicographic default).
func (g *Group) Keys() []string {
	children := g.ov.Children(g.path, g.creationIndex)
	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get resolves name to either a *Group or a *Dataset. It returns
// ErrNotFound if no child of that name is visible in the merged view.
func (g *Group) Get(name string) (any, error) {
	if err := ValidateSegmentName(name); err != nil {
		return nil, err
	}
	childPath := joinPath(g.path, name)
	kind, idx, ok := g.ov.Resolve(childPath, g.creationIndex)
	if !ok {
		return nil, ih5err.Newf(ih5err.ErrNotFound, "%q does not exist", childPath)
	}
	if kind == h5file.KindGroup {
		return &Group{node{ov: g.ov, path: childPath, creationIndex: idx}}, nil
	}
	return &Dataset{node{ov: g.ov, path: childPath, creationIndex: idx}}, nil
}

// RequireGroup returns the existing group at name, or creates it if absent.
// It fails with PathConflict if name already exists as a dataset.
func (g *Group) RequireGroup(name string) (*Group, error) {
	if err := ValidateSegmentName(name); err != nil {
		return nil, err
	}
	childPath := joinPath(g.path, name)
	kind, idx, ok := g.ov.Resolve(childPath, g.creationIndex)
	if ok {
		if kind != h5file.KindGroup {
			return nil, ih5err.Newf(ih5err.ErrPathConflict, "%q already exists as a dataset", childPath)
		}
		return &Group{node{ov: g.ov, path: childPath, creationIndex: idx}}, nil
	}
	return g.CreateGroup(name)
}

// CreateGroup creates a new group at name in the writable tail, setting the
// substitution marker if it overrides a group or dataset visible from an
// older file (§4.5.4). It fails with PathConflict if the tail already has
// an entry at name (delete it first).
func (g *Group) CreateGroup(name string) (*Group, error) {
	if err := ValidateSegmentName(name); err != nil {
		return nil, err
	}
	childPath := joinPath(g.path, name)

	tail, err := g.ov.writableTree()
	if err != nil {
		return nil, err
	}
	if tail.Exists(childPath) {
		return nil, ih5err.Newf(ih5err.ErrPathConflict, "%q already exists in the pending patch; delete it first", childPath)
	}

	_, overridesOlder := g.ov.resolveBelow(childPath, g.creationIndex)
	if err := tail.CreateGroup(childPath); err != nil {
		return nil, err
	}
	if overridesOlder {
		if err := tail.SetAttribute(childPath, SubstitutionKey, h5file.EmptyValue()); err != nil {
			return nil, err
		}
	}

	kind, idx, ok := g.ov.Resolve(childPath, g.creationIndex)
	if !ok || kind != h5file.KindGroup {
		return nil, ih5err.Newf(ih5err.ErrPathConflict, "internal error resolving newly created group %q", childPath)
	}
	return &Group{node{ov: g.ov, path: childPath, creationIndex: idx}}, nil
}

// CreateDataset creates (or, within the same pending patch, overwrites) a
// dataset at name with value v. It fails with ForbiddenValue if v is the
// reserved deletion sentinel, and with PathConflict if name is currently a
// group in the tail.
func (g *Group) CreateDataset(name string, v h5file.Value) (*Dataset, error) {
	if err := ValidateSegmentName(name); err != nil {
		return nil, err
	}
	if IsForbiddenValue(v) {
		return nil, ih5err.New(ih5err.ErrForbiddenValue, "cannot write the reserved deletion sentinel as a user value")
	}
	childPath := joinPath(g.path, name)

	tail, err := g.ov.writableTree()
	if err != nil {
		return nil, err
	}
	if err := tail.CreateDataset(childPath, v); err != nil {
		return nil, err
	}

	kind, idx, ok := g.ov.Resolve(childPath, g.creationIndex)
	if !ok || kind != h5file.KindDataset {
		return nil, ih5err.Newf(ih5err.ErrPathConflict, "internal error resolving newly created dataset %q", childPath)
	}
	return &Dataset{node{ov: g.ov, path: childPath, creationIndex: idx}}, nil
}

// RequireDataset returns the existing dataset at name, or creates it with
// value v if absent. It fails with PathConflict if name already exists as a
// group.
func (g *Group) RequireDataset(name string, v h5file.Value) (*Dataset, error) {
	if err := ValidateSegmentName(name); err != nil {
		return nil, err
	}
	childPath := joinPath(g.path, name)
	kind, idx, ok := g.ov.Resolve(childPath, g.creationIndex)
	if ok {
		if kind != h5file.KindDataset {
			return nil, ih5err.Newf(ih5err.ErrPathConflict, "%q already exists as a group", childPath)
		}
		return &Dataset{node{ov: g.ov, path: childPath, creationIndex: idx}}, nil
	}
	return g.CreateDataset(name, v)
}

// Delete removes the child at name. If no earlier file has anything at that
// path, only the in-tail occurrence is removed; otherwise a deletion marker
// is written in the tail, creating virtual ancestor groups as needed
// (§4.5.4). Deleting a name with nothing visible in the merged view fails
// with ErrNotFound (idempotence law, §8.2: a repeated delete is an error).
func (g *Group) Delete(name string) error {
	if err := ValidateSegmentName(name); err != nil {
		return err
	}
	childPath := joinPath(g.path, name)

	if _, _, ok := g.ov.Resolve(childPath, g.creationIndex); !ok {
		return ih5err.Newf(ih5err.ErrNotFound, "%q does not exist", childPath)
	}

	tail, err := g.ov.writableTree()
	if err != nil {
		return err
	}
	if tail.Exists(childPath) {
		if err := tail.Delete(childPath); err != nil {
			return err
		}
	}

	_, overridesOlder := g.ov.resolveBelow(childPath, g.creationIndex)
	if overridesOlder {
		if err := tail.CreateDataset(childPath, DeletionMarker); err != nil {
			return err
		}
	}
	return nil
}

// Attrs returns the attribute set attached to this group.
func (g *Group) Attrs() *AttributeSet {
	return &AttributeSet{node: g.node, isRootOrGroup: true}
}

// VisitFunc is called once per descendant of a visited group, with its path
// relative to that group and its kind (§6.5 visit/visititems).
type VisitFunc func(relPath string, kind h5file.Kind) error

// Visit walks every descendant of g in an unspecified order, calling fn with
// each entry's path relative to g.
func (g *Group) Visit(fn VisitFunc) error {
	return g.visit("", fn)
}

func (g *Group) visit(prefix string, fn VisitFunc) error {
	children := g.ov.Children(g.path, g.creationIndex)
	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		kind := children[name]
		rel := name
		if prefix != "" {
			rel = prefix + "/" + name
		}
		if err := fn(rel, kind); err != nil {
			return err
		}
		if kind == h5file.KindGroup {
			child, err := g.Get(name)
			if err != nil {
				return err
			}
			if err := child.(*Group).visit(rel, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
