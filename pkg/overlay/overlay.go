// Package overlay implements the virtual merged tree over a chain's ordered
// file list (§4.5): Group, Dataset, and AttributeSet objects that resolve
// reads and writes across files, honoring deletion markers and group
// substitution markers with most-recent-writer-wins semantics.
//
// Nothing here persists state of its own; every VirtualNode is reconstructed
// on demand from an Overlay (the ordered file list) and a path, exactly as
// §4.5.1/§4.5.5 specify.
package overlay

import (
	"path"
	"strings"

	"github.com/metador-go/ih5/pkg/h5file"
	"github.com/metador-go/ih5/pkg/ih5err"
	"github.com/metador-go/ih5/pkg/metrics"
)

// FileView is the slice of *chain.File the overlay needs: the payload tree
// and whether this file's handle is open for writing. pkg/chain.File
// satisfies this without pkg/overlay importing pkg/chain, keeping the
// dependency one-directional (chain -> overlay, for MergeFiles).
type FileView interface {
	Tree() *h5file.Tree
	IsWritable() bool
}

// DeletionMarker is the fixed sentinel raw value (ASCII DELETE, 0x7F) that
// marks a path as logically absent from and after the file that carries it
// (§4.5.2).
var DeletionMarker = h5file.RawValue([]byte{0x7F})

// SubstitutionKey is the reserved attribute key (ASCII SUBSTITUTE, 0x1A) that
// marks a group as non-virtual: explicitly (re)created here, overriding any
// earlier content at its path (§4.5.2).
const SubstitutionKey = "\x1A"

func isDeletionMarker(v h5file.Value) bool {
	return !v.Empty && len(v.Raw) == len(DeletionMarker.Raw) && string(v.Raw) == string(DeletionMarker.Raw)
}

// IsForbiddenValue reports whether v is the reserved deletion sentinel and
// therefore may never be written as ordinary user data (§4.5.4 "Forbidden on
// write").
func IsForbiddenValue(v h5file.Value) bool {
	return isDeletionMarker(v)
}

func isSubstituted(tree *h5file.Tree, nodePath string) bool {
	_, ok := tree.GetAttribute(nodePath, SubstitutionKey)
	return ok
}

// Overlay is the merged view over an ordered (oldest-first) list of files.
type Overlay struct {
	files   []FileView
	metrics metrics.ChainMetrics
}

// New returns an Overlay over files, oldest (base) first, newest (tail)
// last — the same order pkg/chain.Chain.Files() returns.
func New(files []FileView) *Overlay {
	return &Overlay{files: files}
}

// SetMetrics attaches a ChainMetrics recorder, used to record how many files
// Resolve had to walk before landing on an answer (§C.6). Nil is valid and
// leaves resolution unobserved.
func (o *Overlay) SetMetrics(m metrics.ChainMetrics) {
	o.metrics = m
}

// NumFiles returns the number of files the overlay spans.
func (o *Overlay) NumFiles() int { return len(o.files) }

// tailIndex is the slot of the most recently appended file.
func (o *Overlay) tailIndex() int { return len(o.files) - 1 }

// writableTree returns the tail's tree if the chain currently has a writable
// tail, or ReadOnly otherwise.
func (o *Overlay) writableTree() (*h5file.Tree, error) {
	if len(o.files) == 0 {
		return nil, ih5err.New(ih5err.ErrNotOpen, "overlay has no files")
	}
	tail := o.files[o.tailIndex()]
	if !tail.IsWritable() {
		return nil, ih5err.New(ih5err.ErrReadOnly, "chain has no writable tail")
	}
	return tail.Tree(), nil
}

// Resolve reports whether path exists in the merged view when considering
// only files at slot >= fromIndex, walking newest to oldest per §4.5.3. It
// returns the entity's kind and the creation index a Group view rooted at
// path should use for further (child) lookups: the slot of the most recent
// substitution if the path was ever explicitly (re)created, or the oldest
// slot holding it as a virtual group if every occurrence was virtual.
func (o *Overlay) Resolve(nodePath string, fromIndex int) (kind h5file.Kind, creationIndex int, ok bool) {
	oldestVirtual := -1
	depth := 0
	for s := o.tailIndex(); s >= fromIndex; s-- {
		depth++
		tree := o.files[s].Tree()
		if !tree.Exists(nodePath) {
			continue
		}
		k, _ := tree.Kind(nodePath)
		if k == h5file.KindDataset {
			v, _ := tree.GetDataset(nodePath)
			if isDeletionMarker(v) {
				metrics.ObserveOverlayResolution(o.metrics, depth)
				return 0, 0, false
			}
			metrics.ObserveOverlayResolution(o.metrics, depth)
			return h5file.KindDataset, s, true
		}
		// k == KindGroup
		if isSubstituted(tree, nodePath) {
			metrics.ObserveOverlayResolution(o.metrics, depth)
			return h5file.KindGroup, s, true
		}
		oldestVirtual = s
	}
	metrics.ObserveOverlayResolution(o.metrics, depth)
	if oldestVirtual >= 0 {
		// The path only ever appeared as an implicit ancestor group; use the
		// oldest such slot as the lower bound for child lookups, not fromIndex.
		return h5file.KindGroup, oldestVirtual, true
	}
	return 0, 0, false
}

// resolveBelow is Resolve restricted to slots strictly below the tail,
// used by write operations to decide whether an override marker or
// materialization is needed.
func (o *Overlay) resolveBelow(nodePath string, fromIndex int) (kind h5file.Kind, ok bool) {
	if o.tailIndex() == 0 {
		return 0, false
	}
	sawVirtual := false
	for s := o.tailIndex() - 1; s >= fromIndex; s-- {
		tree := o.files[s].Tree()
		if !tree.Exists(nodePath) {
			continue
		}
		k, _ := tree.Kind(nodePath)
		if k == h5file.KindDataset {
			v, _ := tree.GetDataset(nodePath)
			if isDeletionMarker(v) {
				return 0, false
			}
			return h5file.KindDataset, true
		}
		if isSubstituted(tree, nodePath) {
			return h5file.KindGroup, true
		}
		sawVirtual = true
	}
	if sawVirtual {
		return h5file.KindGroup, true
	}
	return 0, false
}

// Children merges the direct children of the group at groupPath across every
// file from fromIndex onward (newest to oldest), keeping the newest
// occurrence per name and filtering out names whose newest version is a
// deletion marker (§4.5.3).
func (o *Overlay) Children(groupPath string, fromIndex int) map[string]h5file.Kind {
	seen := make(map[string]bool)
	result := make(map[string]h5file.Kind)
	for s := o.tailIndex(); s >= fromIndex; s-- {
		tree := o.files[s].Tree()
		children, ok := tree.Children(groupPath)
		if !ok {
			continue
		}
		for name, kind := range children {
			if seen[name] {
				continue
			}
			seen[name] = true
			if kind == h5file.KindDataset {
				childPath := path.Join(groupPath, name)
				v, _ := tree.GetDataset(childPath)
				if isDeletionMarker(v) {
					continue
				}
			}
			result[name] = kind
		}
	}
	return result
}

// Attributes merges the attribute set of the node at nodePath across every
// file from fromIndex onward, filtering out the substitution-marker key and
// names whose newest value is a deletion marker.
func (o *Overlay) Attributes(nodePath string, fromIndex int) map[string]h5file.Value {
	seen := make(map[string]bool)
	result := make(map[string]h5file.Value)
	for s := o.tailIndex(); s >= fromIndex; s-- {
		tree := o.files[s].Tree()
		attrs, ok := tree.Attributes(nodePath)
		if !ok {
			continue
		}
		for key, v := range attrs {
			if key == SubstitutionKey || seen[key] {
				continue
			}
			seen[key] = true
			if isDeletionMarker(v) {
				continue
			}
			result[key] = v
		}
	}
	return result
}

// GetAttribute returns the merged value of attribute key on the node at
// nodePath, searching newest to oldest from fromIndex.
func (o *Overlay) GetAttribute(nodePath, key string, fromIndex int) (h5file.Value, bool) {
	if key == SubstitutionKey {
		return h5file.Value{}, false
	}
	for s := o.tailIndex(); s >= fromIndex; s-- {
		tree := o.files[s].Tree()
		v, ok := tree.GetAttribute(nodePath, key)
		if !ok {
			continue
		}
		if isDeletionMarker(v) {
			return h5file.Value{}, false
		}
		return v, true
	}
	return h5file.Value{}, false
}

// ValidateSegmentName checks a single path segment (group/dataset name)
// against §3.2's printable-ASCII, no-whitespace, no-slash rule. '@' is
// refused as well: skeletons use it to separate a node path from an
// attribute key.
func ValidateSegmentName(name string) error {
	if name == "" || strings.ContainsRune(name, '/') || strings.ContainsRune(name, '@') || !isPrintableASCII(name) {
		return ih5err.Newf(ih5err.ErrInvalidKey, "name %q must be non-empty printable ASCII without whitespace, '/' or '@'", name)
	}
	return nil
}

// ValidateAttrKey checks an attribute key against §3.2's rule: printable
// ASCII, no whitespace, no '/', and not the reserved substitution marker.
func ValidateAttrKey(key string) error {
	if key == "" || strings.ContainsRune(key, '/') || key == SubstitutionKey || !isPrintableASCII(key) {
		return ih5err.Newf(ih5err.ErrInvalidKey, "attribute key %q must be non-empty printable ASCII without whitespace, '/', or the reserved marker byte", key)
	}
	return nil
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '!' || s[i] > '~' {
			return false
		}
	}
	return true
}

func joinPath(base, name string) string {
	return path.Join("/", base, name)
}
