// Package skeleton implements the structural map extractor of §4.7: given a
// chain, produce an ordered mapping from every path (excluding root) and
// every "path@attrname" to a record carrying the entity's kind and the
// patch index where it was last touched, without any actual data values.
// This underlies both the manifest sidecar (§4.9) and the stub initializer
// (§4.8).
package skeleton

import (
	"path"
	"sort"
	"strings"

	"github.com/metador-go/ih5/pkg/h5file"
	"github.com/metador-go/ih5/pkg/overlay"
)

// FileView is the slice of a chain file the extractor needs: the payload
// tree (to walk the merged view, via pkg/overlay) and the patch index to
// record against each entry. pkg/chain.File satisfies this.
type FileView interface {
	Tree() *h5file.Tree
	IsWritable() bool
	PatchIndex() int
}

// EntryKind distinguishes a group, a dataset, or an attribute entry.
type EntryKind int

const (
	EntryGroup EntryKind = iota
	EntryDataset
	EntryAttribute
)

func (k EntryKind) String() string {
	switch k {
	case EntryGroup:
		return "group"
	case EntryDataset:
		return "dataset"
	case EntryAttribute:
		return "attribute"
	default:
		return "unknown"
	}
}

// ValueKind records, for a dataset or attribute entry, whether its current
// value is an HDF5 "empty" dataspace, a small scalar-sized raw value, or an
// arbitrary byte blob (§C.7 of the expanded spec — additive to §4.7, used by
// pkg/stub to decide what placeholder shape to materialize).
type ValueKind int

const (
	ValueEmpty ValueKind = iota
	ValueScalar
	ValueBytes
)

// scalarSizeThreshold is the raw-byte length at or below which a value is
// classified Scalar rather than Bytes — generous enough for an encoded
// int64, float64, bool, or short fixed-size record.
const scalarSizeThreshold = 16

func classify(v h5file.Value) ValueKind {
	if v.Empty {
		return ValueEmpty
	}
	if len(v.Raw) <= scalarSizeThreshold {
		return ValueScalar
	}
	return ValueBytes
}

// Entry is one record of a Skeleton.
type Entry struct {
	// Key is the entry's identity: a node path ("g/sub"), or
	// "path@attrname" for an attribute ("@attrname" for a root attribute).
	Key string `json:"key"`
	Kind EntryKind `json:"kind"`
	// PatchIndex is the patch_index of the file that most recently touched
	// this entry (not necessarily the file at the head of the chain).
	PatchIndex int       `json:"patch_index"`
	ValueKind  ValueKind `json:"value_kind"`
}

// Skeleton is the ordered structural map of a chain.
type Skeleton struct {
	Entries []Entry `json:"entries"`
}

// Lookup returns the entry for key, if present.
func (s *Skeleton) Lookup(key string) (Entry, bool) {
	for _, e := range s.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

func (s *Skeleton) add(e Entry) { s.Entries = append(s.Entries, e) }

// Extract builds the Skeleton of the merged view over files, ordered oldest
// (base) first, newest (tail) last.
func Extract(files []FileView) *Skeleton {
	oviews := make([]overlay.FileView, len(files))
	for i, f := range files {
		oviews[i] = f
	}
	ov := overlay.New(oviews)
	root := overlay.RootOf(ov)

	sk := &Skeleton{}
	extractAttrs(root.Path(), root.Attrs(), files, sk)
	walkGroup(root, files, sk)
	sortEntries(sk)
	return sk
}

func walkGroup(g *overlay.Group, files []FileView, sk *Skeleton) {
	for _, name := range g.Keys() {
		kind, _ := g.Kind(name)
		childPath := path.Join(g.Path(), name)

		entry, err := g.Get(name)
		if err != nil {
			continue
		}

		switch kind {
		case h5file.KindGroup:
			sk.add(Entry{
				Key:        displayPath(childPath),
				Kind:       EntryGroup,
				PatchIndex: lastTouched(files, childPath),
				ValueKind:  ValueEmpty,
			})
			child := entry.(*overlay.Group)
			extractAttrs(childPath, child.Attrs(), files, sk)
			walkGroup(child, files, sk)
		default:
			ds := entry.(*overlay.Dataset)
			v, err := ds.Value()
			if err != nil {
				continue
			}
			sk.add(Entry{
				Key:        displayPath(childPath),
				Kind:       EntryDataset,
				PatchIndex: lastTouchedValue(files, childPath),
				ValueKind:  classify(v),
			})
			extractAttrs(childPath, ds.Attrs(), files, sk)
		}
	}
}

func extractAttrs(nodePath string, attrs *overlay.AttributeSet, files []FileView, sk *Skeleton) {
	for _, key := range attrs.Keys() {
		v, err := attrs.Get(key)
		if err != nil {
			continue
		}
		sk.add(Entry{
			Key:        attrKey(nodePath, key),
			Kind:       EntryAttribute,
			PatchIndex: lastTouchedAttr(files, nodePath, key),
			ValueKind:  classify(v),
		})
	}
}

// lastTouched returns the patch_index of the newest file in which path
// exists at all (group or dataset, virtual or not) — the file that most
// recently touched this entry.
func lastTouched(files []FileView, nodePath string) int {
	for i := len(files) - 1; i >= 0; i-- {
		if files[i].Tree().Exists(nodePath) {
			return files[i].PatchIndex()
		}
	}
	return 0
}

// lastTouchedValue is lastTouched specialized for a dataset whose kind at
// nodePath may have changed across files; returns the patch_index of the
// newest file holding a dataset node there.
func lastTouchedValue(files []FileView, nodePath string) int {
	for i := len(files) - 1; i >= 0; i-- {
		tree := files[i].Tree()
		if k, ok := tree.Kind(nodePath); ok && k == h5file.KindDataset {
			return files[i].PatchIndex()
		}
	}
	return 0
}

func lastTouchedAttr(files []FileView, nodePath, key string) int {
	for i := len(files) - 1; i >= 0; i-- {
		if attrs, ok := files[i].Tree().Attributes(nodePath); ok {
			if _, ok := attrs[key]; ok {
				return files[i].PatchIndex()
			}
		}
	}
	return 0
}

func displayPath(p string) string {
	return strings.TrimPrefix(p, "/")
}

func attrKey(nodePath, key string) string {
	return displayPath(nodePath) + "@" + key
}

func sortEntries(sk *Skeleton) {
	sort.SliceStable(sk.Entries, func(i, j int) bool {
		return sk.Entries[i].Key < sk.Entries[j].Key
	})
}
