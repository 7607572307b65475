package overlay

import "github.com/metador-go/ih5/pkg/h5file"

// Materialize deep-copies the merged view rooted at g into dst, a single
// flat tree with no chain history: every attribute, group, and dataset
// visible through the overlay, with deletion and substitution markers
// already resolved away by Group/AttributeSet's merge logic. Used by
// MergeFiles (§4.6) and by the stub initializer's "real" counterpart
// (copying a concrete chain's content rather than its empty skeleton).
func Materialize(g *Group, dst *h5file.Tree) error {
	return materializeGroup(g, "/", dst)
}

func materializeGroup(g *Group, dstPath string, dst *h5file.Tree) error {
	for key, v := range g.ov.Attributes(g.path, g.creationIndex) {
		if err := dst.SetAttribute(dstPath, key, v); err != nil {
			return err
		}
	}

	for _, name := range g.Keys() {
		kind, _ := g.Kind(name)
		childDstPath := joinPath(dstPath, name)

		entry, err := g.Get(name)
		if err != nil {
			return err
		}

		switch kind {
		case h5file.KindGroup:
			if err := dst.CreateGroup(childDstPath); err != nil {
				return err
			}
			if err := materializeGroup(entry.(*Group), childDstPath, dst); err != nil {
				return err
			}
		default:
			ds := entry.(*Dataset)
			v, err := ds.Value()
			if err != nil {
				return err
			}
			if err := dst.CreateDataset(childDstPath, v); err != nil {
				return err
			}
			for key, av := range ds.Attrs().Items() {
				if err := dst.SetAttribute(childDstPath, key, av); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
