package chain

import (
	"context"
	"os"
	"time"

	"github.com/metador-go/ih5/internal/telemetry"
	"github.com/metador-go/ih5/pkg/h5file"
	"github.com/metador-go/ih5/pkg/ih5err"
	"github.com/metador-go/ih5/pkg/metrics"
	"github.com/metador-go/ih5/pkg/naming"
	"github.com/metador-go/ih5/pkg/overlay"
)

// FileViews exposes the chain's ordered files as overlay.FileView, letting
// pkg/overlay resolve reads/writes without importing pkg/chain (keeping the
// dependency one-directional: chain -> overlay).
func (c *Chain) FileViews() []overlay.FileView {
	c.mu.Lock()
	defer c.mu.Unlock()
	views := make([]overlay.FileView, len(c.files))
	for i, f := range c.files {
		views[i] = f
	}
	return views
}

// MergeFiles creates a new single-file chain at dir/name holding a deep copy
// of c's merged view (§4.6). c must be ReadOnly. The resulting file's
// administrative identity (chain_uuid, patch_index, patch_uuid) is inherited
// from c's tail; prev_patch is set to c's base's own predecessor (normally
// nil, preserved as-is for a baseless subchain applied over a stub).
func (c *Chain) MergeFiles(dir, name string) (merged *Chain, err error) {
	_, span := telemetry.StartChainSpan(context.Background(), telemetry.SpanChainMergeFiles, c.name)
	start := time.Now()
	filesMerged := 0
	defer func() {
		metrics.ObserveMerge(c.cfg.Metrics, time.Since(start), filesMerged, err)
		if err != nil {
			telemetry.RecordError(context.Background(), err)
		}
		span.End()
	}()

	c.mu.Lock()
	if c.state != StateReadOnly {
		c.mu.Unlock()
		return nil, ih5err.New(ih5err.ErrReadOnly, "cannot merge a chain with a pending writable patch")
	}
	if len(c.files) == 0 {
		c.mu.Unlock()
		return nil, ih5err.New(ih5err.ErrNotOpen, "chain has no open files")
	}
	base := c.files[0]
	tail := c.files[len(c.files)-1]
	views := make([]overlay.FileView, len(c.files))
	for i, f := range c.files {
		views[i] = f
	}
	c.mu.Unlock()

	if err := naming.ValidateName(name); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "creating merge target directory", err).WithPath(dir)
	}
	targetPath := naming.BasePath(dir, name)

	h, err := h5file.Create(targetPath, c.cfg.ReservedUserBlockSize, os.O_EXCL)
	if err != nil {
		return nil, err
	}

	ov := overlay.New(views)
	ov.SetMetrics(c.cfg.Metrics)
	root := overlay.RootOf(ov)
	if err := overlay.Materialize(root, h.Tree()); err != nil {
		_ = h.Close()
		_ = os.Remove(targetPath)
		return nil, err
	}

	ub := tail.UserBlock()
	ub.PrevPatch = base.PrevPatchUUID()
	ub.HDF5Hashsum = nil
	if err := h.WriteUserBlock(ub); err != nil {
		_ = h.Close()
		_ = os.Remove(targetPath)
		return nil, err
	}

	filesMerged = len(views)
	merged = &Chain{
		dir:   dir,
		name:  name,
		files: []*File{{h5: h, ub: ub, config: c.cfg}},
		cfg:   c.cfg,
		state: StateWritable,
	}
	if err := merged.CommitPatch(); err != nil {
		return nil, err
	}
	return merged, nil
}
