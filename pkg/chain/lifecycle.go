package chain

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/metador-go/ih5/internal/telemetry"
	"github.com/metador-go/ih5/pkg/h5file"
	"github.com/metador-go/ih5/pkg/ih5err"
	"github.com/metador-go/ih5/pkg/integrity"
	"github.com/metador-go/ih5/pkg/metrics"
	"github.com/metador-go/ih5/pkg/naming"
)

// CreatePatch transitions a ReadOnly chain to Writable by appending a fresh
// patch file on top of the current tail (§4.6). It fails if the chain is
// already Writable — the caller must commit or discard the pending patch
// first.
func (c *Chain) CreatePatch() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateWritable {
		return ih5err.New(ih5err.ErrBrokenChain, "chain already has a pending writable patch; commit or discard it first")
	}
	if len(c.files) == 0 {
		return ih5err.New(ih5err.ErrNotOpen, "chain has no open files")
	}

	tail := c.files[len(c.files)-1]
	path := naming.PatchPath(c.dir, c.name, tail.PatchIndex()+1)

	h, err := h5file.Create(path, c.cfg.ReservedUserBlockSize, os.O_EXCL)
	if err != nil {
		return err
	}

	prevUUID := tail.PatchUUID()
	ub := tail.UserBlock()
	ub.PatchIndex = tail.PatchIndex() + 1
	ub.PatchUUID = uuid.NewString()
	ub.PrevPatch = &prevUUID
	ub.HDF5Hashsum = nil
	if ub.Exts != nil {
		// Extension sections (e.g. the manifest-aware stub flag) never
		// carry forward automatically; each committed file earns its own.
		ub.Exts = map[string]any{}
	}

	if err := h.WriteUserBlock(ub); err != nil {
		_ = h.Close()
		_ = os.Remove(path)
		return err
	}

	c.files = append(c.files, &File{h5: h, ub: ub, config: c.cfg})
	c.state = StateWritable
	return nil
}

// CommitPatch finalizes the pending writable tail per §4.6: flush the
// payload, compute its hashsum, rewrite the user-block in place, and reopen
// read-only. On failure the tail file is left on disk in a recoverable state
// (§7 propagation policy) so the caller may retry, discard, or abort.
func (c *Chain) CommitPatch() (err error) {
	_, span := telemetry.StartChainSpan(context.Background(), telemetry.SpanChainCommitPatch, c.name)
	start := time.Now()
	defer func() {
		metrics.ObserveCommit(c.cfg.Metrics, time.Since(start), err)
		if err != nil {
			telemetry.RecordError(context.Background(), err)
		}
		span.End()
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateWritable {
		return ih5err.New(ih5err.ErrReadOnly, "no pending writable patch to commit")
	}
	tail := c.files[len(c.files)-1]

	if err := tail.h5.Flush(); err != nil {
		return err
	}

	r, err := tail.h5.PayloadHashReader()
	if err != nil {
		return err
	}
	sum, n, err := hashAndCount(r, c.cfg.HashAlgorithm)
	if err != nil {
		return err
	}
	metrics.RecordBytesHashed(c.cfg.Metrics, n)

	tail.ub.HDF5Hashsum = &sum
	if err := tail.h5.WriteUserBlock(tail.ub); err != nil {
		return err
	}
	if err := tail.h5.Reopen(false); err != nil {
		return err
	}

	c.state = StateReadOnly
	return nil
}

// hashAndCount computes the payload hashsum and also reports the number of
// bytes that were hashed, for instrumentation.
func hashAndCount(r io.Reader, algorithm string) (string, int64, error) {
	cr := &countingReader{r: r}
	sum, err := integrity.Hashsum(cr, 0, algorithm)
	if err != nil {
		return "", cr.n, err
	}
	return sum, cr.n, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// DiscardPatch deletes the pending writable tail and returns the chain to
// ReadOnly, restoring the chain to the state before CreatePatch. It is
// forbidden to discard the base file (patch_index 0).
func (c *Chain) DiscardPatch() (err error) {
	_, span := telemetry.StartChainSpan(context.Background(), telemetry.SpanChainDiscardPatch, c.name)
	defer func() {
		if err == nil {
			metrics.ObserveDiscard(c.cfg.Metrics)
		} else {
			telemetry.RecordError(context.Background(), err)
		}
		span.End()
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateWritable {
		return ih5err.New(ih5err.ErrReadOnly, "no pending writable patch to discard")
	}
	tail := c.files[len(c.files)-1]
	if tail.PatchIndex() == 0 {
		return ih5err.New(ih5err.ErrBrokenChain, "the base file cannot be discarded")
	}

	path := tail.Path()
	if err := tail.close(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return ih5err.Wrap(ih5err.ErrCorruptUserBlock, "removing discarded patch file", err).WithPath(path)
	}
	if mf := naming.ManifestPath(path); mf != "" {
		_ = os.Remove(mf)
	}

	c.files = c.files[:len(c.files)-1]
	c.state = StateReadOnly
	return nil
}

// SetTailExtension sets key in the writable tail's in-memory ub_exts section.
// The value is only persisted to disk at the next CommitPatch, alongside the
// final payload hashsum — used by the manifest-aware variant (pkg/manifest)
// to embed its extension section atomically with the normal commit.
func (c *Chain) SetTailExtension(key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateWritable {
		return ih5err.New(ih5err.ErrReadOnly, "no writable tail to extend")
	}
	tail := c.files[len(c.files)-1]
	if tail.ub.Exts == nil {
		tail.ub.Exts = map[string]any{}
	}
	tail.ub.Exts[key] = value
	return nil
}
