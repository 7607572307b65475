// Package chain implements the patch-chain container format: an ordered
// list of files sharing one chain_uuid, the chain validator (§4.4), and the
// patch lifecycle controller (§4.6). Reads and writes against the merged
// view are implemented one layer up, in pkg/overlay, which treats *Chain as
// its collaborator.
package chain

import (
	"context"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/metador-go/ih5/internal/telemetry"
	"github.com/metador-go/ih5/pkg/h5file"
	"github.com/metador-go/ih5/pkg/ih5err"
	"github.com/metador-go/ih5/pkg/integrity"
	"github.com/metador-go/ih5/pkg/metrics"
	"github.com/metador-go/ih5/pkg/naming"
	"github.com/metador-go/ih5/pkg/userblock"
)

// Mode selects the open semantics, mirroring common file-open conventions
// (§4.6).
type Mode string

const (
	// ModeRead opens a read-only view of an existing chain.
	ModeRead Mode = "r"
	// ModeReadWrite reopens an incomplete tail writable, or creates a new
	// patch if the tail is already committed.
	ModeReadWrite Mode = "r+"
	// ModeAppend behaves like ModeReadWrite but creates a fresh chain if
	// none exists.
	ModeAppend Mode = "a"
	// ModeCreate truncates (deletes) any existing chain and creates a new base.
	ModeCreate Mode = "w"
	// ModeCreateNoTrunc creates a new base, failing if any file of the
	// chain already exists.
	ModeCreateNoTrunc Mode = "w-"
	// ModeCreateExcl is an alias of ModeCreateNoTrunc.
	ModeCreateExcl Mode = "x"
)

// State is the patch lifecycle controller's state per §4.6.
type State int

const (
	// StateReadOnly: all files closed for writing.
	StateReadOnly State = iota
	// StateWritable: the tail file is open read-write with no integrity hash.
	StateWritable
)

// Chain is a logical dataset: one base file plus zero or more patch files,
// all sharing a chain_uuid, kept in patch-index order.
type Chain struct {
	mu    sync.Mutex
	dir   string
	name  string
	files []*File
	state State
	cfg   Config
}

// Name returns the chain's logical (filename-stem) name.
func (c *Chain) Name() string { return c.name }

// Dir returns the directory the chain's files live in.
func (c *Chain) Dir() string { return c.dir }

// UUID returns the chain_uuid shared by every file, or "" if no file is open.
func (c *Chain) UUID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.files) == 0 {
		return ""
	}
	return c.files[0].ChainUUID()
}

// Config returns the chain's tunable configuration, for collaborators
// (pkg/manifest, pkg/stub) that need the configured hash algorithm or
// user-block size without threading it through separately.
func (c *Chain) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// State returns the current lifecycle state.
func (c *Chain) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Files returns the ordered file list (base first, tail last). The returned
// slice must not be mutated; it aliases the chain's internal state.
func (c *Chain) Files() []*File {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.files
}

// Tail returns the most recent file (the writable one, if the chain is
// Writable).
func (c *Chain) Tail() *File {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.files) == 0 {
		return nil
	}
	return c.files[len(c.files)-1]
}

// Open opens or creates a chain rooted at dir/name per mode, validating the
// file list per §4.4 on every path that discovers existing files.
func Open(dir, name string, mode Mode, cfg Config) (c *Chain, err error) {
	_, span := telemetry.StartChainSpan(context.Background(), telemetry.SpanChainOpen, name, telemetry.OpenMode(string(mode)))
	defer func() {
		if err != nil {
			telemetry.RecordError(context.Background(), err)
		}
		span.End()
	}()

	if err := naming.ValidateName(name); err != nil {
		return nil, err
	}
	if cfg.ReservedUserBlockSize == 0 {
		cfg.ReservedUserBlockSize = DefaultReservedUserBlockSize
	}

	paths, err := naming.Discover(dir, name)
	if err != nil {
		return nil, err
	}

	switch mode {
	case ModeRead:
		if len(paths) == 0 {
			return nil, ih5err.Newf(ih5err.ErrNotOpen, "no chain named %q in %s", name, dir)
		}
		return openExisting(dir, name, paths, cfg, false)

	case ModeReadWrite:
		if len(paths) == 0 {
			return nil, ih5err.Newf(ih5err.ErrNotOpen, "no chain named %q in %s", name, dir)
		}
		return openExisting(dir, name, paths, cfg, true)

	case ModeAppend:
		if len(paths) == 0 {
			return createBase(dir, name, cfg)
		}
		return openExisting(dir, name, paths, cfg, true)

	case ModeCreate:
		if len(paths) > 0 {
			if err := deletePaths(paths); err != nil {
				return nil, err
			}
		}
		return createBase(dir, name, cfg)

	case ModeCreateNoTrunc, ModeCreateExcl:
		if len(paths) > 0 {
			return nil, ih5err.Newf(ih5err.ErrBrokenChain, "chain %q already exists", name)
		}
		return createBase(dir, name, cfg)

	default:
		return nil, ih5err.Newf(ih5err.ErrInvalidName, "unknown open mode %q", mode)
	}
}

func deletePaths(paths []string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return ih5err.Wrap(ih5err.ErrCorruptUserBlock, "removing existing chain file", err).WithPath(p)
		}
		mf := naming.ManifestPath(p)
		if _, err := os.Stat(mf); err == nil {
			_ = os.Remove(mf)
		}
	}
	return nil
}

func openExisting(dir, name string, paths []string, cfg Config, wantWrite bool) (*Chain, error) {
	type indexed struct {
		path string
		ub   userblock.UserBlock
	}
	unordered := make([]indexed, 0, len(paths))
	for _, p := range paths {
		h, err := h5file.Open(p, false)
		if err != nil {
			return nil, err
		}
		ub, err := h.ReadUserBlock()
		closeErr := h.Close()
		if err != nil {
			return nil, err
		}
		if closeErr != nil {
			return nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "closing probe handle", closeErr).WithPath(p)
		}
		unordered = append(unordered, indexed{path: p, ub: ub})
	}
	sort.Slice(unordered, func(i, j int) bool {
		return unordered[i].ub.PatchIndex < unordered[j].ub.PatchIndex
	})

	files := make([]*File, 0, len(unordered))
	for i, entry := range unordered {
		isTail := i == len(unordered)-1
		wantWriteThis := wantWrite && isTail && entry.ub.HDF5Hashsum == nil
		h, err := h5file.Open(entry.path, wantWriteThis)
		if err != nil {
			closeAll(files)
			return nil, err
		}
		files = append(files, &File{h5: h, ub: entry.ub, config: cfg})
	}

	if err := Validate(files, cfg.AllowBaseless, cfg.HashAlgorithm); err != nil {
		if code, ok := ih5err.Code(err); ok {
			metrics.ObserveIntegrityFailure(cfg.Metrics, code.String())
		}
		closeAll(files)
		return nil, err
	}

	c := &Chain{dir: dir, name: name, files: files, cfg: cfg, state: StateReadOnly}
	tail := files[len(files)-1]
	if tail.Hashsum() == nil {
		if !wantWrite {
			closeAll(files)
			return nil, ih5err.Newf(ih5err.ErrIncompleteTail, "tail %q has no payload hashsum; opening read-only is not allowed", tail.Path()).WithPath(tail.Path())
		}
		c.state = StateWritable
	} else if wantWrite {
		if err := c.CreatePatch(); err != nil {
			closeAll(files)
			return nil, err
		}
	}
	return c, nil
}

func createBase(dir, name string, cfg Config) (*Chain, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "creating chain directory", err).WithPath(dir)
	}

	path := naming.BasePath(dir, name)
	h, err := h5file.Create(path, cfg.ReservedUserBlockSize, os.O_EXCL)
	if err != nil {
		return nil, err
	}

	ub := userblock.UserBlock{
		RecordUUID: uuid.NewString(),
		PatchIndex: 0,
		PatchUUID:  uuid.NewString(),
		PrevPatch:  nil,
		Exts:       map[string]any{},
	}
	if err := h.WriteUserBlock(ub); err != nil {
		_ = h.Close()
		return nil, err
	}

	f := &File{h5: h, ub: ub, config: cfg}
	return &Chain{dir: dir, name: name, files: []*File{f}, cfg: cfg, state: StateWritable}, nil
}

func closeAll(files []*File) {
	for _, f := range files {
		_ = f.close()
	}
}

// Close releases every open file handle. If commit is true and the chain is
// Writable, the pending tail is committed first; otherwise it is discarded
// (unless it is the base, which is left on disk as an incomplete patch).
func (c *Chain) Close(commit bool) error {
	c.mu.Lock()
	writable := c.state == StateWritable
	c.mu.Unlock()

	if writable {
		if commit {
			if err := c.CommitPatch(); err != nil {
				return err
			}
		} else if c.Tail().PatchIndex() > 0 {
			if err := c.DiscardPatch(); err != nil {
				return err
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.files {
		if err := f.close(); err != nil {
			return err
		}
	}
	return nil
}
