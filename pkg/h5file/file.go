package h5file

import (
	"bytes"
	"encoding/gob"
	"io"
	"os"
	"sync"

	"github.com/metador-go/ih5/pkg/ih5err"
	"github.com/metador-go/ih5/pkg/userblock"
)

// File is a single on-disk container: a reserved user-block region followed
// by a gob-encoded Tree payload. Exactly one File may be opened writable at
// a time per path, mirroring the format's single-writer invariant; callers
// (pkg/chain) are responsible for not opening the same tail concurrently.
type File struct {
	mu           sync.Mutex
	f            *os.File
	path         string
	reservedSize int
	writable     bool
	tree         *Tree
	closed       bool
}

// Path returns the underlying filesystem path.
func (file *File) Path() string { return file.path }

// ReservedSize returns the claimed user-block size in bytes.
func (file *File) ReservedSize() int { return file.reservedSize }

// Writable reports whether the file was opened (or created) for writing.
func (file *File) Writable() bool { return file.writable }

// Tree returns the in-memory payload tree. Mutations are only meaningful
// (and only persisted by Flush) when Writable() is true.
func (file *File) Tree() *Tree { return file.tree }

// Create makes a new container file at path with a reserved user-block of
// reservedSize bytes (must be a power of two, >= userblock.MinSize) and an
// empty payload tree. The file is opened writable. extraFlag selects the
// exclusivity semantics: pass os.O_EXCL to refuse an existing file, or 0 to
// allow truncating one (the patch-lifecycle "w"/"w-"/"x" open modes map
// directly onto this).
func Create(path string, reservedSize int, extraFlag int) (*File, error) {
	if !userblock.IsPowerOfTwoAtLeastMin(reservedSize) {
		return nil, ih5err.Newf(ih5err.ErrUserBlockTooSmall, "reserved size %d must be a power of two >= %d", reservedSize, userblock.MinSize)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC|extraFlag, 0o644)
	if err != nil {
		return nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "creating container file", err).WithPath(path)
	}

	// Reserve the user-block as zero bytes; the caller writes the real
	// administrative header via WriteUserBlock once chain identity is known.
	if _, err := f.Write(make([]byte, reservedSize)); err != nil {
		_ = f.Close()
		return nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "reserving user-block region", err).WithPath(path)
	}

	file := &File{f: f, path: path, reservedSize: reservedSize, writable: true, tree: NewTree()}
	if err := file.Flush(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return file, nil
}

// Open opens an existing container file, reading its user-block to discover
// the reserved size and decoding the payload tree that follows it.
func Open(path string, writable bool) (*File, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, ih5err.Wrap(ih5err.ErrNotAContainer, "opening container file", err).WithPath(path)
	}

	_, reservedSize, err := userblock.Load(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	payload, err := io.ReadAll(io.NewSectionReader(f, int64(reservedSize), 1<<62))
	if err != nil {
		_ = f.Close()
		return nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "reading payload", err).WithPath(path)
	}

	tree := NewTree()
	if len(payload) > 0 {
		dec := gob.NewDecoder(bytes.NewReader(payload))
		var root node
		if err := dec.Decode(&root); err != nil {
			_ = f.Close()
			return nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "decoding payload tree", err).WithPath(path)
		}
		tree.root = &root
	}

	return &File{f: f, path: path, reservedSize: reservedSize, writable: writable, tree: tree}, nil
}

// ReadUserBlock reads and parses the administrative header.
func (file *File) ReadUserBlock() (userblock.UserBlock, error) {
	file.mu.Lock()
	defer file.mu.Unlock()
	ub, _, err := userblock.Load(file.f)
	return ub, err
}

// WriteUserBlock serializes and writes ub into the reserved region. It does
// not touch the payload.
func (file *File) WriteUserBlock(ub userblock.UserBlock) error {
	file.mu.Lock()
	defer file.mu.Unlock()
	return userblock.Save(file.f, file.f, ub, file.reservedSize)
}

// Flush serializes the in-memory payload tree and rewrites it in place after
// the reserved user-block region, truncating the file to the new length. It
// fails with ReadOnly if the file was not opened/created writable.
func (file *File) Flush() error {
	if !file.writable {
		return ih5err.New(ih5err.ErrReadOnly, "cannot flush a read-only container")
	}

	file.mu.Lock()
	defer file.mu.Unlock()

	file.tree.mu.RLock()
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	err := enc.Encode(file.tree.root)
	file.tree.mu.RUnlock()
	if err != nil {
		return ih5err.Wrap(ih5err.ErrCorruptUserBlock, "encoding payload tree", err).WithPath(file.path)
	}

	if _, err := file.f.WriteAt(buf.Bytes(), int64(file.reservedSize)); err != nil {
		return ih5err.Wrap(ih5err.ErrCorruptUserBlock, "writing payload", err).WithPath(file.path)
	}
	if err := file.f.Truncate(int64(file.reservedSize) + int64(buf.Len())); err != nil {
		return ih5err.Wrap(ih5err.ErrCorruptUserBlock, "truncating payload", err).WithPath(file.path)
	}
	return nil
}

// PayloadHashReader returns a reader over exactly the payload bytes (past
// the reserved user-block), for use by pkg/integrity when computing or
// verifying the commit-time hashsum. The caller must have called Flush
// first so the on-disk payload reflects the in-memory tree.
func (file *File) PayloadHashReader() (io.Reader, error) {
	file.mu.Lock()
	defer file.mu.Unlock()
	info, err := file.f.Stat()
	if err != nil {
		return nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "stat container file", err).WithPath(file.path)
	}
	size := info.Size() - int64(file.reservedSize)
	if size < 0 {
		size = 0
	}
	return io.NewSectionReader(file.f, int64(file.reservedSize), size), nil
}

// Reopen closes and reopens the file with the given writability, refreshing
// the in-memory tree from disk. Used by the patch lifecycle controller to
// transition a tail file from writable to read-only (or back) without losing
// its os-level lock discipline.
func (file *File) Reopen(writable bool) error {
	file.mu.Lock()
	path := file.path
	if err := file.f.Close(); err != nil {
		file.mu.Unlock()
		return ih5err.Wrap(ih5err.ErrCorruptUserBlock, "closing before reopen", err).WithPath(path)
	}
	file.mu.Unlock()

	reopened, err := Open(path, writable)
	if err != nil {
		return err
	}
	file.mu.Lock()
	file.f = reopened.f
	file.writable = reopened.writable
	file.tree = reopened.tree
	file.reservedSize = reopened.reservedSize
	file.mu.Unlock()
	return nil
}

// Close releases the underlying file handle. It does not flush; callers
// must Flush explicitly before Close if pending writes should be persisted.
func (file *File) Close() error {
	file.mu.Lock()
	defer file.mu.Unlock()
	if file.closed {
		return nil
	}
	file.closed = true
	if err := file.f.Close(); err != nil {
		return ih5err.Wrap(ih5err.ErrCorruptUserBlock, "closing container file", err).WithPath(file.path)
	}
	return nil
}
