// Package integrity computes and verifies qualified hashsums ("alg:hex") over
// the HDF5 payload of a container file — every byte beyond the claimed
// user-block size.
package integrity

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"strings"
	"sync"

	"github.com/metador-go/ih5/pkg/ih5err"
)

// DefaultAlgorithm is used when a chain's configuration does not override it.
const DefaultAlgorithm = "sha256"

// registry maps an algorithm name to a constructor for a fresh hash.Hash.
// Mirrors the content store's capability-map pattern: a small registry of
// pluggable implementations rather than a hardcoded single algorithm.
var (
	registryMu sync.RWMutex
	registry   = map[string]func() hash.Hash{
		"sha256": sha256.New,
	}
)

// Register adds (or overrides) an algorithm available for use by name. Call
// from an init() in a package that imports an additional hash implementation
// (e.g. blake3) to make it selectable via configuration.
func Register(name string, newHash func() hash.Hash) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = newHash
}

// Algorithms returns the names of every registered hash algorithm.
func Algorithms() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

func lookup(alg string) (func() hash.Hash, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	newHash, ok := registry[alg]
	return newHash, ok
}

// Hashsum reads r to completion, skipping skipBytes first, and returns a
// qualified hashsum "alg:hex" for the remaining bytes using the given
// algorithm (DefaultAlgorithm if empty).
func Hashsum(r io.Reader, skipBytes int64, algorithm string) (string, error) {
	if algorithm == "" {
		algorithm = DefaultAlgorithm
	}
	newHash, ok := lookup(algorithm)
	if !ok {
		return "", ih5err.Newf(ih5err.ErrInvalidKey, "unknown hash algorithm %q", algorithm)
	}

	if skipBytes > 0 {
		if _, err := io.CopyN(io.Discard, r, skipBytes); err != nil {
			return "", ih5err.Wrap(ih5err.ErrCorruptUserBlock, "skipping user-block bytes", err)
		}
	}

	h := newHash()
	if _, err := io.Copy(h, r); err != nil {
		return "", ih5err.Wrap(ih5err.ErrCorruptUserBlock, "reading payload for hashsum", err)
	}

	return Qualify(algorithm, h.Sum(nil)), nil
}

// Qualify formats a raw digest as "alg:hex".
func Qualify(algorithm string, digest []byte) string {
	return fmt.Sprintf("%s:%x", algorithm, digest)
}

// Split parses a qualified hashsum "alg:hex" into its algorithm and hex digest.
func Split(qualified string) (algorithm, hexDigest string, err error) {
	idx := strings.IndexByte(qualified, ':')
	if idx < 0 {
		return "", "", ih5err.Newf(ih5err.ErrCorruptUserBlock, "hashsum %q is not qualified as alg:hex", qualified)
	}
	return qualified[:idx], qualified[idx+1:], nil
}

// Verify recomputes the hashsum of r (skipping skipBytes) and compares it
// against the expected qualified hashsum, using the algorithm encoded in
// expected.
func Verify(r io.Reader, skipBytes int64, expected string) error {
	algorithm, _, err := Split(expected)
	if err != nil {
		return err
	}
	actual, err := Hashsum(r, skipBytes, algorithm)
	if err != nil {
		return err
	}
	if actual != expected {
		return ih5err.Newf(ih5err.ErrIntegrityFailure, "hashsum mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}
