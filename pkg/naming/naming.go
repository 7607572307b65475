// Package naming implements the on-disk file naming convention for a chain
// and the filesystem discovery of an existing chain's files.
package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/metador-go/ih5/pkg/ih5err"
	"github.com/metador-go/ih5/pkg/userblock"
)

// NamePattern is the allowed character set for a chain name.
var NamePattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

func isNameChar(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b == '-'
}

// ValidateName rejects any name that does not match [A-Za-z0-9-]+.
func ValidateName(name string) error {
	if name == "" || !NamePattern.MatchString(name) {
		return ih5err.Newf(ih5err.ErrInvalidName, "chain name %q must match [A-Za-z0-9-]+", name)
	}
	return nil
}

// BasePath returns the path of the base file for a chain rooted at dir/name.
func BasePath(dir, name string) string {
	return filepath.Join(dir, name+".ih5")
}

// PatchPath returns the path of the patch file at the given index for a
// chain rooted at dir/name.
func PatchPath(dir, name string, patchIndex int) string {
	return filepath.Join(dir, fmt.Sprintf("%s.p%d.ih5", name, patchIndex))
}

// ManifestPath returns the canonical manifest sidecar path for a given tail
// file path (<tail>.mf.json).
func ManifestPath(tailPath string) string {
	return tailPath + ".mf.json"
}

// Discover lists every file in dir whose name matches the <name>*.ih5 pattern
// and whose character immediately following <name> is not itself a valid
// name character (disambiguating "foo" from "foobar"). Discovered files are
// not sorted by filename — callers order them by the patch_index read from
// each user-block.
func Discover(dir, name string) ([]string, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "listing chain directory", err).WithPath(dir)
	}

	var matches []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fn := entry.Name()
		if !matchesChain(fn, name) {
			continue
		}
		matches = append(matches, filepath.Join(dir, fn))
	}
	return matches, nil
}

func matchesChain(filename, name string) bool {
	if len(filename) < len(name) || filename[:len(name)] != name {
		return false
	}
	if len(filename) == len(name) {
		return false // no extension at all, not a container file
	}
	next := filename[len(name)]
	if isNameChar(next) {
		return false // "foobar.ih5" must not match chain "foo"
	}
	return len(filename) > 4 && filename[len(filename)-4:] == ".ih5"
}

// OrderedFile pairs a discovered path with the user-block read from it, so
// callers can sort by patch index without re-reading the file.
type OrderedFile struct {
	Path      string
	UserBlock userblock.UserBlock
}

// LoadAndOrder discovers every file of the chain, reads each user-block, and
// returns them ordered by patch_index ascending (base first). It does not
// validate chain invariants beyond being able to parse each user-block —
// that is the chain validator's job.
func LoadAndOrder(dir, name string) ([]OrderedFile, error) {
	paths, err := Discover(dir, name)
	if err != nil {
		return nil, err
	}

	files := make([]OrderedFile, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "opening chain file", err).WithPath(path)
		}
		ub, _, err := userblock.Load(f)
		closeErr := f.Close()
		if err != nil {
			return nil, ih5err.Wrap(ih5err.ErrNotAContainer, "reading user-block", err).WithPath(path)
		}
		if closeErr != nil {
			return nil, ih5err.Wrap(ih5err.ErrCorruptUserBlock, "closing chain file", closeErr).WithPath(path)
		}
		files = append(files, OrderedFile{Path: path, UserBlock: ub})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].UserBlock.PatchIndex < files[j].UserBlock.PatchIndex
	})
	return files, nil
}
