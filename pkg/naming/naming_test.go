package naming

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	t.Parallel()

	valid := []string{"experiment42", "run-1", "A-B-C", "123"}
	for _, name := range valid {
		assert.NoError(t, ValidateName(name), name)
	}

	invalid := []string{"", "has space", "has/slash", "has.dot", "has_underscore"}
	for _, name := range invalid {
		assert.Error(t, ValidateName(name), name)
	}
}

func TestBasePatchManifestPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, filepath.Join("/data", "experiment42.ih5"), BasePath("/data", "experiment42"))
	assert.Equal(t, filepath.Join("/data", "experiment42.p3.ih5"), PatchPath("/data", "experiment42", 3))
	assert.Equal(t, "/data/experiment42.p3.ih5.mf.json", ManifestPath("/data/experiment42.p3.ih5"))
}

func TestDiscover_DistinguishesPrefixCollisions(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	for _, fn := range []string{
		"experiment42.ih5",
		"experiment42.p0.ih5",
		"experiment42.p1.ih5",
		"experiment42foo.ih5", // must NOT match chain "experiment42"
		"unrelated.ih5",
		"experiment42.mf.json", // not a .ih5 container file
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, fn), []byte("x"), 0o644))
	}

	matches, err := Discover(dir, "experiment42")
	require.NoError(t, err)

	var names []string
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	assert.ElementsMatch(t, []string{"experiment42.ih5", "experiment42.p0.ih5", "experiment42.p1.ih5"}, names)
}

func TestDiscover_RejectsInvalidName(t *testing.T) {
	t.Parallel()
	_, err := Discover(t.TempDir(), "bad name")
	assert.Error(t, err)
}

func TestDiscover_EmptyDirectory(t *testing.T) {
	t.Parallel()
	matches, err := Discover(t.TempDir(), "nothinghere")
	require.NoError(t, err)
	assert.Empty(t, matches)
}
