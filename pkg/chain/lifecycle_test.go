package chain

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metador-go/ih5/pkg/h5file"
	"github.com/metador-go/ih5/pkg/ih5err"
	"github.com/metador-go/ih5/pkg/naming"
	"github.com/metador-go/ih5/pkg/overlay"
)

func TestLifecycle_CreateWriteReadBack(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := DefaultConfig()

	c, err := Open(dir, "ds", ModeCreate, cfg)
	require.NoError(t, err)

	root := overlay.Root(c.FileViews())
	_, err = root.CreateDataset("foo", h5file.RawValue([]byte("123")))
	require.NoError(t, err)
	g, err := root.CreateGroup("grp")
	require.NoError(t, err)
	_, err = g.CreateDataset("bar", h5file.RawValue([]byte("baz")))
	require.NoError(t, err)
	require.NoError(t, root.Attrs().Set("rootattr", h5file.RawValue([]byte("true"))))

	require.NoError(t, c.Close(true))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ds.ih5", entries[0].Name())

	c2, err := Open(dir, "ds", ModeRead, cfg)
	require.NoError(t, err)
	defer c2.Close(false)

	root2 := overlay.Root(c2.FileViews())
	fooEntry, err := root2.Get("foo")
	require.NoError(t, err)
	v, err := fooEntry.(*overlay.Dataset).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("123"), v.Raw)

	grpEntry, err := root2.Get("grp")
	require.NoError(t, err)
	barEntry, err := grpEntry.(*overlay.Group).Get("bar")
	require.NoError(t, err)
	barV, err := barEntry.(*overlay.Dataset).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("baz"), barV.Raw)

	attr, err := root2.Attrs().Get("rootattr")
	require.NoError(t, err)
	assert.Equal(t, []byte("true"), attr.Raw)
}

func TestLifecycle_PatchCreatesDeletesOverrides(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := DefaultConfig()

	c, err := Open(dir, "ds", ModeCreate, cfg)
	require.NoError(t, err)
	root := overlay.Root(c.FileViews())
	_, err = root.CreateDataset("a", h5file.RawValue([]byte("1")))
	require.NoError(t, err)
	_, err = root.CreateDataset("b", h5file.RawValue([]byte("2")))
	require.NoError(t, err)
	_, err = root.CreateGroup("g")
	require.NoError(t, err)
	require.NoError(t, c.Close(true))

	basePath := naming.BasePath(dir, "ds")
	baseBefore, err := os.ReadFile(basePath)
	require.NoError(t, err)

	c2, err := Open(dir, "ds", ModeReadWrite, cfg)
	require.NoError(t, err)
	assert.Equal(t, StateWritable, c2.State())

	root2 := overlay.Root(c2.FileViews())
	require.NoError(t, root2.Delete("a"))
	_, err = root2.CreateDataset("b", h5file.RawValue([]byte("20")))
	require.NoError(t, err)
	gEntry, err := root2.Get("g")
	require.NoError(t, err)
	sub, err := gEntry.(*overlay.Group).CreateGroup("sub")
	require.NoError(t, err)
	_, err = sub.CreateDataset("c", h5file.RawValue([]byte("3")))
	require.NoError(t, err)
	require.NoError(t, c2.Close(true))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "base plus one patch, no sidecar in a non-manifest-aware chain")

	baseAfter, err := os.ReadFile(basePath)
	require.NoError(t, err)
	assert.Equal(t, baseBefore, baseAfter, "committing a patch must never rewrite the base file")

	c3, err := Open(dir, "ds", ModeRead, cfg)
	require.NoError(t, err)
	defer c3.Close(false)
	root3 := overlay.Root(c3.FileViews())

	assert.False(t, root3.Contains("a"))

	bEntry, err := root3.Get("b")
	require.NoError(t, err)
	bV, err := bEntry.(*overlay.Dataset).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("20"), bV.Raw)

	g3Entry, err := root3.Get("g")
	require.NoError(t, err)
	sub3Entry, err := g3Entry.(*overlay.Group).Get("sub")
	require.NoError(t, err)
	cEntry, err := sub3Entry.(*overlay.Group).Get("c")
	require.NoError(t, err)
	cV, err := cEntry.(*overlay.Dataset).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), cV.Raw)
}

func TestLifecycle_DiscardRestoresPrePatchState(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := DefaultConfig()

	c, err := Open(dir, "ds", ModeCreate, cfg)
	require.NoError(t, err)
	root := overlay.Root(c.FileViews())
	_, err = root.CreateDataset("x", h5file.RawValue([]byte("1")))
	require.NoError(t, err)
	require.NoError(t, c.Close(true))

	c2, err := Open(dir, "ds", ModeReadWrite, cfg)
	require.NoError(t, err)
	require.Equal(t, StateWritable, c2.State(), "Open(r+) on a committed tail must auto-create a patch")

	root2 := overlay.Root(c2.FileViews())
	_, err = root2.CreateDataset("x", h5file.RawValue([]byte("99")))
	require.NoError(t, err)

	require.NoError(t, c2.DiscardPatch())
	assert.Equal(t, StateReadOnly, c2.State())
	require.NoError(t, c2.Close(false))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "discarded patch file must be removed from disk")

	c3, err := Open(dir, "ds", ModeRead, cfg)
	require.NoError(t, err)
	defer c3.Close(false)
	root3 := overlay.Root(c3.FileViews())
	xEntry, err := root3.Get("x")
	require.NoError(t, err)
	xV, err := xEntry.(*overlay.Dataset).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), xV.Raw)
}

func TestLifecycle_CreatePatchForbiddenWhileWritable(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := DefaultConfig()

	c, err := Open(dir, "ds", ModeCreate, cfg)
	require.NoError(t, err)
	defer c.Close(true)

	err = c.CreatePatch()
	require.Error(t, err)
	assert.True(t, ih5err.HasCode(err, ih5err.ErrBrokenChain))
}

func TestLifecycle_DiscardForbiddenOnBase(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := DefaultConfig()

	c, err := Open(dir, "ds", ModeCreate, cfg)
	require.NoError(t, err)
	defer c.Close(true)

	err = c.DiscardPatch()
	require.Error(t, err)
	assert.True(t, ih5err.HasCode(err, ih5err.ErrBrokenChain))
}
