package h5file

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metador-go/ih5/pkg/userblock"
)

func TestCreateOpenFlush_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "experiment42.ih5")

	f, err := Create(path, 512, 0)
	require.NoError(t, err)

	require.NoError(t, f.Tree().CreateGroup("/measurements"))
	require.NoError(t, f.Tree().CreateDataset("/measurements/temp", RawValue([]byte{1, 2, 3, 4})))
	require.NoError(t, f.Flush())

	ub := userblock.UserBlock{
		RecordUUID: "uuid-1",
		PatchIndex: 0,
		PatchUUID:  "patch-1",
		Exts:       map[string]any{},
	}
	require.NoError(t, f.WriteUserBlock(ub))
	require.NoError(t, f.Close())

	reopened, err := Open(path, false)
	require.NoError(t, err)
	defer reopened.Close()

	loadedUB, err := reopened.ReadUserBlock()
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", loadedUB.RecordUUID)

	v, ok := reopened.Tree().GetDataset("/measurements/temp")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, v.Raw)
	assert.Equal(t, 512, reopened.ReservedSize())
	assert.False(t, reopened.Writable())
}

func TestCreate_RejectsBadReservedSize(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad.ih5")

	_, err := Create(path, 500, 0)
	require.Error(t, err)
}

func TestPayloadHashReader(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "experiment42.ih5")

	f, err := Create(path, 512, 0)
	require.NoError(t, err)
	require.NoError(t, f.Tree().CreateDataset("/x", RawValue([]byte("hello"))))
	require.NoError(t, f.Flush())

	r, err := f.PayloadHashReader()
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	require.NoError(t, f.Close())
}

func TestReopen_TogglesWritability(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "experiment42.ih5")

	f, err := Create(path, 512, 0)
	require.NoError(t, err)
	require.NoError(t, f.Flush())
	require.NoError(t, f.Close())

	f2, err := Open(path, true)
	require.NoError(t, err)
	assert.True(t, f2.Writable())

	require.NoError(t, f2.Reopen(false))
	assert.False(t, f2.Writable())
	require.NoError(t, f2.Close())
}
