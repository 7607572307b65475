package userblock

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metador-go/ih5/pkg/ih5err"
)

func strp(s string) *string { return &s }

func sampleBlock() UserBlock {
	return UserBlock{
		RecordUUID: "3fa85f64-5717-4562-b3fc-2c963f66afa6",
		PatchIndex: 0,
		PatchUUID:  "11111111-1111-1111-1111-111111111111",
		PrevPatch:  nil,
		Exts:       map[string]any{},
	}
}

func TestSerializeParseRoundTrip(t *testing.T) {
	t.Parallel()

	ub := sampleBlock()
	block, err := Serialize(ub, 512)
	require.NoError(t, err)
	require.Len(t, block, 512)
	assert.True(t, bytes.HasPrefix(block, []byte(Magic+"\n")))

	parsed, size, err := Parse(block)
	require.NoError(t, err)
	assert.Equal(t, 512, size)
	assert.Equal(t, ub.RecordUUID, parsed.RecordUUID)
	assert.Equal(t, ub.PatchUUID, parsed.PatchUUID)
	assert.Nil(t, parsed.PrevPatch)
}

func TestSerialize_RejectsTooSmall(t *testing.T) {
	t.Parallel()

	ub := sampleBlock()
	ub.Exts["note"] = strings.Repeat("x", 2000)

	_, err := Serialize(ub, 512)
	require.Error(t, err)
	assert.True(t, ih5err.HasCode(err, ih5err.ErrUserBlockTooSmall))
}

func TestParse_RejectsHDF5Signature(t *testing.T) {
	t.Parallel()

	block := append([]byte("\x89HDF"), make([]byte, 508)...)
	_, _, err := Parse(block)
	require.Error(t, err)
	assert.True(t, ih5err.HasCode(err, ih5err.ErrNoReservedUserBlock))
}

func TestParse_RejectsBadMagic(t *testing.T) {
	t.Parallel()

	block := append([]byte("not_ih5\n512\n{}\x00"), make([]byte, 500)...)
	_, _, err := Parse(block)
	require.Error(t, err)
	assert.True(t, ih5err.HasCode(err, ih5err.ErrNotAContainer))
}

func TestLoadSave_RoundTrip(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 1024)
	// Simulate a freshly reserved, not-yet-written region: zero-filled, not
	// the HDF5 signature.
	f := &memFile{data: buf}

	ub := sampleBlock()
	require.NoError(t, Save(f, f, ub, 512))

	loaded, size, err := Load(f)
	require.NoError(t, err)
	assert.Equal(t, 512, size)
	assert.Equal(t, ub.RecordUUID, loaded.RecordUUID)
}

func TestSave_RefusesUnreservedFile(t *testing.T) {
	t.Parallel()

	data := append([]byte("\x89HDF\r\n\x1a\n"), make([]byte, 1000)...)
	f := &memFile{data: data}

	err := Save(f, f, sampleBlock(), 512)
	require.Error(t, err)
	assert.True(t, ih5err.HasCode(err, ih5err.ErrNoReservedUserBlock))
}

func TestIsPowerOfTwoAtLeastMin(t *testing.T) {
	t.Parallel()

	assert.True(t, IsPowerOfTwoAtLeastMin(512))
	assert.True(t, IsPowerOfTwoAtLeastMin(1024))
	assert.False(t, IsPowerOfTwoAtLeastMin(511))
	assert.False(t, IsPowerOfTwoAtLeastMin(513))
	assert.False(t, IsPowerOfTwoAtLeastMin(0))
}

// memFile is a minimal io.ReaderAt/io.WriterAt backed by an in-memory buffer,
// standing in for an *os.File in unit tests.
type memFile struct {
	data []byte
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	end := int(off) + len(p)
	if end > len(m.data) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:], p)
	return len(p), nil
}
