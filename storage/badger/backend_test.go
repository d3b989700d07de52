package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := t.TempDir()
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	assert.False(t, backend.IsClosed())
	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())
}

func TestNextID_SkipsZero(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	seq, err := backend.GetSequence("testseq")
	require.NoError(t, err)
	defer seq.Release()

	seen := map[uint64]bool{}
	for i := 0; i < 5; i++ {
		id, err := nextID(seq)
		require.NoError(t, err)
		assert.NotZero(t, id)
		assert.False(t, seen[uint64(id)])
		seen[uint64(id)] = true
	}
}

func TestKeys_Ordering(t *testing.T) {
	a := makeMessageKey("t1", mustTime("2025-01-01T00:00:00Z"), 9)
	b := makeMessageKey("t1", mustTime("2025-01-01T00:00:01Z"), 1)
	assert.Less(t, string(a), string(b))

	// A thread id that is a prefix of another must not share its key range.
	assert.NotEqual(t, string(makeMessagePrefix("t1")), string(makeMessagePrefix("t10"))[:len(makeMessagePrefix("t1"))])
}
