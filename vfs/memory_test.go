package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryBackendWriteRead(t *testing.T) {
	b := NewMemoryBackend(false)

	require.NoError(t, b.Write("a/b.txt", []byte("hello")))

	data, err := b.Read("a/b.txt")
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestMemoryBackendReadMissing(t *testing.T) {
	b := NewMemoryBackend(false)

	_, err := b.Read("nope")
	require.ErrorIs(t, err, ErrNotExist)
}

func TestMemoryBackendAppend(t *testing.T) {
	b := NewMemoryBackend(false)

	require.NoError(t, b.Write("log", []byte("a")))
	require.NoError(t, b.Append("log", []byte("b")))

	data, err := b.Read("log")
	require.NoError(t, err)
	require.Equal(t, "ab", string(data))
}

func TestMemoryBackendMkdirAndList(t *testing.T) {
	b := NewMemoryBackend(false)

	require.NoError(t, b.Mkdir("dir"))
	require.NoError(t, b.Write("dir/file.txt", []byte("x")))

	entries, err := b.List("dir")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "file.txt", entries[0].Name)
}

func TestMemoryBackendWriteRegistersParentDirs(t *testing.T) {
	b := NewMemoryBackend(false)

	require.NoError(t, b.Write("a/b/c.txt", []byte("x")))

	entries, err := b.List("a")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, entries[0].IsDir)
}

func TestMemoryBackendRemoveDirectory(t *testing.T) {
	b := NewMemoryBackend(false)

	require.NoError(t, b.Write("dir/file.txt", []byte("x")))
	require.NoError(t, b.Remove("dir"))

	_, err := b.Read("dir/file.txt")
	require.ErrorIs(t, err, ErrNotExist)
}

func TestMemoryBackendStat(t *testing.T) {
	b := NewMemoryBackend(false)
	require.NoError(t, b.Write("f", []byte("hello")))

	info, err := b.Stat("f")
	require.NoError(t, err)
	require.Equal(t, int64(5), info.Size)
	require.False(t, info.IsDir)
}

func TestMemoryBackendReadOnly(t *testing.T) {
	b := NewMemoryBackend(true)

	err := b.Write("f", []byte("x"))
	require.ErrorIs(t, err, ErrReadOnly)
}
