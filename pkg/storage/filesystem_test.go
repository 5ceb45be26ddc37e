package storage

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ref, err := store.Save("2024/BC-2024-00001.pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)
	require.Equal(t, "2024/BC-2024-00001.pdf", ref)

	file, err := store.Open(ref)
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	require.Equal(t, "%PDF-1.3", string(data))

	require.NoError(t, store.Delete(ref))
	require.NoError(t, store.Delete(ref))
	_, err = store.Open(ref)
	require.Error(t, err)
}

func TestLocalStorageKeepsNamesInsideBase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	ref, err := store.Save("../../etc/passwd", []byte("x"))
	require.NoError(t, err)
	require.Contains(t, store.Path(ref), dir)

	_, err = store.Save("", []byte("x"))
	require.ErrorIs(t, err, ErrOutsideBase)
}
