package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	saved := &Info{
		DCID:     4,
		AuthKey:  []byte{0x01, 0x02, 0x03, 0xff},
		TestMode: true,
		UserID:   7000001,
		IsBot:    true,
	}
	require.NoError(t, store.Save(saved))

	loaded, err := store.Load(4)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestStoreFilePermissions(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, store.Save(&Info{DCID: 2, AuthKey: []byte{1}}))

	fi, err := os.Stat(filepath.Join(dir, "session_dc2.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}

func TestStoreMissingSession(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Load(3)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStoreRejectsMismatchedDC(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	// A file claiming dc 5 under dc 3's name is corruption, not data.
	require.NoError(t, store.Save(&Info{DCID: 5, AuthKey: []byte{1}}))
	require.NoError(t, os.Rename(store.Path(5), store.Path(3)))

	_, err := store.Load(3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is for dc 5")
}

func TestStoreRejectsEmptyInfo(t *testing.T) {
	store := NewStore(t.TempDir())
	assert.Error(t, store.Save(nil))
	assert.Error(t, store.Save(&Info{}))
}

func TestStoreSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, store.Save(&Info{DCID: 1, AuthKey: []byte{1}}))
	require.NoError(t, store.Save(&Info{DCID: 1, AuthKey: []byte{2}}))

	loaded, err := store.Load(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, loaded.AuthKey)

	// No temp files left behind
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStoreList(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Save(&Info{DCID: 4, AuthKey: []byte{4}}))
	require.NoError(t, store.Save(&Info{DCID: 1, AuthKey: []byte{1}}))
	require.NoError(t, store.Save(&Info{DCID: 2, AuthKey: []byte{2}}))

	infos, err := store.List()
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, 1, infos[0].DCID)
	assert.Equal(t, 2, infos[1].DCID)
	assert.Equal(t, 4, infos[2].DCID)
}

func TestStoreListEmptyDir(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "does-not-exist"))
	infos, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestStoreDelete(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Save(&Info{DCID: 2, AuthKey: []byte{2}}))
	require.NoError(t, store.Delete(2))

	_, err := store.Load(2)
	assert.ErrorIs(t, err, ErrNoSession)

	// Deleting again is a no-op, not an error.
	assert.NoError(t, store.Delete(2))
}
