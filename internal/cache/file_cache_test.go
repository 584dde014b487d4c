package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Key   string   `json:"key"`
	Bands []string `json:"bands"`
}

func TestFileCacheRoundTrip(t *testing.T) {
	fc := NewFileCache[record](filepath.Join(t.TempDir(), "exports"))
	key := Key("LC08_125053_20210703", "GEE_Exports", 30)

	_, ok := fc.Get(key)
	assert.False(t, ok)

	want := record{Key: "GEE_Exports/x.tif", Bands: []string{"SI1", "NDVI"}}
	require.NoError(t, fc.Set(key, want))
	got, ok := fc.Get(key)
	require.True(t, ok)
	assert.Equal(t, want, got)

	list, err := fc.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, want, list[0].Data)

	require.NoError(t, fc.Delete(key))
	require.NoError(t, fc.Delete(key), "deleting twice is fine")
	_, ok = fc.Get(key)
	assert.False(t, ok)
}

func TestFileCacheRejectsTamperedEntry(t *testing.T) {
	fc := NewFileCache[record](t.TempDir())
	require.NoError(t, fc.Set("k", record{Key: "a"}))

	path := filepath.Join(fc.Dir(), "k.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(string(data[:len(data)-10])+"broken"), 0644))

	_, ok := fc.Get("k")
	assert.False(t, ok)
}

func TestKeyIsStable(t *testing.T) {
	assert.Equal(t, Key("a", 1), Key("a", 1))
	assert.NotEqual(t, Key("a", 1), Key("a", 2))
	assert.Len(t, Key(), 40)
}

func TestListMissingDir(t *testing.T) {
	fc := NewFileCache[record](filepath.Join(t.TempDir(), "nope"))
	list, err := fc.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}
