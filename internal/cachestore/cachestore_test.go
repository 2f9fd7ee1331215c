package cachestore

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "places_cache.json")
	store, err := New(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func sampleCache() Cache {
	return Cache{
		"p2": {PlaceID: "p2", Name: "Beta & Co", Address: "Via Po 2", PhotoPath: "", UpdatedAt: "2026-01-02T03:04:05.000Z"},
		"p1": {
			PlaceID:             "p1",
			Name:                "Alpha Kiosk",
			Address:             "Via Roma 1",
			WeekdayDescriptions: []string{"lunedì: 08:00–20:00"},
			PhotoPath:           "assets/place-photos/p1.jpg",
			UpdatedAt:           "2026-01-02T03:04:05.000Z",
		},
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	cache := store.Load()
	require.NotNil(t, cache)
	assert.Empty(t, cache)
}

func TestLoadCorruptFileIsEmpty(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"{not json", "[]", "null", ""} {
		store, path := newTestStore(t)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

		cache := store.Load()
		require.NotNil(t, cache, body)
		assert.Empty(t, cache, body)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	require.NoError(t, store.Save(sampleCache()))

	loaded := store.Load()
	assert.Equal(t, sampleCache()["p1"], loaded["p1"])
	assert.Equal(t, []string{}, loaded["p2"].WeekdayDescriptions, "empty schedule persists as []")
}

func TestSaveFormat(t *testing.T) {
	t.Parallel()

	store, path := newTestStore(t)
	require.NoError(t, store.Save(sampleCache()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasSuffix(out, "}\n"), "trailing newline")
	assert.True(t, strings.HasPrefix(out, "{\n  \"p1\": {\n    \"placeId\": \"p1\""), "two-space indent, sorted keys")
	assert.Less(t, strings.Index(out, `"p1"`), strings.Index(out, `"p2"`))
	assert.Contains(t, out, `"Beta & Co"`, "no HTML escaping")
	assert.Contains(t, out, `"weekdayDescriptions": []`)
}

func TestEncodeOrderIndependentOfInsertion(t *testing.T) {
	t.Parallel()

	a := Cache{}
	b := Cache{}
	keys := []string{"pZ", "p1", "Pa", "p10", "p2"}
	for _, k := range keys {
		a[k] = Entry{PlaceID: k}
	}
	for i := len(keys) - 1; i >= 0; i-- {
		b[keys[i]] = Entry{PlaceID: keys[i]}
	}

	var bufA, bufB bytes.Buffer
	require.NoError(t, Encode(&bufA, a))
	require.NoError(t, Encode(&bufB, b))
	assert.Equal(t, bufA.String(), bufB.String())
	assert.Equal(t, []string{"Pa", "p1", "p10", "p2", "pZ"}, a.Keys())
}

func TestSaveFailureLeavesPriorFile(t *testing.T) {
	t.Parallel()

	store, path := newTestStore(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"old":{}}`), 0o644))

	// A directory in place of the target makes the final rename fail.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "keep"), []byte("x"), 0o644))

	err := store.Save(sampleCache())
	require.Error(t, err)

	info, statErr := os.Stat(path)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file removed")
}
