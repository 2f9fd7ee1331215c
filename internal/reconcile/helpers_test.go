package reconcile

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/locali/placesync/internal/cachestore"
	"github.com/locali/placesync/internal/errors"
	"github.com/locali/placesync/internal/places"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func fixedClock() time.Time { return fixedNow }

// fakeClient serves canned metadata and photo URIs.
type fakeClient struct {
	mu        sync.Mutex
	metadata  map[string]places.Metadata
	fetchErr  map[string]error
	photoURIs map[string]string
	uriErr    map[string]error

	fetchCalls []string
	uriCalls   []string
	onFetch    func(placeRef string)
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		metadata:  map[string]places.Metadata{},
		fetchErr:  map[string]error{},
		photoURIs: map[string]string{},
		uriErr:    map[string]error{},
	}
}

func (f *fakeClient) FetchMetadata(ctx context.Context, placeRef string) (places.Metadata, error) {
	f.mu.Lock()
	f.fetchCalls = append(f.fetchCalls, placeRef)
	hook := f.onFetch
	md, ok := f.metadata[placeRef]
	err := f.fetchErr[placeRef]
	f.mu.Unlock()

	if hook != nil {
		hook(placeRef)
	}
	if err := ctx.Err(); err != nil {
		return places.Metadata{}, err
	}
	if err != nil {
		return places.Metadata{}, err
	}
	if !ok {
		return places.Metadata{}, &places.UpstreamError{Op: "details", Ref: placeRef, StatusCode: 404}
	}
	return md, nil
}

func (f *fakeClient) ResolvePhotoURI(_ context.Context, photoRef string, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uriCalls = append(f.uriCalls, photoRef)
	if err := f.uriErr[photoRef]; err != nil {
		return "", err
	}
	uri, ok := f.photoURIs[photoRef]
	if !ok {
		return "", fmt.Errorf("%w for %s", errors.ErrMissingPhotoURI, photoRef)
	}
	return uri, nil
}

// fakePhotos records downloads and pretends files exist once downloaded.
type fakePhotos struct {
	existing    map[string]bool
	downloadErr error
	downloads   []string
}

func newFakePhotos(existing ...string) *fakePhotos {
	p := &fakePhotos{existing: map[string]bool{}}
	for _, e := range existing {
		p.existing[e] = true
	}
	return p
}

func (p *fakePhotos) HasAsset(existingPath string) bool {
	return existingPath != "" && p.existing[existingPath]
}

func (p *fakePhotos) Download(_ context.Context, placeRef, uri string) (string, error) {
	p.downloads = append(p.downloads, uri)
	if p.downloadErr != nil {
		return "", p.downloadErr
	}
	rel := "assets/place-photos/" + placeRef + ".jpg"
	p.existing[rel] = true
	return rel, nil
}

// memCache is an in-memory CacheStore.
type memCache struct {
	loaded  cachestore.Cache
	saved   cachestore.Cache
	saves   int
	saveErr error
}

func (m *memCache) Load() cachestore.Cache {
	c := cachestore.Cache{}
	for k, v := range m.loaded {
		c[k] = v
	}
	return c
}

func (m *memCache) Save(c cachestore.Cache) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = c
	return nil
}

func newFileCache(t *testing.T) *cachestore.Store {
	t.Helper()
	store, err := cachestore.New(filepath.Join(t.TempDir(), "places_cache.json"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func alphaMetadata() places.Metadata {
	return places.Metadata{
		Name:    "Alpha Kiosk",
		Address: "Via Roma 1",
		WeekdayDescriptions: []string{
			"lunedì: 08:00–20:00", "martedì: 08:00–20:00", "mercoledì: 08:00–20:00",
			"giovedì: 08:00–20:00", "venerdì: 08:00–20:00", "sabato: 09:00–13:00", "domenica: Chiuso",
		},
		PhotoRef: "places/p1/photos/1",
	}
}
