// Package cachestore loads and persists the place cache document: one JSON
// object mapping placeRef to its cached metadata, keys in ascending order.
package cachestore

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/locali/placesync/internal/errors"
	"github.com/locali/placesync/internal/logger"
	"github.com/locali/placesync/internal/securefs"
)

// maxCacheSize bounds the document read at startup.
const maxCacheSize = 64 << 20

// Entry is the cached metadata of one place. JSON keys are read by the
// site's front end.
type Entry struct {
	PlaceID             string   `json:"placeId"`
	Name                string   `json:"name"`
	Address             string   `json:"address"`
	WeekdayDescriptions []string `json:"weekdayDescriptions"`
	PhotoPath           string   `json:"photoPath"`
	UpdatedAt           string   `json:"updatedAt"`
}

// Cache maps placeRef to Entry.
type Cache map[string]Entry

// Keys returns the placeRefs in ascending byte order.
func (c Cache) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Store reads and writes the cache document at a fixed path.
type Store struct {
	fs   *securefs.SecureFS
	name string
	path string
	log  logger.Logger
}

// New returns a Store for the document at path. The parent directory is
// created if missing.
func New(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	fs, err := securefs.New(filepath.Dir(path), log)
	if err != nil {
		return nil, err
	}
	fs.SetMaxReadFileSize(maxCacheSize)

	return &Store{
		fs:   fs,
		name: filepath.Base(path),
		path: path,
		log:  log.Module("cachestore"),
	}, nil
}

// Path returns the document path.
func (s *Store) Path() string { return s.path }

// Load returns the persisted cache. A missing, unreadable or malformed
// document yields an empty cache; the reason is logged at debug level.
func (s *Store) Load() Cache {
	data, err := s.fs.ReadFile(s.name)
	if err != nil {
		s.log.Debug("Starting from an empty cache",
			logger.String("path", s.path),
			logger.String("reason", "unreadable"),
			logger.Error(err))
		return Cache{}
	}

	var cache Cache
	if err := json.Unmarshal(data, &cache); err != nil {
		s.log.Debug("Starting from an empty cache",
			logger.String("path", s.path),
			logger.String("reason", "malformed"),
			logger.Error(err))
		return Cache{}
	}
	if cache == nil {
		cache = Cache{}
	}

	s.log.Debug("Cache loaded",
		logger.String("path", s.path),
		logger.Int("entries", len(cache)))
	return cache
}

// Save replaces the document with cache in full. The previous document
// stays intact if Save fails.
func (s *Store) Save(cache Cache) error {
	err := s.fs.WriteFileAtomic(s.name, func(w io.Writer) error {
		return Encode(w, cache)
	})
	if err != nil {
		return errors.New(fmt.Errorf("failed to persist cache: %w", err)).
			Component("cachestore").
			Category(errors.CategoryFileIO).
			Context("path", s.path).
			Build()
	}

	s.log.Debug("Cache saved",
		logger.String("path", s.path),
		logger.Int("entries", len(cache)))
	return nil
}

// Close releases the underlying directory handle.
func (s *Store) Close() error {
	return s.fs.Close()
}

// Encode writes cache as an indented JSON object with keys in ascending
// byte order and a trailing newline.
func Encode(w io.Writer, cache Cache) error {
	normalized := make(Cache, len(cache))
	for k, e := range cache {
		if e.WeekdayDescriptions == nil {
			e.WeekdayDescriptions = []string{}
		}
		normalized[k] = e
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(normalized)
}
