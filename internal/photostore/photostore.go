// Package photostore keeps downloaded place photos on disk, one file per
// placeRef. A photo file is never overwritten once it exists.
package photostore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/locali/placesync/internal/errors"
	"github.com/locali/placesync/internal/httpclient"
	"github.com/locali/placesync/internal/logger"
	"github.com/locali/placesync/internal/securefs"
)

// maxPhotoSize bounds a single download.
const maxPhotoSize = 20 << 20

// Store downloads photos into a directory below the site root. Paths it
// returns are relative to the site root and use forward slashes.
type Store struct {
	fs   *securefs.SecureFS
	dir  string // photo directory relative to the site root, slash-separated
	http *httpclient.Client
	log  logger.Logger
}

// New returns a Store writing into dir, a slash-separated path relative to
// the root of fs.
func New(fs *securefs.SecureFS, dir string, hc *httpclient.Client, log logger.Logger) (*Store, error) {
	cleaned, err := fs.ValidateRelativePath(dir)
	if err != nil {
		return nil, errors.New(fmt.Errorf("invalid photo directory: %w", err)).
			Component("photostore").
			Category(errors.CategoryConfiguration).
			Context("photos_dir", dir).
			Build()
	}
	if hc == nil {
		hc = httpclient.New(nil)
	}
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	return &Store{
		fs:   fs,
		dir:  filepath.ToSlash(cleaned),
		http: hc,
		log:  log.Module("photostore"),
	}, nil
}

// Dir returns the photo directory relative to the site root.
func (s *Store) Dir() string { return s.dir }

// EnsureDir creates the photo directory if it does not exist.
func (s *Store) EnsureDir() error {
	if err := s.fs.MkdirAll(s.dir); err != nil {
		return errors.New(fmt.Errorf("failed to create photo directory: %w", err)).
			Component("photostore").
			Category(errors.CategoryFileIO).
			Context("photos_dir", s.dir).
			Build()
	}
	return nil
}

// HasAsset reports whether existingPath is non-empty and names a file that
// exists under the site root.
func (s *Store) HasAsset(existingPath string) bool {
	if existingPath == "" {
		return false
	}
	return s.fs.ExistsNoErr(existingPath)
}

// Download fetches uri and stores it as <dir>/<placeRef>.<ext>, the
// extension inferred from the response Content-Type. If that file already
// exists its path is returned and nothing is written. Transfer failures
// match errors.ErrDownloadFailed.
func (s *Store) Download(ctx context.Context, placeRef, uri string) (string, error) {
	if err := validatePlaceRef(placeRef); err != nil {
		return "", err
	}

	resp, err := s.http.Get(ctx, uri, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", errors.New(ctxErr).
				Component("photostore").
				Category(errors.CategoryCancellation).
				Build()
		}
		return "", s.downloadError(placeRef, 0, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.log.Debug("Failed to close response body", logger.Error(cerr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", s.downloadError(placeRef, resp.StatusCode, nil)
	}

	relPath := path.Join(s.dir, placeRef+"."+ExtensionFor(resp.Header.Get("Content-Type")))
	if s.fs.ExistsNoErr(relPath) {
		s.log.Debug("Photo already present, not overwriting",
			logger.String("place_id", placeRef),
			logger.String("path", relPath))
		return relPath, nil
	}

	var written int64
	err = s.fs.WriteFileAtomic(relPath, func(w io.Writer) error {
		n, copyErr := io.Copy(w, io.LimitReader(resp.Body, maxPhotoSize+1))
		written = n
		if copyErr != nil {
			return copyErr
		}
		if n > maxPhotoSize {
			return fmt.Errorf("photo exceeds %d bytes", maxPhotoSize)
		}
		return nil
	})
	if err != nil {
		return "", s.downloadError(placeRef, resp.StatusCode, err)
	}

	s.log.Info("Photo downloaded",
		logger.String("place_id", placeRef),
		logger.String("path", relPath),
		logger.Int64("bytes", written))
	return relPath, nil
}

func (s *Store) downloadError(placeRef string, status int, cause error) error {
	var err error
	switch {
	case cause != nil:
		err = fmt.Errorf("%w for %s: %w", errors.ErrDownloadFailed, placeRef, cause)
	case status != 0:
		err = fmt.Errorf("%w for %s: HTTP %d", errors.ErrDownloadFailed, placeRef, status)
	default:
		err = fmt.Errorf("%w for %s", errors.ErrDownloadFailed, placeRef)
	}
	return errors.New(err).
		Component("photostore").
		Category(errors.CategoryImageFetch).
		Context("place_id", placeRef).
		Context("status_code", status).
		Build()
}

// validatePlaceRef rejects references that would name a file outside the
// photo directory.
func validatePlaceRef(placeRef string) error {
	if placeRef == "" || placeRef == "." || strings.Contains(placeRef, "..") || strings.ContainsAny(placeRef, `/\`) {
		return errors.Newf("invalid place reference %q for a photo file name", placeRef).
			Component("photostore").
			Category(errors.CategoryValidation).
			Context("place_id", placeRef).
			Build()
	}
	return nil
}

// ExtensionFor maps a Content-Type to a file extension: png and webp are
// recognized, everything else is stored as jpg.
func ExtensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case strings.Contains(mediaType, "image/png"):
		return "png"
	case strings.Contains(mediaType, "image/webp"):
		return "webp"
	default:
		return "jpg"
	}
}
