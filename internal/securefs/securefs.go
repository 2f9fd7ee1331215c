package securefs

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/locali/placesync/internal/errors"
	"github.com/locali/placesync/internal/logger"
)

const (
	// FilePerm is used for published files: the site serves them as-is.
	FilePerm os.FileMode = 0o644
	// DirPerm is used for directories created under the base.
	DirPerm os.FileMode = 0o755
)

// SecureFS provides filesystem operations restricted to a base directory.
// Paths are relative to the base and use forward slashes; traversal above the
// base and escapes through symlinks are rejected by os.Root.
type SecureFS struct {
	baseDir         string
	root            *os.Root
	maxReadFileSize int64 // 0 = unlimited
	log             logger.Logger
}

// New opens baseDir, creating it if needed.
func New(baseDir string, log logger.Logger) (*SecureFS, error) {
	absPath, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}

	if err := os.MkdirAll(absPath, DirPerm); err != nil {
		return nil, errors.New(fmt.Errorf("failed to create base directory: %w", err)).
			Component("securefs").
			Category(errors.CategoryFileIO).
			Context("base_dir", absPath).
			Build()
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to create filesystem sandbox: %w", err)).
			Component("securefs").
			Category(errors.CategoryFileIO).
			Context("base_dir", absPath).
			Build()
	}

	if log == nil {
		log = logger.NewDiscardLogger()
	}

	return &SecureFS{
		baseDir: absPath,
		root:    root,
		log:     log.Module("securefs"),
	}, nil
}

// BaseDir returns the absolute base directory.
func (sfs *SecureFS) BaseDir() string {
	return sfs.baseDir
}

// ValidateRelativePath cleans a slash-separated path and rejects absolute
// paths and paths that climb above the base.
func (sfs *SecureFS) ValidateRelativePath(relPath string) (string, error) {
	if relPath == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	cleaned := path.Clean(filepath.ToSlash(relPath))
	if path.IsAbs(cleaned) || filepath.IsAbs(relPath) {
		return "", fmt.Errorf("%w: path must be relative, got '%s'", ErrInvalidPath, relPath)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: '%s'", ErrPathTraversal, relPath)
	}
	return filepath.FromSlash(cleaned), nil
}

// SetMaxReadFileSize limits ReadFile. A value of 0 means unlimited.
func (sfs *SecureFS) SetMaxReadFileSize(maxSize int64) {
	sfs.maxReadFileSize = maxSize
}

// MkdirAll creates a directory and its parents below the base.
func (sfs *SecureFS) MkdirAll(relPath string) error {
	p, err := sfs.ValidateRelativePath(relPath)
	if err != nil {
		return err
	}
	if p == "." {
		return nil
	}
	return sfs.root.MkdirAll(p, DirPerm)
}

// Exists reports whether relPath exists below the base.
func (sfs *SecureFS) Exists(relPath string) (bool, error) {
	p, err := sfs.ValidateRelativePath(relPath)
	if err != nil {
		return false, err
	}

	_, err = sfs.root.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ExistsNoErr is Exists with validation and stat errors logged and treated
// as absent.
func (sfs *SecureFS) ExistsNoErr(relPath string) bool {
	exists, err := sfs.Exists(relPath)
	if err != nil {
		sfs.log.Warn("Failed to check path",
			logger.String("path", relPath),
			logger.Error(err))
		return false
	}
	return exists
}

// ReadFile reads a file below the base.
func (sfs *SecureFS) ReadFile(relPath string) ([]byte, error) {
	p, err := sfs.ValidateRelativePath(relPath)
	if err != nil {
		return nil, err
	}

	file, err := sfs.root.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			sfs.log.Warn("Failed to close file", logger.Error(err))
		}
	}()

	if sfs.maxReadFileSize > 0 {
		stat, err := file.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat file: %w", err)
		}
		if stat.Size() > sfs.maxReadFileSize {
			return nil, fmt.Errorf("%w: file is %d bytes, limit is %d bytes",
				ErrFileTooLarge, stat.Size(), sfs.maxReadFileSize)
		}
	}

	return io.ReadAll(file)
}

// WriteFileAtomic writes relPath through a temporary file in the same
// directory, fsyncs it and renames it over the target. Readers see either
// the previous content or the new one. The temporary file is removed on
// any failure.
func (sfs *SecureFS) WriteFileAtomic(relPath string, write func(io.Writer) error) (err error) {
	p, err := sfs.ValidateRelativePath(relPath)
	if err != nil {
		return err
	}

	tmp := filepath.Join(filepath.Dir(p), "."+filepath.Base(p)+".tmp-"+uuid.NewString())
	file, err := sfs.root.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, FilePerm)
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}

	defer func() {
		if err == nil {
			return
		}
		if rmErr := sfs.root.Remove(tmp); rmErr != nil && !os.IsNotExist(rmErr) {
			sfs.log.Warn("Failed to clean up temp file",
				logger.String("temp_path", tmp),
				logger.Error(rmErr))
		}
	}()

	if err = write(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("error writing temporary file: %w", err)
	}
	if err = file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("error syncing temporary file: %w", err)
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}
	if err = sfs.root.Rename(tmp, p); err != nil {
		return fmt.Errorf("error replacing %s: %w", relPath, err)
	}
	return nil
}

// Close closes the underlying Root.
func (sfs *SecureFS) Close() error {
	if sfs.root != nil {
		return sfs.root.Close()
	}
	return nil
}
