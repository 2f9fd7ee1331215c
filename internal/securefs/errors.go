// Package securefs provides file operations confined to a base directory
// through os.Root, with atomic replacement of written files.
package securefs

import (
	"github.com/locali/placesync/internal/errors"
)

// Sentinel errors for the securefs package.
// These errors can be used with errors.Is to check for specific error conditions.
var (
	// ErrPathTraversal indicates an attempt to access a path outside the allowed directory
	// via relative path traversal (e.g., using "../" to escape the directory).
	ErrPathTraversal = errors.NewStd("security error: path attempts to traverse outside base directory")

	// ErrInvalidPath is returned for absolute or otherwise unusable paths.
	ErrInvalidPath = errors.NewStd("security error: invalid path")

	// ErrFileTooLarge is returned when a file exceeds the configured size limit
	ErrFileTooLarge = errors.NewStd("file size exceeds maximum allowed size")
)
