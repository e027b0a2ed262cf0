// Package filesys provides the directory-creation helper the context layer
// uses to create the data directory and the index subdirectory. The
// teacher's filesys package carried a much larger general-purpose surface
// (copy, search, cwd management); FacileDB only needs to ensure a directory
// exists, so the rest was trimmed rather than kept unused (see DESIGN.md).
package filesys

import (
	"errors"
	"os"
)

// ErrIsNotDir indicates a path that was expected to be a directory is
// actually a regular file.
var ErrIsNotDir = errors.New("path isn't a directory")

// CreateDir creates a directory at the specified path with the given
// permissions.
//
// If the directory already exists:
//   - If 'force' is true, it proceeds without error.
//   - If 'force' is false, it returns an error.
//
// It also returns an error if the existing path is a file (not a directory).
func CreateDir(dirPath string, permission os.FileMode, force bool) error {
	stat, err := os.Stat(dirPath)
	if !force && !os.IsNotExist(err) {
		if err == nil {
			return &os.PathError{Op: "mkdir", Path: dirPath, Err: os.ErrExist}
		}
		return err
	}

	if stat != nil && !stat.IsDir() {
		return ErrIsNotDir
	}

	if err := os.MkdirAll(dirPath, permission); err != nil {
		return err
	}

	return os.Chmod(dirPath, permission)
}
