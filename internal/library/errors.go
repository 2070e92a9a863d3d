package library

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrPermission is returned when the storage capability lacks write access.
	ErrPermission = errors.New("library: permission denied")

	// ErrIO is returned when a directory or file operation fails.
	ErrIO = errors.New("library: write failed")

	// ErrStructure is returned when the archive tree cannot be built on a path
	// that sanitization already guarantees to be valid.
	ErrStructure = errors.New("library: invalid archive structure")
)

// WriteError describes a failed operation on the destination tree.
// It matches its Kind and the underlying error with errors.Is.
type WriteError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *WriteError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s %s", e.Kind, e.Op, e.Path)
	}
	return fmt.Sprintf("%v: %s %s: %v", e.Kind, e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// classify wraps a filesystem error as either a permission or an I/O failure.
func classify(op, path string, err error) error {
	kind := ErrIO
	if errors.Is(err, fs.ErrPermission) {
		kind = ErrPermission
	}
	return &WriteError{Op: op, Path: path, Kind: kind, Err: err}
}
