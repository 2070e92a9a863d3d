package library

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

var errNotDirectory = errors.New("exists and is not a directory")

// FSDirectory is a Directory backed by a real (or in-memory) filesystem.
type FSDirectory struct {
	fs   afero.Fs
	path string
}

// NewFSDirectory opens dir on fsys. The directory itself must already exist.
func NewFSDirectory(fsys afero.Fs, dir string) *FSDirectory {
	return &FSDirectory{fs: fsys, path: dir}
}

// Path returns the directory location on the underlying filesystem.
func (d *FSDirectory) Path() string {
	return d.path
}

func (d *FSDirectory) GetOrCreateSubdirectory(name string) (Directory, error) {
	p := filepath.Join(d.path, name)

	info, err := d.fs.Stat(p)
	switch {
	case err == nil && info.IsDir():
		return &FSDirectory{fs: d.fs, path: p}, nil
	case err == nil:
		return nil, &WriteError{Op: "mkdir", Path: p, Kind: ErrIO, Err: errNotDirectory}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, classify("stat", p, err)
	}

	if err := d.fs.Mkdir(p, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return nil, classify("mkdir", p, err)
	}
	return &FSDirectory{fs: d.fs, path: p}, nil
}

func (d *FSDirectory) GetOrCreateFile(name string) (FileHandle, error) {
	p := filepath.Join(d.path, name)

	info, err := d.fs.Stat(p)
	if err == nil && info.IsDir() {
		return nil, &WriteError{Op: "open", Path: p, Kind: ErrIO, Err: fmt.Errorf("%s is a directory", name)}
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, classify("stat", p, err)
	}
	return &fsFile{fs: d.fs, path: p}, nil
}

type fsFile struct {
	fs   afero.Fs
	path string
}

func (f *fsFile) Write(data []byte) error {
	if err := afero.WriteFile(f.fs, f.path, data, 0o644); err != nil {
		return classify("write", f.path, err)
	}
	return nil
}

// LibraryWriter writes destination trees into directories of one filesystem.
type LibraryWriter struct {
	fs afero.Fs
}

// NewLibraryWriter creates a writer over fsys.
func NewLibraryWriter(fsys afero.Fs) *LibraryWriter {
	return &LibraryWriter{fs: fsys}
}

// Write realizes tree below root, overwriting same-named files.
func (w *LibraryWriter) Write(root string, tree Tree) error {
	return Write(NewFSDirectory(w.fs, root), tree)
}

// Prune removes product-level files listed in previous that tree no longer
// produces. Brand-level files are shared between products and never removed.
// Paths compare case-insensitively, so a previous entry that differs from a
// current one only by case is kept. It returns the slash separated paths that
// were deleted.
func (w *LibraryWriter) Prune(root string, tree Tree, previous []string) ([]string, error) {
	current := make(map[string]bool)
	for _, p := range tree.Paths() {
		current[strings.ToLower(p)] = true
	}

	productPath := tree.ProductPath()
	var removed []string
	for _, p := range previous {
		if current[strings.ToLower(p)] || path.Dir(p) != productPath {
			continue
		}
		target := filepath.Join(root, filepath.FromSlash(p))
		if err := w.fs.Remove(target); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, classify("remove", target, err)
		}
		removed = append(removed, p)
	}
	return removed, nil
}
