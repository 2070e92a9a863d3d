package library

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// ArchiveContentType is the MIME type of serialized archives.
const ArchiveContentType = "application/zip"

var (
	errInvalidEntryName = errors.New("entry name must be a single non-empty path segment")
	errEntryIsFile      = errors.New("a file with this name already exists")
	errEntryIsDirectory = errors.New("a folder with this name already exists")
)

// ArchiveDirectory is an in-memory Directory. A tree of them is serialized
// into a single zip archive and never touches real storage.
type ArchiveDirectory struct {
	path  string
	dirs  []*ArchiveDirectory
	files []*archiveFile
}

type archiveFile struct {
	name string
	data []byte
}

func (f *archiveFile) Write(data []byte) error {
	f.data = bytes.Clone(data)
	return nil
}

// NewArchiveDirectory returns an empty archive root.
func NewArchiveDirectory() *ArchiveDirectory {
	return &ArchiveDirectory{}
}

func (a *ArchiveDirectory) GetOrCreateSubdirectory(name string) (Directory, error) {
	p := a.join(name)
	if !validEntryName(name) {
		return nil, &WriteError{Op: "folder", Path: p, Kind: ErrStructure, Err: errInvalidEntryName}
	}
	for _, f := range a.files {
		if f.name == name {
			return nil, &WriteError{Op: "folder", Path: p, Kind: ErrStructure, Err: errEntryIsFile}
		}
	}
	for _, d := range a.dirs {
		if d.path == p {
			return d, nil
		}
	}
	dir := &ArchiveDirectory{path: p}
	a.dirs = append(a.dirs, dir)
	return dir, nil
}

func (a *ArchiveDirectory) GetOrCreateFile(name string) (FileHandle, error) {
	p := a.join(name)
	if !validEntryName(name) {
		return nil, &WriteError{Op: "file", Path: p, Kind: ErrStructure, Err: errInvalidEntryName}
	}
	for _, d := range a.dirs {
		if d.path == p {
			return nil, &WriteError{Op: "file", Path: p, Kind: ErrStructure, Err: errEntryIsDirectory}
		}
	}
	for _, f := range a.files {
		if f.name == name {
			return f, nil
		}
	}
	f := &archiveFile{name: name}
	a.files = append(a.files, f)
	return f, nil
}

// Serialize writes the directory and everything below it as a zip archive.
// Entries appear depth-first: each folder, then its files, then its subfolders.
func (a *ArchiveDirectory) Serialize(w io.Writer, modified time.Time) error {
	zw := zip.NewWriter(w)
	if err := a.serialize(zw, modified); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func (a *ArchiveDirectory) serialize(zw *zip.Writer, modified time.Time) error {
	if a.path != "" {
		header := &zip.FileHeader{Name: a.path + "/", Method: zip.Store, Modified: modified}
		header.SetMode(fs.ModeDir | 0o755)
		if _, err := zw.CreateHeader(header); err != nil {
			return err
		}
	}
	for _, f := range a.files {
		header := &zip.FileHeader{Name: a.join(f.name), Method: zip.Deflate, Modified: modified}
		header.SetMode(0o644)
		entry, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		if _, err := entry.Write(f.data); err != nil {
			return err
		}
	}
	for _, d := range a.dirs {
		if err := d.serialize(zw, modified); err != nil {
			return err
		}
	}
	return nil
}

func (a *ArchiveDirectory) join(name string) string {
	if a.path == "" {
		return name
	}
	return a.path + "/" + name
}

func validEntryName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

type archiveOptions struct {
	now func() time.Time
}

// ArchiveOption customises archive serialization.
type ArchiveOption func(*archiveOptions)

// WithClock injects the clock used for entry modification times.
func WithClock(clock func() time.Time) ArchiveOption {
	return func(o *archiveOptions) {
		if clock != nil {
			o.now = clock
		}
	}
}

// BuildArchive realizes tree in memory and serializes it to zip bytes.
func BuildArchive(tree Tree, opts ...ArchiveOption) ([]byte, error) {
	o := archiveOptions{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	root := NewArchiveDirectory()
	if err := Write(root, tree); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := root.Serialize(&buf, o.now()); err != nil {
		return nil, &WriteError{Op: "serialize", Path: tree.Brand.Name, Kind: ErrIO, Err: err}
	}
	return buf.Bytes(), nil
}
