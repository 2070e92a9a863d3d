package library

// Directory is a storage capability scoped to one directory.
// Implementations exist for a real filesystem and for an in-memory archive.
type Directory interface {
	// GetOrCreateSubdirectory opens the named child directory, creating it if absent.
	GetOrCreateSubdirectory(name string) (Directory, error)

	// GetOrCreateFile opens the named file for writing, creating it if absent.
	GetOrCreateFile(name string) (FileHandle, error)
}

// FileHandle is a writable file inside a Directory.
type FileHandle interface {
	// Write replaces the full content of the file.
	Write(data []byte) error
}

// Write realizes tree below root. Directories are created before any file
// inside them; brand-level files are written before the category is opened.
//
// Write is not atomic and does not observe cancellation: a failure leaves the
// destination partially written and callers must re-run the export. Callers
// must serialize Write calls targeting the same root.
func Write(root Directory, tree Tree) error {
	brandDir, err := root.GetOrCreateSubdirectory(tree.Brand.Name)
	if err != nil {
		return err
	}
	if err := writeFiles(brandDir, tree.Brand.Files); err != nil {
		return err
	}

	categoryDir, err := brandDir.GetOrCreateSubdirectory(tree.Category)
	if err != nil {
		return err
	}
	productDir, err := categoryDir.GetOrCreateSubdirectory(tree.Product.Name)
	if err != nil {
		return err
	}
	return writeFiles(productDir, tree.Product.Files)
}

func writeFiles(dir Directory, files []File) error {
	for _, f := range files {
		handle, err := dir.GetOrCreateFile(f.Name)
		if err != nil {
			return err
		}
		if err := handle.Write(f.Data); err != nil {
			return err
		}
	}
	return nil
}
