// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"strings"
)

// FindFilesByExtension recursively searches root in fsys for all files
// ending with the specified extension. It returns their slash-separated
// paths within fsys.
func FindFilesByExtension(fsys fs.FS, root string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
