// Package source discovers agent log files and normalizes them into records.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ScanDir walks root and returns metadata for every regular file whose
// extension matches ext. Symlinks below root are not followed.
//
// A missing root is not an error: the tool has simply never run. Entries that
// cannot be read are skipped. Only a root that exists but cannot be walked
// is reported.
func ScanDir(root, ext string) ([]FileMetadata, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, nil
	}
	root = ResolveRoot(root)
	ext = normalizeExt(ext)

	var files []FileMetadata
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil //nolint:nilerr // intentionally skip unreadable entries
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if filepath.Ext(path) != ext {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // file vanished or is unreadable
		}
		files = append(files, newFileMetadata(path, fi))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

// ResolveRoot follows a symlinked root once so the walk can descend into it.
// Paths that cannot be resolved are returned cleaned but otherwise unchanged.
func ResolveRoot(root string) string {
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		return resolved
	}
	return filepath.Clean(root)
}

// StatFile returns metadata for a single file.
func StatFile(path string) (FileMetadata, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return FileMetadata{}, err
	}
	return newFileMetadata(path, fi), nil
}

func newFileMetadata(path string, fi fs.FileInfo) FileMetadata {
	return FileMetadata{
		Path:       path,
		CreatedAt:  birthTime(path, fi).UTC(),
		ModifiedAt: fi.ModTime().UTC(),
		Size:       fi.Size(),
	}
}

func normalizeExt(ext string) string {
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}
