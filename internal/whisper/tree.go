package whisper

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

// Directory mirrors a filesystem directory as a tree of file records.
type Directory struct {
	Name  string
	Path  string
	Files []*File
	Dirs  []*Directory
}

// ScanOptions control how deep a scan recurses and which directories it skips.
type ScanOptions struct {
	// MaxDepth limits recursion; 1 lists only the root's entries and 0 or
	// less means unlimited.
	MaxDepth   int
	IgnoreDirs []string
}

// Scan walks root up to the configured depth and wraps every discovered file
// in a record with its metadata loaded.
func Scan(fsys FileSystem, root string, opts ScanOptions) (*Directory, error) {
	root = CleanPath(root)

	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	ignoreSet := make(map[string]struct{}, len(opts.IgnoreDirs))
	for _, dir := range opts.IgnoreDirs {
		clean := strings.Trim(strings.TrimSpace(dir), "/")
		if clean == "" {
			continue
		}
		ignoreSet[filepath.ToSlash(clean)] = struct{}{}
	}

	return scanDir(fsys, root, root, opts.MaxDepth, ignoreSet)
}

func scanDir(fsys FileSystem, root, path string, depth int, ignore map[string]struct{}) (*Directory, error) {
	dir := &Directory{
		Name: filepath.Base(path),
		Path: path,
	}

	entries, err := fsys.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", path, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		childPath := filepath.Join(path, entry.Name())

		if entry.IsDir() {
			if depth == 1 {
				continue
			}
			if isIgnoredDir(root, childPath, ignore) {
				continue
			}
			nextDepth := depth
			if nextDepth > 1 {
				nextDepth--
			}
			sub, err := scanDir(fsys, root, childPath, nextDepth, ignore)
			if err != nil {
				return nil, err
			}
			dir.Dirs = append(dir.Dirs, sub)
			continue
		}

		file, err := LoadFile(fsys, childPath)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", childPath, err)
		}
		dir.Files = append(dir.Files, file)
	}

	return dir, nil
}

func isIgnoredDir(root, path string, ignore map[string]struct{}) bool {
	if len(ignore) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	relSlash := strings.Trim(filepath.ToSlash(rel), "/")
	_, ok := ignore[relSlash]
	return ok
}

// Walk visits every file record in the tree, depth first. Returning an error
// from fn stops the walk.
func (d *Directory) Walk(fn func(*File) error) error {
	for _, f := range d.Files {
		if err := fn(f); err != nil {
			return err
		}
	}
	for _, sub := range d.Dirs {
		if err := sub.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Flatten returns every file record in the tree, depth first.
func (d *Directory) Flatten() []*File {
	var files []*File
	d.Walk(func(f *File) error {
		files = append(files, f)
		return nil
	})
	return files
}

// CountFiles returns the number of file records in the tree.
func (d *Directory) CountFiles() int {
	count := 0
	d.Walk(func(*File) error {
		count++
		return nil
	})
	return count
}

// Describe writes a display listing of every file record to w.
func (d *Directory) Describe(w io.Writer) {
	d.Walk(func(f *File) error {
		fmt.Fprintf(w, "%s\n\n", f.Describe())
		return nil
	})
}
