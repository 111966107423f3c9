package whisper

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

type mapFileSystem struct {
	fs fstest.MapFS
}

func newMapFileSystem(files map[string]string) mapFileSystem {
	m := make(fstest.MapFS, len(files))
	for name, data := range files {
		m[normalizePath(name)] = &fstest.MapFile{Mode: 0o644, Data: []byte(data)}
	}
	if len(m) == 0 {
		m["."] = &fstest.MapFile{Mode: fs.ModeDir}
	}
	return mapFileSystem{fs: m}
}

func (m mapFileSystem) Open(name string) (fs.File, error) {
	return m.fs.Open(normalizePath(name))
}

func (m mapFileSystem) Stat(name string) (fs.FileInfo, error) {
	return fs.Stat(m.fs, normalizePath(name))
}

func (m mapFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	return fs.ReadDir(m.fs, normalizePath(name))
}

func (m mapFileSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	path := normalizePath(root)
	if path == "" {
		path = "."
	}
	return fs.WalkDir(m.fs, path, fn)
}

func (m mapFileSystem) Rename(oldpath, newpath string) error {
	o := normalizePath(oldpath)
	n := normalizePath(newpath)
	file, ok := m.fs[o]
	if !ok {
		return &fs.PathError{Op: "rename", Path: oldpath, Err: fs.ErrNotExist}
	}
	m.fs[n] = file
	delete(m.fs, o)
	return nil
}

func normalizePath(p string) string {
	if p == "" {
		return ""
	}
	cleaned := filepath.ToSlash(p)
	cleaned = strings.TrimPrefix(cleaned, "./")
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		return "."
	}
	return cleaned
}

func TestScanBuildsTree(t *testing.T) {
	fsys := newMapFileSystem(map[string]string{
		"b.txt":            "beta",
		"a.txt":            "alpha",
		"music/notes.md":   "notes",
		"music/deep/x.txt": "deep",
	})

	tree, err := Scan(fsys, ".", ScanOptions{})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if len(tree.Files) != 2 {
		t.Fatalf("expected 2 root files, got %d", len(tree.Files))
	}
	if tree.Files[0].Name != "a.txt" || tree.Files[1].Name != "b.txt" {
		t.Fatalf("unexpected root file order: %s, %s", tree.Files[0].Name, tree.Files[1].Name)
	}
	if len(tree.Dirs) != 1 || tree.Dirs[0].Name != "music" {
		t.Fatalf("expected music subdirectory, got %+v", tree.Dirs)
	}
	if got := tree.CountFiles(); got != 4 {
		t.Fatalf("expected 4 files in tree, got %d", got)
	}

	flat := tree.Flatten()
	if len(flat) != 4 {
		t.Fatalf("expected 4 flattened files, got %d", len(flat))
	}
	for _, f := range flat {
		if f.Kind != KindOther {
			t.Fatalf("expected kind other for %s, got %s", f.Name, f.Kind)
		}
		if f.Size == 0 {
			t.Fatalf("expected nonzero size for %s", f.Name)
		}
	}
}

func TestScanDepthLimit(t *testing.T) {
	fsys := newMapFileSystem(map[string]string{
		"a.txt":            "alpha",
		"sub/b.txt":        "beta",
		"sub/deep/c.txt":   "gamma",
		"sub/deep/d/e.txt": "delta",
	})

	tree, err := Scan(fsys, ".", ScanOptions{MaxDepth: 1})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if got := tree.CountFiles(); got != 1 {
		t.Fatalf("depth 1: expected 1 file, got %d", got)
	}

	tree, err = Scan(fsys, ".", ScanOptions{MaxDepth: 2})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if got := tree.CountFiles(); got != 2 {
		t.Fatalf("depth 2: expected 2 files, got %d", got)
	}

	tree, err = Scan(fsys, ".", ScanOptions{})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if got := tree.CountFiles(); got != 4 {
		t.Fatalf("unlimited: expected 4 files, got %d", got)
	}
}

func TestScanIgnoresDirectories(t *testing.T) {
	fsys := newMapFileSystem(map[string]string{
		"keep.txt":        "keep",
		"skip/lost.txt":   "lost",
		"other/found.txt": "found",
	})

	tree, err := Scan(fsys, ".", ScanOptions{IgnoreDirs: []string{"skip"}})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	for _, f := range tree.Flatten() {
		if f.Name == "lost.txt" {
			t.Fatalf("ignored directory was scanned")
		}
	}
	if got := tree.CountFiles(); got != 2 {
		t.Fatalf("expected 2 files, got %d", got)
	}
}

func TestScanRejectsFileRoot(t *testing.T) {
	fsys := newMapFileSystem(map[string]string{"a.txt": "alpha"})

	if _, err := Scan(fsys, "a.txt", ScanOptions{}); err == nil {
		t.Fatalf("expected error scanning a file root")
	}
}

func TestWalkStopsOnError(t *testing.T) {
	fsys := newMapFileSystem(map[string]string{
		"a.txt": "alpha",
		"b.txt": "beta",
	})

	tree, err := Scan(fsys, ".", ScanOptions{})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	visited := 0
	wantErr := fs.ErrClosed
	err = tree.Walk(func(*File) error {
		visited++
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected walk to return the callback error, got %v", err)
	}
	if visited != 1 {
		t.Fatalf("expected walk to stop after first file, visited %d", visited)
	}
}
