package whisper

import (
	"fmt"
	"path/filepath"
	"strings"
)

// File is an in-memory record of a discovered file. Name and Path reflect
// pending edits; the original name and path track what is currently on disk
// until Save commits the change.
type File struct {
	Name string
	Path string
	Kind Kind
	Size int64
	MIME string

	// Warnings collects non-fatal issues hit while loading metadata.
	Warnings []string

	originalName string
	originalPath string
	metadata     Metadata
	dirty        bool
}

// NewFile builds a record for the file at path without touching the disk.
// Metadata stays empty; use LoadFile or Scan for populated records.
func NewFile(name, path string) *File {
	return &File{
		Name:         name,
		Path:         path,
		Kind:         KindForPath(path),
		originalName: name,
		originalPath: path,
	}
}

// LoadFile builds a record for a single file, sniffing its content type and
// opportunistically extracting metadata. A metadata extraction failure is
// recorded as a warning rather than an error.
func LoadFile(fsys FileSystem, path string) (*File, error) {
	path = CleanPath(path)

	info, err := fsys.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	f := NewFile(filepath.Base(path), path)
	f.Size = info.Size()
	f.MIME = DetectMIME(fsys, path)

	if f.Kind != KindOther {
		md, mdErr := ReadMetadata(path)
		if mdErr != nil {
			f.Warnings = append(f.Warnings, fmt.Sprintf("read metadata: %v", mdErr))
		} else {
			f.metadata = md
		}
	}

	return f, nil
}

func (f *File) String() string {
	return f.Name
}

// OriginalName returns the on-disk name the record was loaded with.
func (f *File) OriginalName() string {
	return f.originalName
}

// OriginalPath returns the on-disk path the record was loaded with.
func (f *File) OriginalPath() string {
	return f.originalPath
}

// Renamed reports whether the record's path differs from the on-disk path.
func (f *File) Renamed() bool {
	return f.Path != f.originalPath
}

// Dirty reports whether the metadata was modified since loading.
func (f *File) Dirty() bool {
	return f.dirty
}

// Rename updates the record's name, preserving the current file extension and
// recomputing the path. The change is committed to disk by Save.
func (f *File) Rename(name string) {
	ext := filepath.Ext(f.Path)
	if ext != "" && !strings.HasSuffix(name, ext) {
		name += ext
	}
	f.Name = name
	f.Path = filepath.Join(filepath.Dir(f.Path), name)
}

// Metadata returns a copy of the record's metadata.
func (f *File) Metadata() Metadata {
	return f.metadata.Clone()
}

// Field returns a single metadata value.
func (f *File) Field(key string) (string, bool) {
	v, ok := f.metadata[key]
	return v, ok
}

// SetField updates a single metadata value and marks the record dirty.
func (f *File) SetField(key, value string) {
	if f.metadata == nil {
		f.metadata = Metadata{}
	}
	f.metadata[key] = value
	f.dirty = true
}

// SetMetadata replaces the record's metadata wholesale and marks it dirty.
func (f *File) SetMetadata(md Metadata) {
	f.metadata = md.Clone()
	f.dirty = true
}

// Describe renders the record for display, mirroring the metadata listing.
func (f *File) Describe() string {
	meta := f.metadata.Format()
	if meta == "" {
		meta = fmt.Sprintf("%s has no metadata", f.Name)
	}
	return fmt.Sprintf("PATH: %s\nNAME: %s\nMETADATA:\n%s", f.Path, f.Name, meta)
}
