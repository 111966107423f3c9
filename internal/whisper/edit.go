package whisper

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// ParseRenameSpec parses a rename instruction of the form "rel/path=newname".
// The new name must be a bare file name without path separators.
func ParseRenameSpec(spec string) (relPath, newName string, err error) {
	relPath, newName, ok := strings.Cut(spec, "=")
	relPath = strings.TrimSpace(relPath)
	newName = strings.TrimSpace(newName)
	if !ok || relPath == "" || newName == "" {
		return "", "", fmt.Errorf("invalid rename %q, expected path=newname", spec)
	}
	if strings.ContainsAny(newName, `/\`) {
		return "", "", fmt.Errorf("invalid rename %q: new name must not contain path separators", spec)
	}
	return relPath, newName, nil
}

// ParseFieldSpec parses a metadata instruction of the form "rel/path:KEY=value".
// The value keeps any '=' characters it contains.
func ParseFieldSpec(spec string) (relPath, key, value string, err error) {
	target, value, ok := strings.Cut(spec, "=")
	if !ok {
		return "", "", "", fmt.Errorf("invalid field %q, expected path:KEY=value", spec)
	}
	idx := strings.LastIndex(target, ":")
	if idx < 0 {
		return "", "", "", fmt.Errorf("invalid field %q, expected path:KEY=value", spec)
	}
	relPath = strings.TrimSpace(target[:idx])
	key = strings.TrimSpace(target[idx+1:])
	if relPath == "" || key == "" {
		return "", "", "", fmt.Errorf("invalid field %q, expected path:KEY=value", spec)
	}
	return relPath, key, value, nil
}

// RenameFile loads the file at relPath, renames it preserving its extension,
// commits the rename to disk, and reconciles the catalog and sync targets.
// Returns the new relative path.
func (w *Whisperer) RenameFile(ctx context.Context, relPath, newName string) (string, error) {
	relPath = filepath.ToSlash(CleanPath(relPath))

	file, err := LoadFile(w.fs, w.absPath(relPath))
	if err != nil {
		return "", fmt.Errorf("load %s: %w", relPath, err)
	}

	file.Rename(newName)
	if !file.Renamed() {
		return relPath, nil
	}

	if err := w.Save(ctx, file); err != nil {
		return "", err
	}
	newRel := w.relativePath(file.Path)

	if w.db == nil {
		return newRel, nil
	}

	var changes RecordChangeSet
	_, delta, err := w.deleteRecord(ctx, relPath)
	if err != nil {
		return newRel, err
	}
	changes.Merge(delta)

	_, delta, err = w.syncRecord(ctx, newRel, file)
	if err != nil {
		return newRel, err
	}
	changes.Merge(delta)

	if err := w.dispatchRecordChanges(ctx, changes); err != nil {
		return newRel, err
	}
	return newRel, nil
}

// SetFileField loads the file at relPath, sets a single metadata field,
// commits the change to disk, and reconciles the catalog and sync targets.
func (w *Whisperer) SetFileField(ctx context.Context, relPath, key, value string) error {
	relPath = filepath.ToSlash(CleanPath(relPath))

	file, err := LoadFile(w.fs, w.absPath(relPath))
	if err != nil {
		return fmt.Errorf("load %s: %w", relPath, err)
	}

	file.SetField(key, value)
	if err := w.Save(ctx, file); err != nil {
		return err
	}

	if w.db == nil {
		return nil
	}

	_, delta, err := w.syncRecord(ctx, relPath, file)
	if err != nil {
		return err
	}
	return w.dispatchRecordChanges(ctx, delta)
}
