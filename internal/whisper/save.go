package whisper

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// ErrTargetExists indicates a rename was refused because a file already
// occupies the target path.
var ErrTargetExists = errors.New("rename target already exists")

// SaveStats summarizes a recursive save.
type SaveStats struct {
	Renamed int
	Written int
	Skipped int
}

// Save commits a record's pending edits to disk: a changed name renames the
// file (refused when the target exists), then changed metadata is written back
// into the file. The two steps are sequential and independently failable; a
// completed rename stays committed even when the metadata write fails.
func (w *Whisperer) Save(ctx context.Context, f *File) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	logger := w.loggerOrDefault()

	if f.Renamed() {
		if _, err := w.fs.Stat(f.Path); err == nil {
			return fmt.Errorf("%w: %s", ErrTargetExists, f.Path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat rename target: %w", err)
		}

		if err := w.fs.Rename(f.originalPath, f.Path); err != nil {
			return fmt.Errorf("rename file: %w", err)
		}
		logger.Info("Renamed file", "from", f.originalName, "to", f.Name)
		f.originalName = f.Name
		f.originalPath = f.Path
	}

	if !f.dirty {
		return nil
	}

	if f.Kind == KindOther {
		logger.Info("Metadata not available", "file", f.Name)
		f.dirty = false
		return nil
	}

	if err := writeMetadata(f.Path, f.metadata); err != nil {
		if errors.Is(err, ErrUnsupportedWrite) {
			logger.Warn("Metadata write not supported", "file", f.Name, "kind", f.Kind)
			f.dirty = false
			return nil
		}
		return fmt.Errorf("write metadata for %s: %w", f.Name, err)
	}

	f.dirty = false
	logger.Info("Saved metadata", "file", f.Name)
	return nil
}

// SaveTree commits every record in the tree, continuing past per-file
// failures and reporting them through the logger.
func (w *Whisperer) SaveTree(ctx context.Context, dir *Directory) (SaveStats, error) {
	logger := w.loggerOrDefault()
	stats := SaveStats{}

	err := dir.Walk(func(f *File) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		renamed := f.Renamed()
		dirty := f.dirty

		if saveErr := w.Save(ctx, f); saveErr != nil {
			if errors.Is(saveErr, context.Canceled) || errors.Is(saveErr, context.DeadlineExceeded) {
				return saveErr
			}
			logger.Error("Failed to save file", "file", f.Name, "error", saveErr)
			stats.Skipped++
			return nil
		}

		if renamed {
			stats.Renamed++
		}
		if dirty && !f.dirty {
			stats.Written++
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	logger.Info("Completed save of file records", "renamed", stats.Renamed, "written", stats.Written, "skipped", stats.Skipped)
	return stats, nil
}
