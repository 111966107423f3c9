package whisper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
)

type recordSyncStats struct {
	inserted int
	updated  int
	deleted  int
}

func (s *recordSyncStats) add(other recordSyncStats) {
	s.inserted += other.inserted
	s.updated += other.updated
	s.deleted += other.deleted
}

// SyncSummary captures aggregate details about a synchronization run.
type SyncSummary struct {
	FilesProcessed  int
	FilesRemoved    int
	RecordsInserted int
	RecordsUpdated  int
	RecordsDeleted  int
	TotalFiles      int
}

// Synchronize scans the root directory and reconciles the discovered file
// records with the SQLite catalog. Files are processed one at a time; the
// scan itself mirrors the filesystem tree.
func (w *Whisperer) Synchronize(ctx context.Context) (SyncSummary, error) {
	logger := w.loggerOrDefault()

	tree, err := Scan(w.fs, w.root, w.scanOptions())
	if err != nil {
		return SyncSummary{}, fmt.Errorf("scan root: %w", err)
	}
	files := tree.Flatten()
	logger.Info("Collected files to process", "count", len(files))

	existingFiles, err := w.loadExistingFiles(ctx)
	if err != nil {
		return SyncSummary{}, err
	}

	summary := SyncSummary{FilesProcessed: len(files)}
	totals := recordSyncStats{}
	var changes RecordChangeSet

	for _, file := range files {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return SyncSummary{}, ctxErr
		}

		rel := w.relativePath(file.Path)
		stats, delta, syncErr := w.syncRecord(ctx, rel, file)
		if syncErr != nil {
			return SyncSummary{}, fmt.Errorf("sync file %s: %w", rel, syncErr)
		}
		totals.add(stats)
		changes.Merge(delta)
		delete(existingFiles, rel)
	}

	summary.FilesRemoved = len(existingFiles)
	for rel := range existingFiles {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return SyncSummary{}, ctxErr
		}

		stats, delta, syncErr := w.deleteRecord(ctx, rel)
		if syncErr != nil {
			return SyncSummary{}, fmt.Errorf("remove file %s: %w", rel, syncErr)
		}
		totals.add(stats)
		changes.Merge(delta)
	}

	summary.RecordsInserted = totals.inserted
	summary.RecordsUpdated = totals.updated
	summary.RecordsDeleted = totals.deleted

	logger.Info("Synchronization complete", "processed_files", len(files), "removed_files", summary.FilesRemoved, "records_inserted", summary.RecordsInserted, "records_updated", summary.RecordsUpdated, "records_deleted", summary.RecordsDeleted)

	if err := w.dispatchRecordChanges(ctx, changes); err != nil {
		return SyncSummary{}, fmt.Errorf("dispatch record changes: %w", err)
	}

	var total int
	if err := w.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&total); err != nil {
		return SyncSummary{}, fmt.Errorf("count files: %w", err)
	}
	summary.TotalFiles = total

	return summary, nil
}

// SyncPath reconciles the catalog state of a single relative file path,
// loading the file from disk when it still exists.
func (w *Whisperer) SyncPath(ctx context.Context, relPath string) (recordSyncStats, RecordChangeSet, error) {
	if w.isIgnored(relPath) {
		return w.deleteRecord(ctx, relPath)
	}

	file, err := LoadFile(w.fs, w.absPath(relPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return w.deleteRecord(ctx, relPath)
		}
		return recordSyncStats{}, RecordChangeSet{}, err
	}

	return w.syncRecord(ctx, relPath, file)
}

func (w *Whisperer) syncRecord(ctx context.Context, relPath string, file *File) (recordSyncStats, RecordChangeSet, error) {
	record, err := newFileRecord(relPath, file)
	if err != nil {
		return recordSyncStats{}, RecordChangeSet{}, err
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return recordSyncStats{}, RecordChangeSet{}, fmt.Errorf("begin transaction: %w", err)
	}
	stats, changes, err := w.syncRecordTx(ctx, tx, record)
	if err != nil {
		tx.Rollback()
		return recordSyncStats{}, RecordChangeSet{}, err
	}
	if err := tx.Commit(); err != nil {
		return recordSyncStats{}, RecordChangeSet{}, fmt.Errorf("commit transaction: %w", err)
	}
	return stats, changes, nil
}

func (w *Whisperer) syncRecordTx(ctx context.Context, tx *sql.Tx, record FileRecord) (recordSyncStats, RecordChangeSet, error) {
	logger := w.loggerOrDefault()

	encoded, _, err := encodeMetadata(record.Metadata)
	if err != nil {
		return recordSyncStats{}, RecordChangeSet{}, err
	}

	var existingHash, existingMIME string
	var existingSize int64
	row := tx.QueryRowContext(ctx, `SELECT metadata_hash, size, mime_type FROM files WHERE path = ?`, record.Path)
	scanErr := row.Scan(&existingHash, &existingSize, &existingMIME)

	switch {
	case scanErr == sql.ErrNoRows:
		if _, execErr := tx.ExecContext(ctx, `
INSERT INTO files (path, name, kind, size, mime_type, metadata, metadata_hash)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, record.Path, record.Name, record.Kind, record.Size, record.MIME, encoded, record.MetadataHash); execErr != nil {
			return recordSyncStats{}, RecordChangeSet{}, fmt.Errorf("insert record: %w", execErr)
		}
		logger.Info("Cataloged file", "file_path", record.Path, "kind", record.Kind)
		return recordSyncStats{inserted: 1}, RecordChangeSet{Upserts: []FileRecord{record}}, nil

	case scanErr != nil:
		return recordSyncStats{}, RecordChangeSet{}, fmt.Errorf("query record: %w", scanErr)

	case existingHash == record.MetadataHash && existingSize == record.Size && existingMIME == record.MIME:
		return recordSyncStats{}, RecordChangeSet{}, nil
	}

	if _, execErr := tx.ExecContext(ctx, `
UPDATE files
SET name = ?, kind = ?, size = ?, mime_type = ?, metadata = ?, metadata_hash = ?, updated_at = CURRENT_TIMESTAMP
WHERE path = ?
`, record.Name, record.Kind, record.Size, record.MIME, encoded, record.MetadataHash, record.Path); execErr != nil {
		return recordSyncStats{}, RecordChangeSet{}, fmt.Errorf("update record: %w", execErr)
	}
	logger.Info("Updated cataloged file", "file_path", record.Path, "kind", record.Kind)
	return recordSyncStats{updated: 1}, RecordChangeSet{Upserts: []FileRecord{record}}, nil
}

func (w *Whisperer) deleteRecord(ctx context.Context, relPath string) (recordSyncStats, RecordChangeSet, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return recordSyncStats{}, RecordChangeSet{}, fmt.Errorf("begin transaction: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, relPath)
	if err != nil {
		tx.Rollback()
		return recordSyncStats{}, RecordChangeSet{}, fmt.Errorf("delete record %s: %w", relPath, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return recordSyncStats{}, RecordChangeSet{}, fmt.Errorf("rows affected for %s: %w", relPath, err)
	}
	if err := tx.Commit(); err != nil {
		return recordSyncStats{}, RecordChangeSet{}, fmt.Errorf("commit transaction: %w", err)
	}

	if affected == 0 {
		return recordSyncStats{}, RecordChangeSet{}, nil
	}

	w.loggerOrDefault().Info("Removed file from catalog", "file_path", relPath)
	return recordSyncStats{deleted: int(affected)}, RecordChangeSet{Deletions: []string{relPath}}, nil
}
