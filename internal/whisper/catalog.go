package whisper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"
)

// OpenDatabase opens or creates a SQLite catalog at the provided path and
// ensures the schema is available.
func OpenDatabase(ctx context.Context, path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema creates the required tables if they do not already exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS files (
    path TEXT NOT NULL PRIMARY KEY,
    name TEXT NOT NULL,
    kind TEXT NOT NULL,
    size INTEGER NOT NULL,
    mime_type TEXT NOT NULL DEFAULT '',
    metadata TEXT NOT NULL DEFAULT '{}',
    metadata_hash TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_files_kind ON files(kind);
`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// FileRecord is the catalog representation of a scanned file.
type FileRecord struct {
	Path         string   `json:"path"`
	Name         string   `json:"name"`
	Kind         Kind     `json:"kind"`
	Size         int64    `json:"size"`
	MIME         string   `json:"mime_type"`
	Metadata     Metadata `json:"metadata"`
	MetadataHash string   `json:"metadata_hash"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
}

// newFileRecord converts an in-memory file record into its catalog form keyed
// by the relative path.
func newFileRecord(relPath string, f *File) (FileRecord, error) {
	md := f.Metadata()
	_, hash, err := encodeMetadata(md)
	if err != nil {
		return FileRecord{}, err
	}
	return FileRecord{
		Path:         filepath.ToSlash(relPath),
		Name:         f.Name,
		Kind:         f.Kind,
		Size:         f.Size,
		MIME:         f.MIME,
		Metadata:     md,
		MetadataHash: hash,
	}, nil
}

// StoredFile returns the catalog record for the provided relative path.
func (w *Whisperer) StoredFile(ctx context.Context, relPath string) (FileRecord, bool, error) {
	row := w.db.QueryRowContext(ctx, `
SELECT path, name, kind, size, mime_type, metadata, metadata_hash, updated_at
FROM files
WHERE path = ?
`, relPath)

	record, err := scanFileRecord(row)
	if err == sql.ErrNoRows {
		return FileRecord{}, false, nil
	}
	if err != nil {
		return FileRecord{}, false, fmt.Errorf("query stored file: %w", err)
	}
	return record, true, nil
}

// StoredFiles returns every catalog record ordered by path.
func (w *Whisperer) StoredFiles(ctx context.Context) ([]FileRecord, error) {
	rows, err := w.db.QueryContext(ctx, `
SELECT path, name, kind, size, mime_type, metadata, metadata_hash, updated_at
FROM files
ORDER BY path
`)
	if err != nil {
		return nil, fmt.Errorf("query stored files: %w", err)
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		record, err := scanFileRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stored file: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stored files: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFileRecord(row rowScanner) (FileRecord, error) {
	var record FileRecord
	var encoded string
	if err := row.Scan(&record.Path, &record.Name, &record.Kind, &record.Size, &record.MIME, &encoded, &record.MetadataHash, &record.UpdatedAt); err != nil {
		return FileRecord{}, err
	}
	md, err := decodeMetadata(encoded)
	if err != nil {
		return FileRecord{}, err
	}
	record.Metadata = md
	return record, nil
}

func (w *Whisperer) loadExistingFiles(ctx context.Context) (map[string]struct{}, error) {
	rows, err := w.db.QueryContext(ctx, `SELECT path FROM files`)
	if err != nil {
		return nil, fmt.Errorf("load existing files: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan existing file: %w", err)
		}
		existing[path] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing files: %w", err)
	}

	return existing, nil
}

func (w *Whisperer) listFilesInDirectory(ctx context.Context, relDir string) ([]string, error) {
	if relDir == "" || relDir == "." {
		return nil, nil
	}

	pattern := relDir + "/%"

	rows, err := w.db.QueryContext(ctx, `SELECT path FROM files WHERE path LIKE ?`, pattern)
	if err != nil {
		return nil, fmt.Errorf("list directory %s: %w", relDir, err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan directory file: %w", err)
		}
		files = append(files, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate directory files: %w", err)
	}

	sort.Strings(files)
	return files, nil
}
