package whisper

import (
	"context"
	"database/sql"
	"testing"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("failed to ensure schema: %v", err)
	}
	return db
}

func assertRecordCount(t *testing.T, ctx context.Context, db *sql.DB, expected int) {
	t.Helper()

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected %d records, got %d", expected, count)
	}
}

func TestSyncRecordInsertUpdateDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	w := &Whisperer{db: db, root: ".", fs: OSFileSystem{}}

	file := NewFile("song.txt", "song.txt")
	file.Size = 42
	file.MIME = "text/plain"

	stats, changes, err := w.syncRecord(ctx, "song.txt", file)
	if err != nil {
		t.Fatalf("initial sync failed: %v", err)
	}
	if stats.inserted != 1 || stats.updated != 0 || stats.deleted != 0 {
		t.Fatalf("unexpected stats after insert: %+v", stats)
	}
	if len(changes.Upserts) != 1 || changes.Upserts[0].Path != "song.txt" {
		t.Fatalf("expected one upsert for song.txt, got %+v", changes)
	}
	assertRecordCount(t, ctx, db, 1)

	// Unchanged file is a no-op.
	stats, changes, err = w.syncRecord(ctx, "song.txt", file)
	if err != nil {
		t.Fatalf("repeat sync failed: %v", err)
	}
	if stats.inserted != 0 || stats.updated != 0 || stats.deleted != 0 {
		t.Fatalf("unexpected stats for unchanged file: %+v", stats)
	}
	if !changes.IsEmpty() {
		t.Fatalf("expected no changes for unchanged file, got %+v", changes)
	}

	file.SetMetadata(Metadata{TagTitle: "New Title"})
	stats, changes, err = w.syncRecord(ctx, "song.txt", file)
	if err != nil {
		t.Fatalf("update sync failed: %v", err)
	}
	if stats.updated != 1 {
		t.Fatalf("expected 1 update, got %+v", stats)
	}
	if len(changes.Upserts) != 1 || changes.Upserts[0].Metadata[TagTitle] != "New Title" {
		t.Fatalf("expected updated metadata in change set, got %+v", changes)
	}
	assertRecordCount(t, ctx, db, 1)

	stats, changes, err = w.deleteRecord(ctx, "song.txt")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if stats.deleted != 1 {
		t.Fatalf("expected 1 delete, got %+v", stats)
	}
	if len(changes.Deletions) != 1 || changes.Deletions[0] != "song.txt" {
		t.Fatalf("expected deletion of song.txt, got %+v", changes)
	}
	assertRecordCount(t, ctx, db, 0)

	// Deleting an absent record reports nothing.
	stats, changes, err = w.deleteRecord(ctx, "song.txt")
	if err != nil {
		t.Fatalf("repeat delete failed: %v", err)
	}
	if stats.deleted != 0 || !changes.IsEmpty() {
		t.Fatalf("expected no-op delete, got %+v / %+v", stats, changes)
	}
}

func TestStoredFilesRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	w := &Whisperer{db: db, root: ".", fs: OSFileSystem{}}

	file := NewFile("cover.txt", "cover.txt")
	file.Size = 7
	file.MIME = "text/plain"
	file.SetMetadata(Metadata{"Artist": "Someone"})

	if _, _, err := w.syncRecord(ctx, "art/cover.txt", file); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	record, found, err := w.StoredFile(ctx, "art/cover.txt")
	if err != nil {
		t.Fatalf("stored file query failed: %v", err)
	}
	if !found {
		t.Fatalf("expected record to be found")
	}
	if record.Name != "cover.txt" || record.Size != 7 || record.MIME != "text/plain" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Metadata["Artist"] != "Someone" {
		t.Fatalf("expected metadata restored, got %v", record.Metadata)
	}

	records, err := w.StoredFiles(ctx)
	if err != nil {
		t.Fatalf("stored files query failed: %v", err)
	}
	if len(records) != 1 || records[0].Path != "art/cover.txt" {
		t.Fatalf("unexpected records: %+v", records)
	}

	if _, found, err := w.StoredFile(ctx, "missing.txt"); err != nil || found {
		t.Fatalf("expected missing record, got found=%v err=%v", found, err)
	}
}

func TestListFilesInDirectory(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	w := &Whisperer{db: db, root: ".", fs: OSFileSystem{}}

	for _, rel := range []string{"music/a.txt", "music/b.txt", "other/c.txt"} {
		f := NewFile(rel, rel)
		if _, _, err := w.syncRecord(ctx, rel, f); err != nil {
			t.Fatalf("sync %s failed: %v", rel, err)
		}
	}

	files, err := w.listFilesInDirectory(ctx, "music")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(files) != 2 || files[0] != "music/a.txt" || files[1] != "music/b.txt" {
		t.Fatalf("unexpected directory listing: %v", files)
	}

	files, err = w.listFilesInDirectory(ctx, ".")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if files != nil {
		t.Fatalf("expected nil listing for root, got %v", files)
	}
}
