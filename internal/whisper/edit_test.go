package whisper

import (
	"context"
	"errors"
	"testing"
)

func TestParseRenameSpec(t *testing.T) {
	relPath, newName, err := ParseRenameSpec("music/old.mp3=track01")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if relPath != "music/old.mp3" || newName != "track01" {
		t.Fatalf("unexpected parse result: %q / %q", relPath, newName)
	}

	for _, spec := range []string{"", "no-separator", "=name", "path=", "a.txt=b/c"} {
		if _, _, err := ParseRenameSpec(spec); err == nil {
			t.Fatalf("expected error for %q", spec)
		}
	}
}

func TestParseFieldSpec(t *testing.T) {
	relPath, key, value, err := ParseFieldSpec("music/song.mp3:ARTIST=Someone")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if relPath != "music/song.mp3" || key != "ARTIST" || value != "Someone" {
		t.Fatalf("unexpected parse result: %q / %q / %q", relPath, key, value)
	}

	// Values keep embedded '=' characters.
	_, _, value, err = ParseFieldSpec("a.txt:NOTE=k=v")
	if err != nil || value != "k=v" {
		t.Fatalf("expected value %q, got %q (%v)", "k=v", value, err)
	}

	for _, spec := range []string{"", "a.txt=value", ":KEY=value", "a.txt:=value", "a.txt:KEY"} {
		if _, _, _, err := ParseFieldSpec(spec); err == nil {
			t.Fatalf("expected error for %q", spec)
		}
	}
}

func TestRenameFileCommitsAndRecatalogs(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	fsys := newMapFileSystem(map[string]string{"docs/old.txt": "content"})

	w := &Whisperer{db: db, root: ".", fs: OSFileSystem{}}
	w.SetFileSystem(fsys)
	target := &recordingTarget{}
	w.RegisterSyncTarget(target)

	if _, err := w.Synchronize(ctx); err != nil {
		t.Fatalf("initial sync failed: %v", err)
	}
	target.reset()

	newRel, err := w.RenameFile(ctx, "docs/old.txt", "new")
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if newRel != "docs/new.txt" {
		t.Fatalf("unexpected new path %q", newRel)
	}

	if _, err := fsys.Stat("docs/new.txt"); err != nil {
		t.Fatalf("expected renamed file on disk: %v", err)
	}
	if _, err := fsys.Stat("docs/old.txt"); err == nil {
		t.Fatalf("expected old file to be gone")
	}

	if _, found, err := w.StoredFile(ctx, "docs/new.txt"); err != nil || !found {
		t.Fatalf("expected docs/new.txt in catalog, found=%v err=%v", found, err)
	}
	if _, found, err := w.StoredFile(ctx, "docs/old.txt"); err != nil || found {
		t.Fatalf("expected docs/old.txt to be gone from catalog, found=%v err=%v", found, err)
	}

	if len(target.calls) != 1 {
		t.Fatalf("expected 1 change set, got %d", len(target.calls))
	}
	call := target.calls[0]
	if len(call.Deletions) != 1 || call.Deletions[0] != "docs/old.txt" {
		t.Fatalf("expected deletion of docs/old.txt, got %+v", call)
	}
	if len(call.Upserts) != 1 || call.Upserts[0].Path != "docs/new.txt" {
		t.Fatalf("expected upsert for docs/new.txt, got %+v", call)
	}
}

func TestRenameFileRefusesCollision(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	fsys := newMapFileSystem(map[string]string{
		"a.txt": "alpha",
		"b.txt": "beta",
	})

	w := &Whisperer{db: db, root: ".", fs: OSFileSystem{}}
	w.SetFileSystem(fsys)

	if _, err := w.Synchronize(ctx); err != nil {
		t.Fatalf("initial sync failed: %v", err)
	}

	if _, err := w.RenameFile(ctx, "a.txt", "b"); !errors.Is(err, ErrTargetExists) {
		t.Fatalf("expected ErrTargetExists, got %v", err)
	}

	if _, err := fsys.Stat("a.txt"); err != nil {
		t.Fatalf("original file must remain untouched: %v", err)
	}
	if _, found, err := w.StoredFile(ctx, "a.txt"); err != nil || !found {
		t.Fatalf("expected a.txt to stay cataloged, found=%v err=%v", found, err)
	}
}

func TestSetFileFieldUpdatesCatalog(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	fsys := newMapFileSystem(map[string]string{"notes.txt": "content"})

	w := &Whisperer{db: db, root: ".", fs: OSFileSystem{}}
	w.SetFileSystem(fsys)
	target := &recordingTarget{}
	w.RegisterSyncTarget(target)

	if _, err := w.Synchronize(ctx); err != nil {
		t.Fatalf("initial sync failed: %v", err)
	}
	target.reset()

	if err := w.SetFileField(ctx, "notes.txt", "SOMETHING", "value"); err != nil {
		t.Fatalf("set field failed: %v", err)
	}

	record, found, err := w.StoredFile(ctx, "notes.txt")
	if err != nil || !found {
		t.Fatalf("expected notes.txt in catalog, found=%v err=%v", found, err)
	}
	if record.Metadata["SOMETHING"] != "value" {
		t.Fatalf("expected field in catalog record, got %v", record.Metadata)
	}

	if len(target.calls) != 1 || len(target.calls[0].Upserts) != 1 {
		t.Fatalf("expected 1 upsert change set, got %+v", target.calls)
	}
}
