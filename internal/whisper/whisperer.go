package whisper

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"strings"
)

// Options control scanning depth, directory filtering, and sync targets.
type Options struct {
	MaxDepth    int
	IgnoreDirs  []string
	Meilisearch MeilisearchConfig
	Shell       *ShellTargetConfig
}

// Whisperer manages scanning, metadata commits, and catalog reconciliation.
type Whisperer struct {
	db      *sql.DB
	root    string
	opts    Options
	logger  *slog.Logger
	fs      FileSystem
	targets []SyncTarget
}

// NewWhisperer constructs a Whisperer using the provided database connection
// and configuration, and registers any configured sync targets.
func NewWhisperer(db *sql.DB, root string, opts Options, logger *slog.Logger) *Whisperer {
	if logger == nil {
		logger = slog.Default()
	}

	w := &Whisperer{
		db:     db,
		root:   CleanPath(root),
		opts:   opts,
		logger: logger,
		fs:     OSFileSystem{},
	}

	if target := newShellTarget(opts.Shell); target != nil {
		w.RegisterSyncTarget(target)
	}
	w.initMeilisearch()

	return w
}

// SetFileSystem overrides the filesystem implementation used for file access.
func (w *Whisperer) SetFileSystem(fs FileSystem) {
	if fs == nil {
		w.fs = OSFileSystem{}
		return
	}
	w.fs = fs
}

// RegisterSyncTarget adds a consumer for record change notifications.
func (w *Whisperer) RegisterSyncTarget(target SyncTarget) {
	if target == nil {
		return
	}
	w.targets = append(w.targets, target)
}

func (w *Whisperer) dispatchRecordChanges(ctx context.Context, changes RecordChangeSet) error {
	if changes.IsEmpty() {
		return nil
	}
	for _, target := range w.targets {
		if err := target.ApplyRecordChanges(ctx, changes); err != nil {
			return err
		}
	}
	return nil
}

func (w *Whisperer) scanOptions() ScanOptions {
	return ScanOptions{MaxDepth: w.opts.MaxDepth, IgnoreDirs: w.opts.IgnoreDirs}
}

func (w *Whisperer) isIgnored(relPath string) bool {
	if len(w.opts.IgnoreDirs) == 0 {
		return false
	}
	relPath = strings.TrimLeft(filepath.ToSlash(relPath), "/")
	for _, dir := range w.opts.IgnoreDirs {
		d := strings.Trim(strings.TrimSpace(dir), "/")
		if d == "" {
			continue
		}
		if relPath == d || strings.HasPrefix(relPath, d+"/") {
			return true
		}
	}
	return false
}

func (w *Whisperer) absPath(relPath string) string {
	return filepath.Join(w.root, filepath.FromSlash(relPath))
}

func (w *Whisperer) relativePath(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (w *Whisperer) loggerOrDefault() *slog.Logger {
	if w.logger != nil {
		return w.logger
	}
	return slog.Default()
}
