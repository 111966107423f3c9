package whisper

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounceInterval = 150 * time.Millisecond

// WatchAndSync monitors the root directory for changes and incrementally
// updates the catalog when filesystem events settle.
func (w *Whisperer) WatchAndSync(ctx context.Context) error {
	logger := w.loggerOrDefault()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]struct{})
	if err := w.addRecursiveWatch(watcher, w.root, watched); err != nil {
		return err
	}

	logger.Info("Watch mode active", "root", w.root, "debounce", watchDebounceInterval.String())

	var debounceTimer *time.Timer
	changedFiles := make(map[string]struct{})
	removedDirs := make(map[string]struct{})

	for {
		var debounceC <-chan time.Time
		if debounceTimer != nil {
			debounceC = debounceTimer.C
		}

		select {
		case <-ctx.Done():
			logger.Info("Stopping watch mode", "reason", ctx.Err())
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleWatcherEvent(event, watcher, watched, &debounceTimer, changedFiles, removedDirs)
		case err, ok := <-watcher.Errors:
			if !ok || err == nil {
				continue
			}
			logger.Error("Watcher error", "error", err)
		case <-debounceC:
			stopTimer(&debounceTimer)
			if len(changedFiles) == 0 && len(removedDirs) == 0 {
				continue
			}
			if syncErr := w.applyIncrementalChanges(ctx, changedFiles, removedDirs); syncErr != nil {
				logger.Error("Incremental synchronization failed", "error", syncErr)
				if errors.Is(syncErr, context.Canceled) {
					return syncErr
				}
				continue
			}
			changedFiles = make(map[string]struct{})
			removedDirs = make(map[string]struct{})
		}
	}
}

func (w *Whisperer) handleWatcherEvent(event fsnotify.Event, watcher *fsnotify.Watcher, watched map[string]struct{}, debounceTimer **time.Timer, changed map[string]struct{}, removedDirs map[string]struct{}) {
	logger := w.loggerOrDefault()

	path := filepath.Clean(event.Name)
	rel := w.relativePath(path)

	dirChanged := false

	if event.Op&fsnotify.Create != 0 {
		info, err := w.fs.Stat(path)
		if err == nil && info.IsDir() {
			if w.isIgnored(rel) {
				return
			}
			if err := w.addRecursiveWatch(watcher, path, watched); err != nil {
				logger.Error("Failed to watch new directory", "path", rel, "error", err)
			}
			delete(removedDirs, rel)
			dirChanged = true
		}
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if _, ok := watched[path]; ok {
			if err := watcher.Remove(path); err != nil {
				logger.Error("Failed to stop watching directory", "path", rel, "error", err)
			}
			delete(watched, path)
			logger.Info("Stopped watching directory", "path", rel)
			if rel != "." {
				removedDirs[rel] = struct{}{}
			}
			dirChanged = true
		}
	}

	if dirChanged {
		scheduleSync(debounceTimer)
		return
	}

	if !shouldTriggerSync(event.Op) {
		return
	}

	if w.isIgnored(rel) {
		return
	}

	changed[rel] = struct{}{}

	scheduleSync(debounceTimer)
}

func (w *Whisperer) addRecursiveWatch(watcher *fsnotify.Watcher, start string, watched map[string]struct{}) error {
	logger := w.loggerOrDefault()

	return w.fs.WalkDir(start, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		clean := filepath.Clean(path)
		rel := w.relativePath(clean)
		if w.isIgnored(rel) {
			return fs.SkipDir
		}
		if _, ok := watched[clean]; ok {
			return nil
		}
		if err := watcher.Add(clean); err != nil {
			return fmt.Errorf("watch directory %s: %w", clean, err)
		}
		watched[clean] = struct{}{}
		logger.Info("Watching directory", "path", rel)
		return nil
	})
}

func (w *Whisperer) applyIncrementalChanges(ctx context.Context, changed, removedDirs map[string]struct{}) error {
	if len(changed) == 0 && len(removedDirs) == 0 {
		return nil
	}

	logger := w.loggerOrDefault()

	changedList := make([]string, 0, len(changed))
	for rel := range changed {
		changedList = append(changedList, rel)
	}
	sort.Strings(changedList)

	removedDirList := make([]string, 0, len(removedDirs))
	for rel := range removedDirs {
		if rel == "." || rel == "" {
			continue
		}
		removedDirList = append(removedDirList, rel)
	}
	sort.Strings(removedDirList)

	totals := recordSyncStats{}
	var changes RecordChangeSet

	for _, rel := range changedList {
		stats, delta, syncErr := w.SyncPath(ctx, rel)
		if syncErr != nil {
			return syncErr
		}
		totals.add(stats)
		changes.Merge(delta)
	}

	for _, rel := range removedDirList {
		files, listErr := w.listFilesInDirectory(ctx, rel)
		if listErr != nil {
			return listErr
		}
		dirDeleted := 0
		for _, file := range files {
			stats, delta, syncErr := w.SyncPath(ctx, file)
			if syncErr != nil {
				return syncErr
			}
			dirDeleted += stats.deleted
			totals.add(stats)
			changes.Merge(delta)
		}
		logger.Debug("Removed directory from catalog", "directory", rel, "files", len(files), "records", dirDeleted)
	}

	logger.Debug("Incremental synchronization summary", "updated_files", len(changedList), "removed_dirs", len(removedDirList), "records_inserted", totals.inserted, "records_updated", totals.updated, "records_deleted", totals.deleted)

	return w.dispatchRecordChanges(ctx, changes)
}

func shouldTriggerSync(op fsnotify.Op) bool {
	return op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

func scheduleSync(timer **time.Timer) {
	if *timer == nil {
		*timer = time.NewTimer(watchDebounceInterval)
		return
	}
	if !(*timer).Stop() {
		select {
		case <-(*timer).C:
		default:
		}
	}
	(*timer).Reset(watchDebounceInterval)
}

func stopTimer(timer **time.Timer) {
	if *timer == nil {
		return
	}
	if !(*timer).Stop() {
		select {
		case <-(*timer).C:
		default:
		}
	}
	*timer = nil
}
