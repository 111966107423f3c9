package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/operavondervollmer/filewhisperer/internal/whisper"
)

func main() {
	var (
		root       string
		dbPath     string
		depth      int
		ignoreDirs string
		configPath string
		printTree  bool
		watchMode  bool
	)

	flag.StringVar(&root, "root", ".", "root directory to scan")
	flag.StringVar(&dbPath, "db", "whisper.db", "path to the SQLite catalog file")
	flag.IntVar(&depth, "depth", 0, "maximum scan depth (0 for unlimited)")
	flag.StringVar(&ignoreDirs, "ignore", "", "comma separated list of directories to skip")
	flag.StringVar(&configPath, "config", "", "optional JSON config file for sync targets")
	flag.BoolVar(&printTree, "print", false, "print every discovered file with its metadata")
	flag.BoolVar(&watchMode, "watch", false, "enable watch mode to process changes continuously")

	var renameSpecs, setSpecs []string
	flag.Func("rename", "rename a file: rel/path=newname (repeatable)", func(v string) error {
		renameSpecs = append(renameSpecs, v)
		return nil
	})
	flag.Func("set", "set a metadata field: rel/path:KEY=value (repeatable)", func(v string) error {
		setSpecs = append(setSpecs, v)
		return nil
	})
	flag.Parse()

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(handler)

	if depth < 0 {
		logger.Error("Depth cannot be negative", "depth", depth)
		os.Exit(1)
	}

	absRoot, err := filepath.Abs(whisper.CleanPath(root))
	if err != nil {
		logger.Error("Failed to resolve root", "root", root, "error", err)
		os.Exit(1)
	}
	root = absRoot

	opts := whisper.Options{
		MaxDepth:   depth,
		IgnoreDirs: parseIgnoreDirs(ignoreDirs),
	}

	if configPath != "" {
		cfg, err := whisper.LoadConfig(configPath)
		if err != nil {
			logger.Error("Failed to load config", "path", configPath, "error", err)
			os.Exit(1)
		}
		opts.Meilisearch = cfg.Meilisearch
		opts.Shell = cfg.Shell
		if len(cfg.IgnoreDirs) > 0 {
			opts.IgnoreDirs = append(opts.IgnoreDirs, cfg.IgnoreDirs...)
		}
	}

	ctx := context.Background()

	db, err := whisper.OpenDatabase(ctx, dbPath)
	if err != nil {
		logger.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("Opened database", "path", dbPath)

	manager := whisper.NewWhisperer(db, root, opts, logger)

	for _, spec := range renameSpecs {
		relPath, newName, err := whisper.ParseRenameSpec(spec)
		if err != nil {
			logger.Error("Invalid rename flag", "error", err)
			os.Exit(1)
		}
		newRel, err := manager.RenameFile(ctx, relPath, newName)
		if err != nil {
			logger.Error("Rename failed", "path", relPath, "error", err)
			os.Exit(1)
		}
		logger.Info("Renamed file", "from", relPath, "to", newRel)
	}

	for _, spec := range setSpecs {
		relPath, key, value, err := whisper.ParseFieldSpec(spec)
		if err != nil {
			logger.Error("Invalid set flag", "error", err)
			os.Exit(1)
		}
		if err := manager.SetFileField(ctx, relPath, key, value); err != nil {
			logger.Error("Metadata update failed", "path", relPath, "error", err)
			os.Exit(1)
		}
		logger.Info("Updated metadata field", "path", relPath, "key", key)
	}

	if printTree {
		tree, err := whisper.Scan(whisper.OSFileSystem{}, root, whisper.ScanOptions{MaxDepth: depth, IgnoreDirs: opts.IgnoreDirs})
		if err != nil {
			logger.Error("Scan failed", "error", err)
			os.Exit(1)
		}
		tree.Describe(os.Stdout)
	}

	logger.Info("Launching synchronization", "root", root)
	if _, err := manager.Synchronize(ctx); err != nil {
		logger.Error("Synchronization failed", "error", err)
		os.Exit(1)
	}

	if watchMode {
		logger.Info("Entering watch mode")
		if err := manager.WatchAndSync(ctx); err != nil {
			logger.Error("Watch mode terminated", "error", err)
			os.Exit(1)
		}
		return
	}

	fmt.Fprintln(os.Stdout, "synchronization complete")
}

func parseIgnoreDirs(raw string) []string {
	parts := strings.Split(raw, ",")
	var result []string
	for _, part := range parts {
		dir := strings.TrimSpace(part)
		if dir == "" {
			continue
		}
		result = append(result, dir)
	}
	return result
}
