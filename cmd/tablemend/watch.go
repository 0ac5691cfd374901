package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/santedata/tablemend/pkg/config"
)

// watchLoop processes the input once, then reprocesses it every time
// the file is rewritten. Runs are sequential; a failed run is logged
// and the watch keeps going.
func watchLoop(ctx context.Context, cfg *config.Config, logger *zap.Logger, chunkSize int, profileOnly bool) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(cfg.Input.Path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	run := func() {
		var err error
		if chunkSize > 0 {
			err = runStream(ctx, cfg, logger, chunkSize)
		} else {
			err = runBatch(ctx, cfg, logger, profileOnly)
		}
		if err != nil {
			logger.Error("Run failed", zap.Error(err))
		}
	}
	run()
	logger.Info("Watching for changes", zap.String("path", target))

	var lastMod time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}
			if !info.ModTime().After(lastMod) {
				continue
			}
			lastMod = info.ModTime()
			logger.Info("Input changed, reprocessing", zap.String("path", target))
			run()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
