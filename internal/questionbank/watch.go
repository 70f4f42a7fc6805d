package questionbank

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce coalesces bursts of filesystem events (editors write pack
// files several times per save) into one reload.
const reloadDebounce = 500 * time.Millisecond

// Watch reloads the bank whenever the pack directory changes.
//
// Watching runs in a background goroutine until ctx is canceled or Close is
// called. A reload that fails keeps the previous snapshot in service.
func (b *Bank) Watch(ctx context.Context) error {
	var err error
	b.watchOnce.Do(func() {
		var watcher *fsnotify.Watcher
		watcher, err = fsnotify.NewWatcher()
		if err != nil {
			err = fmt.Errorf("creating watcher: %w", err)
			return
		}
		if addErr := watcher.Add(b.dir); addErr != nil {
			_ = watcher.Close()
			err = fmt.Errorf("watching %s: %w", b.dir, addErr)
			return
		}

		go b.processEvents(ctx, watcher)
		b.logger.Info("watching question packs", zap.String("dir", b.dir))
	})
	return err
}

func (b *Bank) processEvents(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	// The timer starts drained; filesystem events arm it.
	timer := time.NewTimer(reloadDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stop:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(reloadDebounce)

		case <-timer.C:
			if err := b.Reload(); err != nil {
				b.logger.Error("question pack reload failed, keeping previous snapshot",
					zap.Error(err),
				)
			}

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return
			}
			b.logger.Error("question pack watcher error", zap.Error(watchErr))
		}
	}
}
