package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 100 * time.Millisecond

// Holder hands out the current catalog. Sessions take a snapshot at start
// and keep it for their lifetime; a reload only affects later sessions.
type Holder struct {
	cur atomic.Pointer[Catalog]
}

func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	h.cur.Store(c)
	return h
}

func (h *Holder) Current() *Catalog { return h.cur.Load() }

func (h *Holder) Swap(c *Catalog) { h.cur.Store(c) }

// Watch reloads path into h whenever the file is written or replaced, until
// ctx is done. Invalid edits are logged and the previous catalog is kept.
func (h *Holder) Watch(ctx context.Context, path string, log *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Editors replace files by rename, so watch the directory.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, func() {
					c, err := Load(path)
					if err != nil {
						log.Warn("catalog reload failed; keeping previous", zap.String("path", path), zap.Error(err))
						return
					}
					h.Swap(c)
					log.Info("catalog reloaded",
						zap.String("path", path),
						zap.Int("modules", len(c.Modules)),
						zap.Int("topics", len(c.Topics)),
						zap.Int("backgrounds", len(c.Backgrounds)))
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("catalog watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
