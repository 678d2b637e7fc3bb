package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tgcon/tgcon/internal/event"
	"go.uber.org/zap"
)

// debounce collapses the burst of filesystem events most editors emit
// when saving a file into a single reload.
const debounce = 200 * time.Millisecond

// Watcher reloads the config file when it changes on disk and delivers
// the new config as an event, so the change is applied on the central
// loop like everything else.
type Watcher struct {
	path   string
	queue  *event.Queue
	logger *zap.Logger
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string, queue *event.Queue, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{path: path, queue: queue, logger: logger}
}

// Run watches until the context is cancelled. The parent directory is
// watched rather than the file itself, since editors replace files by
// rename and that would silently drop the watch.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				fire = timer.C
			} else {
				timer.Reset(debounce)
			}
		case <-fire:
			timer = nil
			fire = nil
			w.reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.logger.Info("config file changed", zap.String("path", w.path))
	_ = w.queue.Push(event.New(event.KindConfigChanged, *cfg))
}
