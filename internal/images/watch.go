package images

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Purger is implemented by *Resolver.
type Purger interface {
	Purge()
}

// Watcher purges a resolver's cache when files appear in, disappear from or
// are renamed within the image directory. Bursts of events are collapsed
// into one purge.
type Watcher struct {
	dir      string
	target   Purger
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      *zap.Logger
}

func NewWatcher(dir string, target Purger, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return &Watcher{
		dir:      dir,
		target:   target,
		watcher:  fw,
		debounce: 200 * time.Millisecond,
		log:      log,
	}, nil
}

// Run blocks until ctx is done, then releases the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	w.log.Info("watching image directory", zap.String("dir", w.dir))

	ticker := time.NewTicker(w.debounce / 4)
	defer ticker.Stop()

	var (
		pending bool
		last    time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.log.Debug("image directory changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			pending = true
			last = time.Now()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("image watcher error", zap.Error(err))
		case <-ticker.C:
			if pending && time.Since(last) >= w.debounce {
				pending = false
				w.target.Purge()
			}
		}
	}
}
