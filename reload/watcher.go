package reload

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/wippyai/livid/errors"
)

// DefaultDebounce coalesces the burst of events a single editor save
// produces.
const DefaultDebounce = 50 * time.Millisecond

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	Logger   *zap.Logger
	Debounce time.Duration
}

// Watcher reports saves of one file. It watches the parent directory so
// editors that replace the file on save are still seen.
type Watcher struct {
	fs       *fsnotify.Watcher
	log      *zap.Logger
	name     string
	debounce time.Duration
}

// NewWatcher starts watching path's directory.
func NewWatcher(path string, opts WatcherOptions) (*Watcher, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseWatch, errors.KindIO, err, "create watcher")
	}
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, errors.IO(errors.PhaseWatch, dir, err)
	}
	return &Watcher{
		fs:       fw,
		log:      opts.Logger,
		name:     filepath.Base(path),
		debounce: opts.Debounce,
	}, nil
}

func (w *Watcher) saved(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != w.name {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

// Wait blocks until the watched file is saved, then returns nil once
// events have been quiet for the debounce interval. It returns ctx.Err()
// when ctx is cancelled.
func (w *Watcher) Wait(ctx context.Context) error {
	var (
		timer   *time.Timer
		settled <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fs.Events:
			if !ok {
				return errors.New(errors.PhaseWatch, errors.KindIO).Detail("watcher closed").Build()
			}
			if !w.saved(ev) {
				continue
			}
			w.log.Debug("script event", zap.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				settled = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return errors.New(errors.PhaseWatch, errors.KindIO).Detail("watcher closed").Build()
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-settled:
			return nil
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
