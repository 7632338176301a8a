package trigger

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	pkgLog "repo-sync-automation/pkg/log"
)

const DefaultDebounce = 2 * time.Second

// Watcher turns bursts of file-system changes under a set of paths into a
// single sync request.
type Watcher struct {
	paths    []string
	debounce time.Duration
	syncer   Syncer
	fsw      *fsnotify.Watcher
	l        pkgLog.Logger
}

// NewWatcher watches every directory below paths, skipping .git.
func NewWatcher(paths []string, debounce time.Duration, syncer Syncer, l pkgLog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}

	w := &Watcher{
		paths:    paths,
		debounce: debounce,
		syncer:   syncer,
		fsw:      fsw,
		l:        l,
	}
	for _, p := range paths {
		if err := w.addRecursive(p); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Run delivers debounced sync requests until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if isGitPath(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(ev.Name); err != nil {
						w.l.Warnf(ctx, "watcher: %v", err)
					}
				}
			}
			w.l.Debugf(ctx, "watcher: %s %s", ev.Op, ev.Name)

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			w.syncer.TriggerAsync("fs")

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.l.Warnf(ctx, "watcher: %v", err)
		}
	}
}

func isGitPath(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".git" {
			return true
		}
	}
	return false
}
