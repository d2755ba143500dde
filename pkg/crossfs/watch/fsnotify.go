package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// fsnotifySource wraps an fsnotify.Watcher. Closing the watcher ends run.
type fsnotifySource struct {
	sub     *subscription
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	once     sync.Once
	closeErr error
}

func newFsnotifySource(sub *subscription, logger *slog.Logger) (source, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &fsnotifySource{sub: sub, logger: logger, watcher: w}, nil
}

func (s *fsnotifySource) close() error {
	s.once.Do(func() {
		s.closeErr = s.watcher.Close()
	})
	return s.closeErr
}

func (s *fsnotifySource) run(ctx context.Context, emit func(Event) bool) error {
	defer s.close()

	if err := s.sub.register(s.watcher.Add); err != nil {
		return err
	}
	s.logger.Debug("fsnotify watches registered", "count", len(s.watcher.WatchList()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Rename) && ev.Name != s.sub.root {
				s.unwatchTree(ev.Name)
			}
			if ev.Has(fsnotify.Create) && s.sub.expands() {
				if fi, err := os.Lstat(ev.Name); err == nil && fi.IsDir() {
					s.sub.watchNew(ev.Name, s.watcher.Add)
				}
			}
			if !s.sub.deliver(Event{Kind: fsnotifyKind(ev.Op), Paths: []string{ev.Name}}, emit) {
				return nil
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				s.logger.Warn("fsnotify queue overflow, events lost")
				if !emit(Event{Kind: KindError}) {
					return nil
				}
				continue
			}
			return err
		}
	}
}

// unwatchTree drops the watches on dir and every directory below it. A
// move within the root is re-added by the matching Create.
func (s *fsnotifySource) unwatchTree(dir string) {
	for _, path := range s.watcher.WatchList() {
		if !within(dir, path) {
			continue
		}
		if err := s.watcher.Remove(path); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			s.logger.Debug("failed to remove watch", "dir", path, "error", err)
		}
	}
}

// fsnotifyKind maps an fsnotify operation to an event kind.
func fsnotifyKind(op fsnotify.Op) EventKind {
	switch {
	case op.Has(fsnotify.Remove):
		return KindRemove
	case op.Has(fsnotify.Create), op.Has(fsnotify.Rename):
		return KindRename
	case op.Has(fsnotify.Write), op.Has(fsnotify.Chmod):
		return KindModify
	default:
		return KindOther
	}
}
