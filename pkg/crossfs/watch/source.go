package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
)

// source is one native subscription.
//
// run registers the watched directories and delivers events to emit until
// ctx is done, emit returns false, or the subscription fails. It releases
// the native handle before returning. close terminates a subscription
// directly; sources that only observe ctx implement it as a no-op.
type source interface {
	run(ctx context.Context, emit func(Event) bool) error
	close() error
}

// subscription is what every source needs to know about a Watch call.
type subscription struct {
	id     string
	root   string
	file   bool
	opts   Options
	logger *slog.Logger
}

// register adds the initial set of directories through add. A failure on
// the root is returned; failures below it are logged.
func (s *subscription) register(add func(dir string) error) error {
	if s.file {
		return add(filepath.Dir(s.root))
	}
	if err := add(s.root); err != nil {
		return err
	}
	if s.opts.Recursive {
		s.addTree(s.root, add)
	}
	return nil
}

// expands reports whether newly created directories get their own watch.
func (s *subscription) expands() bool {
	return s.opts.Recursive && !s.file
}

// watchNew adds a directory that appeared after registration, along with
// anything already created inside it.
func (s *subscription) watchNew(dir string, add func(string) error) {
	if s.opts.shouldIgnore(s.root, dir) {
		return
	}
	if err := add(dir); err != nil {
		s.logger.Warn("failed to watch new directory", "dir", dir, "error", err)
		return
	}
	s.addTree(dir, add)
}

// addTree adds every directory strictly below dir.
func (s *subscription) addTree(dir string, add func(string) error) {
	var mu sync.Mutex
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if path == dir || !d.IsDir() {
			return nil
		}
		if s.opts.shouldIgnore(s.root, path) {
			return fs.SkipDir
		}

		mu.Lock()
		defer mu.Unlock()
		if err := add(path); err != nil {
			s.logger.Warn("failed to add watch", "dir", path, "error", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to walk directory", "dir", dir, "error", err)
	}
}

// deliver passes ev to emit unless it is filtered out. It returns false
// once the consumer has stopped.
func (s *subscription) deliver(ev Event, emit func(Event) bool) bool {
	if p := ev.Path(); p != "" {
		if s.file && p != s.root {
			return true
		}
		if s.opts.shouldIgnore(s.root, p) {
			return true
		}
	}
	return emit(ev)
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}
