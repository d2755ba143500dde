// Package watch reports filesystem changes as a lazy sequence of
// normalized events, over whichever notification mechanism the platform
// offers.
//
//	w := watch.New(platform.Native(), logger)
//	defer w.Close()
//	for ev, err := range w.Watch(ctx, "/srv/data", nil) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(ev.Kind, ev.Paths)
//	}
//
// Linux uses inotify, which is stopped through a cancellation token that
// the reader checks between polls. Other systems use fsnotify, which is
// stopped by closing it. Close does both, and either way the sequence ends
// without an error.
package watch

import (
	"context"
	"iter"
	"log/slog"
	"sync"

	"github.com/cross-org/fs/internal/id"
	"github.com/cross-org/fs/pkg/crossfs"
	domainerrors "github.com/cross-org/fs/pkg/errors"
)

// State is the lifecycle stage of a Watcher.
type State int

const (
	// StateIdle is a Watcher that has not subscribed yet.
	StateIdle State = iota
	// StateWatching is a Watcher with at least one subscription started.
	StateWatching
	// StateClosed is terminal.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWatching:
		return "watching"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Watcher owns native change subscriptions and the cancellation token that
// stops them.
type Watcher struct {
	platform crossfs.Platform
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	sources map[string]source
}

// New creates an idle watcher on p. A nil logger discards output.
func New(p crossfs.Platform, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		platform: p,
		logger:   logger.With("platform", p.Descriptor().Name),
		ctx:      ctx,
		cancel:   cancel,
		sources:  make(map[string]source),
	}
}

// State returns the current lifecycle stage.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Watch returns the changes under path. Every range over the result opens
// its own native subscription and yields one event per notification, in
// delivery order. A nil opts means DefaultOptions.
//
// The sequence ends silently when ctx is done, when the consumer stops, or
// when the Watcher is closed. A subscription that cannot start or fails
// later yields a single error matching errors.ErrUnsupported and ends.
// After Close it yields nothing.
func (w *Watcher) Watch(ctx context.Context, path string, opts *Options) iter.Seq2[Event, error] {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}

	return func(yield func(Event, error) bool) {
		sub, src, err := w.open(path, o)
		if err != nil {
			yield(Event{}, startError(err))
			return
		}
		if src == nil {
			return
		}
		defer w.release(sub.id)

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(w.ctx, cancel)
		defer stop()

		sub.logger.Info("watch started", "recursive", o.Recursive)
		err = src.run(runCtx, func(ev Event) bool {
			return yield(ev, nil)
		})
		if err != nil && runCtx.Err() == nil && w.State() != StateClosed {
			sub.logger.Warn("watch failed", "error", err)
			yield(Event{}, startError(err))
			return
		}
		sub.logger.Info("watch stopped")
	}
}

// open resolves path and starts a native subscription for it. Both results
// are nil when the watcher is already closed.
func (w *Watcher) open(path string, o Options) (*subscription, source, error) {
	if err := o.validate(); err != nil {
		return nil, nil, err
	}
	desc := w.platform.Descriptor()
	if desc.Watch == crossfs.WatchNone {
		return nil, nil, domainerrors.Unsupportedf("platform %q cannot watch for changes", desc.Name)
	}

	abs, err := w.platform.Abs(path)
	if err != nil {
		return nil, nil, err
	}
	st, err := w.platform.Stat(abs)
	if err != nil {
		return nil, nil, err
	}
	sessionID, err := id.New("watch")
	if err != nil {
		return nil, nil, domainerrors.Wrapf(err, domainerrors.CodeInternal, "watch %s", abs)
	}

	logger := w.logger.With("session", sessionID, "path", abs, "mechanism", desc.Watch.String())
	sub := &subscription{
		id:     sessionID,
		root:   abs,
		file:   !st.IsDirectory,
		opts:   o,
		logger: logger,
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateClosed {
		return nil, nil, nil
	}

	var src source
	switch desc.Watch {
	case crossfs.WatchInotify:
		src, err = newInotifySource(sub, logger)
	default:
		src, err = newFsnotifySource(sub, logger)
	}
	if err != nil {
		return nil, nil, err
	}
	w.sources[sub.id] = src
	w.state = StateWatching
	return sub, src, nil
}

func (w *Watcher) release(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.sources, sessionID)
}

// Close stops every subscription and moves the watcher to StateClosed.
// Directly closable subscriptions are closed first, then the cancellation
// token fires. Close is idempotent and always returns nil.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.state == StateClosed {
		w.mu.Unlock()
		return nil
	}
	w.state = StateClosed
	sources := w.sources
	w.sources = make(map[string]source)
	w.mu.Unlock()

	for sessionID, src := range sources {
		if err := src.close(); err != nil {
			w.logger.Debug("ignoring close error", "session", sessionID, "error", err)
		}
	}
	w.cancel()
	return nil
}

// startError reports a subscription failure. Invalid options are returned
// as they are.
func startError(err error) error {
	switch domainerrors.CodeOf(err) {
	case domainerrors.CodeValidation, domainerrors.CodeUnsupported:
		return err
	}
	return domainerrors.Wrap(err, domainerrors.CodeUnsupported, "cannot start filesystem watcher")
}
