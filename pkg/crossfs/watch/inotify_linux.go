//go:build linux

package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// watchMask selects the notifications every watched directory reports.
const watchMask = unix.IN_ATTRIB | unix.IN_CREATE | unix.IN_DELETE | unix.IN_CLOSE_WRITE |
	unix.IN_MODIFY | unix.IN_MOVED_FROM | unix.IN_MOVED_TO | unix.IN_DELETE_SELF | unix.IN_MOVE_SELF

// pollTimeout bounds how long the reader waits before checking its
// cancellation token again, in milliseconds.
const pollTimeout = 100

const readBufferSize = 64 * 1024

// inotifySource reads a non-blocking inotify descriptor. It has no direct
// close: it stops when its context is cancelled.
type inotifySource struct {
	sub     *subscription
	logger  *slog.Logger
	fd      int
	mu      sync.Mutex
	watches map[string]int
	wdPaths map[int]string
}

func newInotifySource(sub *subscription, logger *slog.Logger) (source, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize inotify: %w", err)
	}
	return &inotifySource{
		sub:     sub,
		logger:  logger,
		fd:      fd,
		watches: make(map[string]int),
		wdPaths: make(map[int]string),
	}, nil
}

func (s *inotifySource) close() error {
	return nil
}

func (s *inotifySource) run(ctx context.Context, emit func(Event) bool) error {
	defer unix.Close(s.fd)

	if err := s.sub.register(s.addWatch); err != nil {
		return err
	}
	s.logger.Debug("inotify watches registered", "count", s.count())

	buf := make([]byte, readBufferSize)
	//nolint:gosec // G115: descriptors fit in int32
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	for ctx.Err() == nil {
		n, err := unix.Poll(fds, pollTimeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("failed to poll inotify: %w", err)
		}
		if n == 0 {
			continue
		}

		n, err = unix.Read(s.fd, buf)
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return fmt.Errorf("failed to read inotify events: %w", err)
		}
		if !s.parseEvents(buf[:n], emit) {
			return nil
		}
	}
	return nil
}

func (s *inotifySource) addWatch(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.watches[dir]; ok {
		return nil
	}
	wd, err := unix.InotifyAddWatch(s.fd, dir, watchMask)
	if err != nil {
		return fmt.Errorf("inotify_add_watch %s: %w", dir, err)
	}
	s.watches[dir] = wd
	s.wdPaths[wd] = dir
	return nil
}

// forget drops a descriptor the kernel has already removed.
func (s *inotifySource) forget(wd int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir, ok := s.wdPaths[wd]; ok {
		delete(s.watches, dir)
		delete(s.wdPaths, wd)
	}
}

// unwatchTree removes the watches on dir and every directory below it.
// Their descriptors still name the old location, so events from a tree
// moved out of the root would otherwise be reported under paths that no
// longer exist.
func (s *inotifySource) unwatchTree(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for path, wd := range s.watches {
		if !within(dir, path) {
			continue
		}
		//nolint:gosec // G115: wd is always a small non-negative int from inotify
		if _, err := unix.InotifyRmWatch(s.fd, uint32(wd)); err != nil {
			s.logger.Debug("inotify_rm_watch failed", "dir", path, "error", err)
		}
		delete(s.watches, path)
		delete(s.wdPaths, wd)
	}
}

func (s *inotifySource) dir(wd int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir, ok := s.wdPaths[wd]
	return dir, ok
}

func (s *inotifySource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watches)
}

// parseEvents decodes a buffer of raw inotify records. It returns false
// once the consumer has stopped.
func (s *inotifySource) parseEvents(buf []byte, emit func(Event) bool) bool {
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buf) {
		//nolint:gosec // G103: decoding the inotify wire format
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
		nameStart := offset + unix.SizeofInotifyEvent
		offset = nameStart + int(raw.Len)

		if raw.Mask&unix.IN_Q_OVERFLOW != 0 {
			s.logger.Warn("inotify queue overflow, events lost")
			if !emit(Event{Kind: KindError}) {
				return false
			}
			continue
		}
		if raw.Mask&unix.IN_IGNORED != 0 {
			s.forget(int(raw.Wd))
			continue
		}

		dir, ok := s.dir(int(raw.Wd))
		if !ok {
			continue
		}
		path := dir
		if raw.Len > 0 && offset <= len(buf) {
			name := buf[nameStart:offset]
			path = filepath.Join(dir, string(name[:clen(name)]))
		}

		if raw.Mask&unix.IN_ISDIR != 0 {
			switch {
			case raw.Mask&unix.IN_MOVED_FROM != 0:
				// A move within the root re-adds the tree on IN_MOVED_TO.
				s.unwatchTree(path)
			case raw.Mask&(unix.IN_CREATE|unix.IN_MOVED_TO) != 0 && s.sub.expands():
				s.sub.watchNew(path, s.addWatch)
			}
		}

		kind, ok := inotifyKind(raw.Mask)
		if !ok {
			continue
		}
		if !s.sub.deliver(Event{Kind: kind, Paths: []string{path}}, emit) {
			return false
		}
	}
	return true
}

// inotifyKind maps an inotify mask to an event kind. The second result is
// false for bookkeeping notifications that are not delivered.
func inotifyKind(mask uint32) (EventKind, bool) {
	switch {
	case mask&unix.IN_Q_OVERFLOW != 0:
		return KindError, true
	case mask&unix.IN_IGNORED != 0:
		return "", false
	case mask&(unix.IN_CREATE|unix.IN_MOVED_FROM|unix.IN_MOVED_TO|unix.IN_MOVE_SELF) != 0:
		return KindRename, true
	case mask&(unix.IN_DELETE|unix.IN_DELETE_SELF) != 0:
		return KindRemove, true
	case mask&(unix.IN_MODIFY|unix.IN_ATTRIB) != 0:
		return KindModify, true
	case mask&(unix.IN_CLOSE_WRITE|unix.IN_CLOSE_NOWRITE|unix.IN_ACCESS|unix.IN_OPEN) != 0:
		return KindAccess, true
	default:
		return KindOther, true
	}
}

// clen returns the length of a NUL-terminated byte slice.
func clen(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return len(b)
}
