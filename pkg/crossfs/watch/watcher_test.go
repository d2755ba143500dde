package watch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cross-org/fs/pkg/crossfs"
	"github.com/cross-org/fs/pkg/crossfs/platform"
	domainerrors "github.com/cross-org/fs/pkg/errors"
)

// settle gives a freshly started subscription time to register.
const settle = 200 * time.Millisecond

type result struct {
	ev  Event
	err error
}

// collect ranges over seq in the background. The returned channel is
// closed when the sequence ends.
func collect(seq func(func(Event, error) bool)) <-chan result {
	out := make(chan result, 256)
	go func() {
		defer close(out)
		seq(func(ev Event, err error) bool {
			out <- result{ev, err}
			return true
		})
	}()
	return out
}

// waitFor reads from results until pred accepts an event.
func waitFor(t *testing.T, results <-chan result, pred func(Event) bool) Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case r, ok := <-results:
			require.True(t, ok, "sequence ended before the expected event")
			require.NoError(t, r.err)
			if pred(r.ev) {
				return r.ev
			}
		case <-timeout:
			t.Fatal("timeout waiting for event")
		}
	}
}

// waitEnd drains results until the sequence ends and returns any errors.
func waitEnd(t *testing.T, results <-chan result) []error {
	t.Helper()
	var errs []error
	timeout := time.After(5 * time.Second)
	for {
		select {
		case r, ok := <-results:
			if !ok {
				return errs
			}
			if r.err != nil {
				errs = append(errs, r.err)
			}
		case <-timeout:
			t.Fatal("timeout waiting for the sequence to end")
		}
	}
}

// until reads from results until pred accepts an event and returns every
// event seen, the accepted one last.
func until(t *testing.T, results <-chan result, pred func(Event) bool) []Event {
	t.Helper()
	var seen []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case r, ok := <-results:
			require.True(t, ok, "sequence ended before the expected event")
			require.NoError(t, r.err)
			seen = append(seen, r.ev)
			if pred(r.ev) {
				return seen
			}
		case <-timeout:
			t.Fatal("timeout waiting for event")
		}
	}
}

func countEvents(events []Event, pred func(Event) bool) int {
	n := 0
	for _, ev := range events {
		if pred(ev) {
			n++
		}
	}
	return n
}

func hasPath(kind EventKind, path string) func(Event) bool {
	return func(ev Event) bool {
		if ev.Kind != kind {
			return false
		}
		for _, p := range ev.Paths {
			if p == path {
				return true
			}
		}
		return false
	}
}

// watchPlatforms returns every OS-backed platform, each exercising its own
// notification mechanism.
func watchPlatforms() []crossfs.Platform {
	ps := []crossfs.Platform{platform.NewPortable()}
	if native := platform.Native(); native.Descriptor().Name != platform.NamePortable {
		ps = append(ps, native)
	}
	return ps
}

func TestWatcher_CloseIdleTwice(t *testing.T) {
	w := New(platform.NewPortable(), nil)
	assert.Equal(t, StateIdle, w.State())

	assert.NotPanics(t, func() {
		assert.NoError(t, w.Close())
		assert.NoError(t, w.Close())
	})
	assert.Equal(t, StateClosed, w.State())
}

func TestWatcher_WatchAfterCloseYieldsNothing(t *testing.T) {
	w := New(platform.NewPortable(), nil)
	require.NoError(t, w.Close())

	n := 0
	for range w.Watch(context.Background(), t.TempDir(), nil) {
		n++
	}
	assert.Zero(t, n)
}

func TestWatcher_MemoryPlatformUnsupported(t *testing.T) {
	m := platform.NewMemory()
	require.NoError(t, m.MkdirAll("/data", 0o755))
	w := New(m, nil)
	defer w.Close()

	var errs []error
	for _, err := range w.Watch(context.Background(), "/data", nil) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.True(t, domainerrors.IsUnsupported(errs[0]))
	assert.Equal(t, StateIdle, w.State())
}

func TestWatcher_MissingPath(t *testing.T) {
	w := New(platform.NewPortable(), nil)
	defer w.Close()

	var errs []error
	for _, err := range w.Watch(context.Background(), filepath.Join(t.TempDir(), "missing"), nil) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.True(t, domainerrors.IsUnsupported(errs[0]))
	assert.True(t, domainerrors.IsNotFound(errs[0]))
	assert.Contains(t, errs[0].Error(), "cannot start filesystem watcher")
}

func TestWatcher_InvalidIgnorePattern(t *testing.T) {
	w := New(platform.NewPortable(), nil)
	defer w.Close()

	for _, err := range w.Watch(context.Background(), t.TempDir(), &Options{Ignore: []string{"[x"}}) {
		require.Error(t, err)
		assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
	}
}

func TestWatcher_ReportsCreatedFile(t *testing.T) {
	for _, p := range watchPlatforms() {
		t.Run(p.Descriptor().Name, func(t *testing.T) {
			dir := t.TempDir()
			w := New(p, nil)
			results := collect(w.Watch(context.Background(), dir, nil))
			time.Sleep(settle)
			assert.Equal(t, StateWatching, w.State())

			file := filepath.Join(dir, "new.txt")
			require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
			waitFor(t, results, hasPath(KindRename, file))

			// Events arrive in order, so everything about new.txt precedes
			// the marker's creation.
			marker := filepath.Join(dir, "marker.txt")
			require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))
			seen := until(t, results, hasPath(KindRename, marker))
			assert.Equal(t, 0, countEvents(seen, hasPath(KindRename, file)), "new.txt reported as created more than once")

			require.NoError(t, w.Close())
			assert.Empty(t, waitEnd(t, results))
			assert.Equal(t, StateClosed, w.State())
		})
	}
}

func TestWatcher_ReportsModifyAndRemove(t *testing.T) {
	for _, p := range watchPlatforms() {
		t.Run(p.Descriptor().Name, func(t *testing.T) {
			dir := t.TempDir()
			file := filepath.Join(dir, "a.txt")
			require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

			w := New(p, nil)
			defer w.Close()
			results := collect(w.Watch(context.Background(), dir, nil))
			time.Sleep(settle)

			f, err := os.OpenFile(file, os.O_WRONLY|os.O_APPEND, 0)
			require.NoError(t, err)
			_, err = f.WriteString("more")
			require.NoError(t, err)
			require.NoError(t, f.Close())
			waitFor(t, results, hasPath(KindModify, file))

			require.NoError(t, os.Remove(file))
			waitFor(t, results, hasPath(KindRemove, file))
		})
	}
}

func TestWatcher_RecursiveFollowsNewDirectories(t *testing.T) {
	for _, p := range watchPlatforms() {
		t.Run(p.Descriptor().Name, func(t *testing.T) {
			dir := t.TempDir()
			existing := filepath.Join(dir, "existing")
			require.NoError(t, os.Mkdir(existing, 0o755))

			w := New(p, nil)
			defer w.Close()
			results := collect(w.Watch(context.Background(), dir, &Options{Recursive: true}))
			time.Sleep(settle)

			nested := filepath.Join(existing, "nested.txt")
			require.NoError(t, os.WriteFile(nested, []byte("x"), 0o644))
			waitFor(t, results, hasPath(KindRename, nested))

			fresh := filepath.Join(dir, "fresh")
			require.NoError(t, os.Mkdir(fresh, 0o755))
			waitFor(t, results, hasPath(KindRename, fresh))
			time.Sleep(settle)

			inner := filepath.Join(fresh, "inner.txt")
			require.NoError(t, os.WriteFile(inner, []byte("x"), 0o644))
			waitFor(t, results, hasPath(KindRename, inner))
		})
	}
}

func TestWatcher_DirectoryMovedOutStopsReporting(t *testing.T) {
	for _, p := range watchPlatforms() {
		t.Run(p.Descriptor().Name, func(t *testing.T) {
			dir := t.TempDir()
			sub := filepath.Join(dir, "sub")
			require.NoError(t, os.MkdirAll(filepath.Join(sub, "deep"), 0o755))
			elsewhere := filepath.Join(t.TempDir(), "moved")

			w := New(p, nil)
			defer w.Close()
			results := collect(w.Watch(context.Background(), dir, &Options{Recursive: true}))
			time.Sleep(settle)

			require.NoError(t, os.Rename(sub, elsewhere))
			waitFor(t, results, hasPath(KindRename, sub))
			time.Sleep(settle)

			require.NoError(t, os.WriteFile(filepath.Join(elsewhere, "late.txt"), []byte("x"), 0o644))
			require.NoError(t, os.WriteFile(filepath.Join(elsewhere, "deep", "later.txt"), []byte("x"), 0o644))

			marker := filepath.Join(dir, "marker.txt")
			require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))
			seen := until(t, results, hasPath(KindRename, marker))

			prefix := sub + string(filepath.Separator)
			for _, ev := range seen {
				for _, path := range ev.Paths {
					assert.False(t, strings.HasPrefix(path, prefix), "event %s %s from outside the tree", ev.Kind, path)
				}
			}
		})
	}
}

func TestWatcher_DirectoryMovedWithinTreeKeepsReporting(t *testing.T) {
	for _, p := range watchPlatforms() {
		t.Run(p.Descriptor().Name, func(t *testing.T) {
			dir := t.TempDir()
			sub := filepath.Join(dir, "sub")
			require.NoError(t, os.Mkdir(sub, 0o755))
			renamed := filepath.Join(dir, "renamed")

			w := New(p, nil)
			defer w.Close()
			results := collect(w.Watch(context.Background(), dir, &Options{Recursive: true}))
			time.Sleep(settle)

			require.NoError(t, os.Rename(sub, renamed))
			waitFor(t, results, hasPath(KindRename, renamed))
			time.Sleep(settle)

			inside := filepath.Join(renamed, "inside.txt")
			require.NoError(t, os.WriteFile(inside, []byte("x"), 0o644))
			waitFor(t, results, hasPath(KindRename, inside))
		})
	}
}

func TestWatcher_NonRecursiveSkipsSubdirectories(t *testing.T) {
	for _, p := range watchPlatforms() {
		t.Run(p.Descriptor().Name, func(t *testing.T) {
			dir := t.TempDir()
			sub := filepath.Join(dir, "sub")
			require.NoError(t, os.Mkdir(sub, 0o755))

			w := New(p, nil)
			defer w.Close()
			results := collect(w.Watch(context.Background(), dir, &Options{Recursive: false}))
			time.Sleep(settle)

			require.NoError(t, os.WriteFile(filepath.Join(sub, "hidden.txt"), []byte("x"), 0o644))
			marker := filepath.Join(dir, "marker.txt")
			require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))

			ev := waitFor(t, results, func(ev Event) bool {
				return ev.Path() != sub
			})
			assert.Equal(t, marker, ev.Path())
		})
	}
}

func TestWatcher_FileRootFiltersSiblings(t *testing.T) {
	for _, p := range watchPlatforms() {
		t.Run(p.Descriptor().Name, func(t *testing.T) {
			dir := t.TempDir()
			file := filepath.Join(dir, "watched.txt")
			require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

			w := New(p, nil)
			defer w.Close()
			results := collect(w.Watch(context.Background(), file, nil))
			time.Sleep(settle)

			require.NoError(t, os.WriteFile(filepath.Join(dir, "sibling.txt"), []byte("x"), 0o644))
			require.NoError(t, os.WriteFile(file, []byte("changed"), 0o644))

			ev := waitFor(t, results, func(Event) bool { return true })
			assert.Equal(t, file, ev.Path())
		})
	}
}

func TestWatcher_IgnorePatterns(t *testing.T) {
	for _, p := range watchPlatforms() {
		t.Run(p.Descriptor().Name, func(t *testing.T) {
			dir := t.TempDir()
			w := New(p, nil)
			defer w.Close()
			results := collect(w.Watch(context.Background(), dir, &Options{Recursive: true, Ignore: []string{"*.tmp"}}))
			time.Sleep(settle)

			require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.tmp"), []byte("x"), 0o644))
			kept := filepath.Join(dir, "kept.txt")
			require.NoError(t, os.WriteFile(kept, []byte("x"), 0o644))

			ev := waitFor(t, results, func(Event) bool { return true })
			assert.Equal(t, kept, ev.Path())
		})
	}
}

func TestWatcher_ContextCancelEndsSilently(t *testing.T) {
	for _, p := range watchPlatforms() {
		t.Run(p.Descriptor().Name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			w := New(p, nil)
			defer w.Close()

			results := collect(w.Watch(ctx, t.TempDir(), nil))
			time.Sleep(settle)
			cancel()

			assert.Empty(t, waitEnd(t, results))
			assert.Equal(t, StateWatching, w.State())
		})
	}
}

func TestWatcher_ConsumerBreak(t *testing.T) {
	for _, p := range watchPlatforms() {
		t.Run(p.Descriptor().Name, func(t *testing.T) {
			dir := t.TempDir()
			w := New(p, nil)
			defer w.Close()

			done := make(chan Event, 1)
			go func() {
				for ev, err := range w.Watch(context.Background(), dir, nil) {
					if err == nil {
						done <- ev
						break
					}
				}
				close(done)
			}()
			time.Sleep(settle)
			require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), nil, 0o644))

			select {
			case ev := <-done:
				assert.Equal(t, KindRename, ev.Kind)
			case <-time.After(5 * time.Second):
				t.Fatal("timeout waiting for event")
			}
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("watch did not return after break")
			}
		})
	}
}

func TestFsnotifyKind(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want EventKind
	}{
		{fsnotify.Create, KindRename},
		{fsnotify.Rename, KindRename},
		{fsnotify.Write, KindModify},
		{fsnotify.Chmod, KindModify},
		{fsnotify.Remove, KindRemove},
		{fsnotify.Remove | fsnotify.Write, KindRemove},
		{0, KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, fsnotifyKind(tt.op))
		})
	}
}

func TestEvent_JSON(t *testing.T) {
	data, err := json.Marshal(Event{Kind: KindRename, Paths: []string{"/a", ""}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"rename","paths":["/a",null]}`, string(data))

	data, err = json.Marshal(Event{Kind: KindError})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"error","paths":[]}`, string(data))
}

func TestOptions_ShouldIgnore(t *testing.T) {
	o := Options{Ignore: []string{"*.swp", "build/**", ".git"}}
	root := filepath.FromSlash("/repo")

	tests := []struct {
		path string
		want bool
	}{
		{"/repo/main.go", false},
		{"/repo/.main.go.swp", true},
		{"/repo/build/out/bin", true},
		{"/repo/src/build.go", false},
		{"/repo/.git", true},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, o.shouldIgnore(root, filepath.FromSlash(tt.path)))
		})
	}
	assert.False(t, (&Options{}).shouldIgnore(root, "/repo/x"))
}

func TestWithin(t *testing.T) {
	dir := filepath.Join("/srv", "data")
	assert.True(t, within(dir, dir))
	assert.True(t, within(dir, filepath.Join(dir, "a", "b")))
	assert.False(t, within(dir, filepath.Join("/srv", "database")))
	assert.False(t, within(dir, "/srv"))
}
