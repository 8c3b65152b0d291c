package reload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/livid/lifecycle"
)

type script struct {
	calls []string
}

func (s *script) ResetSinks() error {
	s.calls = append(s.calls, "reset")
	return nil
}

func (s *script) Cycle(context.Context) lifecycle.Result {
	s.calls = append(s.calls, "cycle")
	return lifecycle.Result{}
}

func (s *script) Waiting() { s.calls = append(s.calls, "waiting") }

func (s *script) Notify(force bool) {
	if force {
		s.calls = append(s.calls, "notify")
	}
}

// stepWaiter allows n triggers, then cancels the loop's context.
type stepWaiter struct {
	s      *script
	n      int
	cancel context.CancelFunc
	err    error
}

func (w *stepWaiter) Wait(ctx context.Context) error {
	w.s.calls = append(w.s.calls, "wait")
	if w.err != nil {
		return w.err
	}
	if w.n == 0 {
		w.cancel()
		<-ctx.Done()
		return ctx.Err()
	}
	w.n--
	return nil
}

func TestOrchestrator_Order(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &script{}
	o := New(Options{
		Cycler:   s,
		Waiter:   &stepWaiter{s: s, n: 1, cancel: cancel},
		Sinks:    s,
		Notifier: s,
	})

	require.NoError(t, o.Run(ctx))
	assert.Equal(t, 2, o.Iterations())
	assert.Equal(t, []string{
		"reset", "cycle", "notify", "waiting", "wait",
		"reset", "cycle", "notify", "waiting", "wait",
	}, s.calls)
}

func TestOrchestrator_WaiterError(t *testing.T) {
	s := &script{}
	boom := errors.New("boom")
	o := New(Options{Cycler: s, Waiter: &stepWaiter{s: s, err: boom}})

	err := o.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, o.Iterations())
}

func TestOrchestrator_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &script{}
	o := New(Options{Cycler: s, Waiter: &stepWaiter{s: s}})
	require.NoError(t, o.Run(ctx))
	assert.Empty(t, s.calls)
}

func TestWatcher_Save(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.c")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	w, err := NewWatcher(path, WatcherOptions{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Wait(ctx) }()

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "output"), []byte("x"), 0o644))
	time.Sleep(50 * time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("woke up on unrelated file: %v", err)
	default:
	}

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("no save event")
	}
}

func TestWatcher_Cancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.c")
	w, err := NewWatcher(path, WatcherOptions{})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Wait(ctx), context.Canceled)
}

func TestNewWatcher_MissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope", "script.c"), WatcherOptions{})
	assert.Error(t, err)
}
