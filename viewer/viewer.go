// Package viewer shows the workspace's output, log and script files to the
// user and redisplays them on request.
package viewer

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/wippyai/livid/errors"
)

// Viewer kinds accepted by Select.
const (
	KindAuto = "auto"
	KindVim  = "vim"
	KindTUI  = "tui"
	KindNone = "none"
)

// DefaultRefreshInterval bounds how often non-forced refreshes go out.
const DefaultRefreshInterval = 100 * time.Millisecond

// Viewer displays the workspace files. Run blocks for the viewer's
// lifetime; Refresh may be called concurrently with Run.
type Viewer interface {
	Run(ctx context.Context) error
	Refresh() error
}

// Files names the workspace files a viewer shows.
type Files struct {
	Output string
	Log    string
	Script string
	// Config is where a viewer may write its own startup script.
	Config string
}

// Notifier turns grid progress into viewer refreshes, dropping
// non-forced requests that arrive faster than the configured interval.
type Notifier struct {
	v       Viewer
	limiter *rate.Limiter
	log     *zap.Logger
	mu      sync.Mutex
	sent    int
}

// NewNotifier creates a notifier for v. A non-positive interval selects
// DefaultRefreshInterval.
func NewNotifier(v Viewer, interval time.Duration, log *zap.Logger) *Notifier {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{
		v:       v,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		log:     log,
	}
}

// Notify requests a refresh. Forced requests are never dropped.
func (n *Notifier) Notify(force bool) {
	if !force && !n.limiter.Allow() {
		return
	}
	n.mu.Lock()
	n.sent++
	n.mu.Unlock()
	if err := n.v.Refresh(); err != nil {
		n.log.Debug("viewer refresh failed", zap.Error(err))
	}
}

// Sent returns the number of refreshes issued.
func (n *Notifier) Sent() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent
}

// Options configures Select.
type Options struct {
	Files  Files
	Logger *zap.Logger
	// TTY is the terminal the viewer takes over. Defaults to /dev/tty.
	TTY string
	// Vim is the vim binary. Defaults to "vim".
	Vim string
}

// Resolve maps KindAuto to a concrete kind: vim when a terminal and the
// vim binary are available, the TUI when only a terminal is, none
// otherwise.
func Resolve(kind string, opts Options) string {
	if kind != KindAuto && kind != "" {
		return kind
	}
	if !terminal(opts.TTY) {
		return KindNone
	}
	if _, err := exec.LookPath(vimBinary(opts.Vim)); err == nil {
		return KindVim
	}
	return KindTUI
}

// Select builds the viewer for kind, resolving KindAuto first.
func Select(kind string, opts Options) (Viewer, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	switch Resolve(kind, opts) {
	case KindVim:
		return NewVim(opts), nil
	case KindTUI:
		return NewTUI(opts), nil
	case KindNone:
		return None{}, nil
	default:
		return nil, errors.InvalidEnum(errors.PhaseViewer, "viewer", kind, "viewer kind")
	}
}

func terminal(tty string) bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	f, err := os.OpenFile(ttyPath(tty), os.O_RDWR, 0)
	if err != nil {
		return false
	}
	defer f.Close()
	return term.IsTerminal(int(f.Fd()))
}

func ttyPath(tty string) string {
	if tty == "" {
		return "/dev/tty"
	}
	return tty
}

func vimBinary(vim string) string {
	if vim == "" {
		return "vim"
	}
	return vim
}

// None is the headless viewer.
type None struct{}

// Run blocks until ctx is done.
func (None) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (None) Refresh() error { return nil }
