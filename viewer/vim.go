package viewer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/livid/errors"
)

// ServerName is the vim client/server name the viewer registers.
const ServerName = "livid"

const (
	refreshKeys = "<Esc>:checktime<CR>"
	quitKeys    = "<Esc>:qa!<CR>"
	quitGrace   = 2 * time.Second
)

// Vim runs vim as a client/server session showing the output, log and
// script files. Refreshes ask the running server to re-check its buffers.
type Vim struct {
	files   Files
	log     *zap.Logger
	tty     string
	bin     string
	running atomic.Bool
}

// NewVim creates a vim viewer. Nothing is started until Run.
func NewVim(opts Options) *Vim {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Vim{
		files: opts.Files,
		log:   log,
		tty:   ttyPath(opts.TTY),
		bin:   vimBinary(opts.Vim),
	}
}

// Script returns the vim startup script for files. Output is on top with
// the log below it and the script beside the log.
func Script(files Files) string {
	var b strings.Builder
	b.WriteString("set backupcopy=yes\n")
	b.WriteString("set autoread\n")
	b.WriteString("set splitbelow\n")
	fmt.Fprintf(&b, "edit %s\n", vimEscape(files.Output))
	fmt.Fprintf(&b, "split %s\n", vimEscape(files.Log))
	fmt.Fprintf(&b, "vsplit %s\n", vimEscape(files.Script))
	return b.String()
}

func vimEscape(path string) string {
	r := strings.NewReplacer(`\`, `\\`, " ", `\ `, "|", `\|`, "%", `\%`, "#", `\#`)
	return r.Replace(path)
}

// Run writes the startup script and runs vim on the terminal until the
// user quits or ctx is cancelled.
func (v *Vim) Run(ctx context.Context) error {
	if err := os.WriteFile(v.files.Config, []byte(Script(v.files)), 0o644); err != nil {
		return errors.IO(errors.PhaseViewer, v.files.Config, err)
	}
	tty, err := os.OpenFile(v.tty, os.O_RDWR, 0)
	if err != nil {
		return errors.IO(errors.PhaseViewer, v.tty, err)
	}
	defer tty.Close()

	cmd := exec.CommandContext(ctx, v.bin, "--servername", ServerName, "-S", v.files.Config)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = tty, tty, tty
	// Ask vim to quit so it restores the terminal; kill it if it doesn't.
	cmd.Cancel = func() error { return v.send(quitKeys) }
	cmd.WaitDelay = quitGrace

	if err := cmd.Start(); err != nil {
		return errors.Wrap(errors.PhaseViewer, errors.KindIO, err, "start vim")
	}
	v.running.Store(true)
	v.log.Debug("vim started", zap.Int("pid", cmd.Process.Pid))

	err = cmd.Wait()
	v.running.Store(false)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.PhaseViewer, errors.KindIO, err, "vim exited")
	}
	return nil
}

// Refresh makes vim reload changed buffers. It is a no-op while vim is
// not running.
func (v *Vim) Refresh() error {
	if !v.running.Load() {
		return nil
	}
	return v.send(refreshKeys)
}

func (v *Vim) send(keys string) error {
	cmd := exec.Command(v.bin, "--servername", ServerName, "--remote-send", keys)
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.New(errors.PhaseViewer, errors.KindIO).
			Cause(err).
			Detail("vim --remote-send: %s", strings.TrimSpace(string(out))).
			Build()
	}
	return nil
}
