package viewer

import (
	"context"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/livid/errors"
)

const (
	pollInterval = time.Second
	// maxView is the most of a file the TUI keeps in memory.
	maxView = 1 << 20
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	paneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	focusStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#98FB98"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// TUI is a read-only terminal viewer for the output and log files. The
// script is edited elsewhere; the TUI shows its path.
type TUI struct {
	files Files
	log   *zap.Logger
	tty   string
	prog  atomic.Pointer[tea.Program]
}

// NewTUI creates a TUI viewer. Nothing is started until Run.
func NewTUI(opts Options) *TUI {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &TUI{files: opts.Files, log: log, tty: ttyPath(opts.TTY)}
}

// Run takes over the terminal until the user quits or ctx is cancelled.
func (t *TUI) Run(ctx context.Context) error {
	out, err := os.OpenFile(t.tty, os.O_WRONLY, 0)
	if err != nil {
		return errors.IO(errors.PhaseViewer, t.tty, err)
	}
	defer out.Close()

	p := tea.NewProgram(newTUIModel(t.files),
		tea.WithContext(ctx),
		tea.WithInputTTY(),
		tea.WithOutput(out),
		tea.WithAltScreen())
	t.prog.Store(p)
	defer t.prog.Store(nil)

	_, err = p.Run()
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.PhaseViewer, errors.KindIO, err, "tui")
	}
	return nil
}

// Refresh makes the TUI reread its files. It is a no-op while the TUI is
// not running.
func (t *TUI) Refresh() error {
	if p := t.prog.Load(); p != nil {
		p.Send(refreshMsg{})
	}
	return nil
}

type refreshMsg struct{}

type tickMsg time.Time

type pane int

const (
	paneOutput pane = iota
	paneLog
)

type tuiModel struct {
	files  Files
	output viewport.Model
	log    viewport.Model
	err    error
	focus  pane
	ready  bool
}

func newTUIModel(files Files) *tuiModel {
	return &tuiModel{files: files}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *tuiModel) Init() tea.Cmd {
	return tick()
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.focus = (m.focus + 1) % 2
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.reload()
		return m, nil

	case refreshMsg:
		m.reload()
		return m, nil

	case tickMsg:
		m.reload()
		return m, tick()
	}

	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	if m.focus == paneOutput {
		m.output, cmd = m.output.Update(msg)
	} else {
		m.log, cmd = m.log.Update(msg)
	}
	return m, cmd
}

// resize splits the screen two thirds output, one third log, leaving room
// for the title, two pane labels and the help line.
func (m *tuiModel) resize(width, height int) {
	body := max(height-4, 2)
	outH := max(body*2/3, 1)
	logH := max(body-outH, 1)
	if !m.ready {
		m.output = viewport.New(width, outH)
		m.log = viewport.New(width, logH)
		m.ready = true
		return
	}
	m.output.Width, m.output.Height = width, outH
	m.log.Width, m.log.Height = width, logH
}

func (m *tuiModel) reload() {
	if !m.ready {
		return
	}
	out, err := readView(m.files.Output)
	if err != nil {
		m.err = err
		return
	}
	logText, err := readView(m.files.Log)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.output.SetContent(out)
	m.log.SetContent(logText)
	m.log.GotoBottom()
}

func readView(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	b, err := io.ReadAll(io.LimitReader(f, maxView))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (m *tuiModel) label(p pane, name string) string {
	if m.focus == p {
		return focusStyle.Render("▸ " + name)
	}
	return paneStyle.Render("  " + name)
}

func (m *tuiModel) View() string {
	if !m.ready {
		return "Starting..."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("livid"))
	b.WriteString(" ")
	b.WriteString(m.files.Script)
	b.WriteString("\n")
	b.WriteString(m.label(paneOutput, "output"))
	b.WriteString("\n")
	b.WriteString(m.output.View())
	b.WriteString("\n")
	b.WriteString(m.label(paneLog, "log"))
	b.WriteString("\n")
	b.WriteString(m.log.View())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	} else {
		b.WriteString(helpStyle.Render("↑/↓ scroll • tab switch pane • q quit"))
	}
	return b.String()
}
