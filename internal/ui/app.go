package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/roost/internal/config"
	"github.com/five82/roost/internal/control"
	"github.com/five82/roost/internal/logtail"
	"github.com/five82/roost/internal/prefs"
	"github.com/five82/roost/internal/state"
)

const (
	defaultPollTick = 250 * time.Millisecond
	logTailLines    = 200
	flashTTL        = 5 * time.Second
)

// View is the active screen.
type View int

const (
	ViewPanel View = iota
	ViewLogs
)

// SnapshotSource provides the latest printer view.
type SnapshotSource interface {
	Snapshot() state.Snapshot
}

// Controller performs panel actions.
type Controller interface {
	Home() error
	QuadGantryLevel() error
	ApplyPreset(name string) (config.Preset, error)
	SendGcode(script string) error
	Presets() []config.Preset
}

// Options configures the UI.
type Options struct {
	Store      SnapshotSource
	Control    Controller
	Address    string // printer host shown in the header
	PrefsPath  string // empty disables saving preferences
	LogPath    string // empty disables the log view
	ThemeName  string
	LastPreset string
	PollTick   time.Duration
}

type flash struct {
	text  string
	isErr bool
	at    time.Time
}

type logState struct {
	entries []logtail.Entry
	err     error
}

// Model is the root Bubble Tea model.
type Model struct {
	store     SnapshotSource
	control   Controller
	address   string
	prefsPath string
	logPath   string
	pollTick  time.Duration
	keys      keyMap

	theme    Theme
	view     View
	width    int
	height   int
	ready    bool
	showHelp bool

	snapshot    state.Snapshot
	lastUpdated time.Time

	input       textinput.Model
	inputActive bool
	bar         progress.Model

	flash            flash
	dismissedWarning time.Time
	lastPreset       string
	logs             logState
}

// New creates the panel model.
func New(opts Options) Model {
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = defaultPollTick
	}
	theme := GetTheme(opts.ThemeName)

	input := textinput.New()
	input.Prompt = "G-code: "
	input.Placeholder = "G28, M104 S220 T0, QUAD_GANTRY_LEVEL"
	input.CharLimit = 256

	return Model{
		store:      opts.Store,
		control:    opts.Control,
		address:    opts.Address,
		prefsPath:  opts.PrefsPath,
		logPath:    opts.LogPath,
		pollTick:   pollTick,
		keys:       DefaultKeyMap(),
		theme:      theme,
		view:       ViewPanel,
		input:      input,
		bar:        newProgressBar(theme),
		lastPreset: opts.LastPreset,
	}
}

func newProgressBar(t Theme) progress.Model {
	return progress.New(progress.WithSolidFill(t.Success), progress.WithoutPercentage())
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(max(m.width-30, 10), 60)
		m.input.Width = max(m.width-12, 10)
		m.ready = true
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd(m.pollTick)}
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		if m.view == ViewLogs {
			cmds = append(cmds, loadLogsCmd(m.logPath))
		}
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		return m, nil

	case logsMsg:
		m.logs = logState(msg)
		return m, nil
	}

	if m.inputActive {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.warningVisible() {
		return m.renderWarning()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	// A host warning is modal: any key acknowledges it.
	if m.warningVisible() {
		m.dismissedWarning = m.snapshot.LastWarning.At
		return m, nil
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.inputActive {
		return m.handleInputKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.bar = newProgressBar(m.theme)
		m.bar.Width = min(max(m.width-30, 10), 60)
		m.savePrefs()

	case key.Matches(msg, m.keys.Logs):
		if m.view == ViewLogs {
			m.view = ViewPanel
			return m, nil
		}
		m.view = ViewLogs
		return m, loadLogsCmd(m.logPath)

	case key.Matches(msg, m.keys.Escape):
		m.view = ViewPanel

	case m.control == nil:
		// Read-only panel.

	case key.Matches(msg, m.keys.Home):
		m.report("Home", m.control.Home())

	case key.Matches(msg, m.keys.Level):
		m.report("Gantry level", m.control.QuadGantryLevel())

	case key.Matches(msg, m.keys.Preset):
		idx := int(msg.String()[0] - '1')
		presets := m.control.Presets()
		if idx < len(presets) {
			m.applyPreset(presets[idx].Name)
		}

	case key.Matches(msg, m.keys.Repeat):
		if m.lastPreset != "" {
			m.applyPreset(m.lastPreset)
		}

	case key.Matches(msg, m.keys.Gcode):
		m.inputActive = true
		m.input.Reset()
		return m, m.input.Focus()
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.inputActive = false
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		script := m.input.Value()
		err := m.control.SendGcode(script)
		m.report(script, err)
		// Keep the text on validation errors so it can be fixed.
		if errors.Is(err, control.ErrInvalidGcode) {
			return m, nil
		}
		m.inputActive = false
		m.input.Blur()
		m.input.Reset()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) applyPreset(name string) {
	p, err := m.control.ApplyPreset(name)
	if err != nil {
		m.report(name, err)
		return
	}
	m.report(p.Name, nil)
	if m.lastPreset != p.Name {
		m.lastPreset = p.Name
		m.savePrefs()
	}
}

func (m *Model) report(label string, err error) {
	if err != nil {
		m.flash = flash{text: label + ": " + describeError(err), isErr: true, at: time.Now()}
		return
	}
	m.flash = flash{text: label + " queued", at: time.Now()}
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, LastPreset: m.lastPreset})
}

func (m Model) warningVisible() bool {
	w := m.snapshot.LastWarning
	return w.Message != "" && w.At.After(m.dismissedWarning)
}

func describeError(err error) string {
	switch {
	case errors.Is(err, control.ErrBusy):
		return "busy, try again"
	case errors.Is(err, control.ErrOffline):
		return "printer offline"
	case errors.Is(err, control.ErrNotReady):
		return "printer not ready"
	default:
		return err.Error()
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type logsMsg logState

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store SnapshotSource) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func loadLogsCmd(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		entries, err := logtail.Tail(path, logTailLines)
		return logsMsg{entries: entries, err: err}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
