// Package tui is the interactive coloring-page wizard: one view per step,
// driven by a wizard.Store.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/germanamz/colorking/pkg/wizard"
)

// Printer writes the selected outline to a PDF and returns its path.
type Printer interface {
	PrintToFile(ctx context.Context) (string, error)
}

// Options tunes the Model.
type Options struct {
	// MarkdownStyle is a glamour standard style; empty detects the terminal.
	MarkdownStyle string
	// Examples are offered on the Describe step.
	Examples []string
}

// DefaultExamples are the example prompts on the Describe step.
var DefaultExamples = []string{
	"Football players celebrating a goal",
	"A cat in a crown",
	"A castle on a hill with a dragon",
	"Underwater world with turtles and fish",
}

type generatedMsg struct {
	target wizard.Step
	arg    string
	err    error
}

type printedMsg struct {
	path string
	err  error
}

type storeChangedMsg struct{}

// Model is the root bubbletea model.
type Model struct {
	ctx     context.Context
	store   *wizard.Store
	printer Printer
	opts    Options
	md      *glamour.TermRenderer

	step     wizard.Step
	settings bool // provider settings screen open

	describe   textinput.Model
	example    int
	credential textinput.Model
	enabled    bool
	keyFocus   int // 0 key input, 1 enabled toggle

	cursor int // drawing or outline option
	field  int // print settings field

	spinner    spinner.Model
	help       help.Model
	generating bool
	cancel     context.CancelFunc

	notice    notice
	retryStep wizard.Step // step whose generation ctrl+r repeats
	retryArg  string

	width int
}

// New creates the Model.
func New(ctx context.Context, store *wizard.Store, printer Printer, opts Options) Model {
	if len(opts.Examples) == 0 {
		opts.Examples = DefaultExamples
	}

	d := textinput.New()
	d.Placeholder = "Describe your drawing, e.g. " + opts.Examples[0]
	d.CharLimit = 300
	d.Width = 60

	c := textinput.New()
	c.Placeholder = "API key"
	c.EchoMode = textinput.EchoPassword
	c.EchoCharacter = '•'
	c.Width = 40

	s := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle))

	m := Model{
		ctx:        ctx,
		store:      store,
		printer:    printer,
		opts:       opts,
		describe:   d,
		credential: c,
		spinner:    s,
		help:       help.New(),
		step:       wizard.StepHome,
		width:      80,
	}

	mdOpts := []glamour.TermRendererOption{glamour.WithWordWrap(72)}
	if opts.MarkdownStyle == "" {
		mdOpts = append(mdOpts, glamour.WithAutoStyle())
	} else {
		mdOpts = append(mdOpts, glamour.WithStandardStyle(opts.MarkdownStyle))
	}
	if r, err := glamour.NewTermRenderer(mdOpts...); err == nil {
		m.md = r
	}

	return m
}

// Init starts watching the store.
func (m Model) Init() tea.Cmd {
	return m.waitForChange()
}

// waitForChange re-renders whenever the store changes outside this model,
// for example a generation finishing after a reset.
func (m Model) waitForChange() tea.Cmd {
	ch := m.store.Changed()
	ctx := m.ctx

	return func() tea.Msg {
		select {
		case <-ch:
			return storeChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case storeChangedMsg:
		return m, m.waitForChange()

	case spinner.TickMsg:
		if !m.generating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case generatedMsg:
		return m.finishGeneration(msg)

	case printedMsg:
		if msg.err != nil {
			m.notice = notice{kind: noticeAlert, text: userMessage(msg.err)}
		} else {
			m.notice = notice{kind: noticeInfo, text: "Saved " + msg.path}
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateInputs(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case m.generating:
		// Only cancellation is accepted while a generation runs.
		if key.Matches(msg, keys.Back) && m.cancel != nil {
			m.cancel()
		}
		return m, nil

	case key.Matches(msg, keys.Settings) && !m.settings:
		return m.openSettings(notice{})

	case key.Matches(msg, keys.Retry) && m.notice.kind == noticeRetry:
		return m.retry()
	}

	if m.settings {
		return m.updateSettings(msg)
	}

	switch m.step {
	case wizard.StepHome:
		return m.updateHome(msg)
	case wizard.StepDescribe:
		return m.updateDescribe(msg)
	case wizard.StepChooseDrawing:
		return m.updateChooseDrawing(msg)
	case wizard.StepChooseOutline:
		return m.updateChooseOutline(msg)
	case wizard.StepPrintSettings:
		return m.updatePrintSettings(msg)
	case wizard.StepPreview:
		return m.updatePreview(msg)
	}

	return m, nil
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch {
	case m.settings:
		m.credential, cmd = m.credential.Update(msg)
	case m.step == wizard.StepDescribe:
		m.describe, cmd = m.describe.Update(msg)
	}

	return m, cmd
}

// goTo moves to step, or to Describe when its prerequisites are missing.
func (m Model) goTo(step wizard.Step) (Model, tea.Cmd) {
	m.step = m.store.Guard(step)
	m.cursor = 0
	m.field = 0

	if m.step == wizard.StepDescribe {
		if m.describe.Value() == "" {
			m.describe.SetValue(m.store.Snapshot().Description)
		}
		return m, m.describe.Focus()
	}
	m.describe.Blur()

	return m, nil
}

func (m Model) startGeneration(target wizard.Step, arg string) (tea.Model, tea.Cmd) {
	if m.generating || m.store.Snapshot().IsGenerating {
		return m, nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.generating = true
	m.notice = notice{}

	store := m.store
	run := func() tea.Msg {
		var err error
		if target == wizard.StepChooseDrawing {
			err = store.GenerateDrawingOptions(ctx, arg)
		} else {
			err = store.GenerateOutlineOptions(ctx, arg)
		}
		return generatedMsg{target: target, arg: arg, err: err}
	}

	return m, tea.Batch(m.spinner.Tick, run)
}

func (m Model) finishGeneration(msg generatedMsg) (tea.Model, tea.Cmd) {
	m.generating = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	if msg.err == nil {
		return m.goTo(msg.target)
	}

	how, text := present(msg.err)
	switch how {
	case presentQuiet:
		if text != "" {
			m.notice = notice{kind: noticeInfo, text: text}
		}
	case presentCredential:
		return m.openSettings(notice{kind: noticeAlert, text: text})
	case presentRetry:
		m.notice = notice{kind: noticeRetry, text: text}
		m.retryStep, m.retryArg = msg.target, msg.arg
	default:
		m.notice = notice{kind: noticeAlert, text: text}
	}

	return m, nil
}

func (m Model) retry() (tea.Model, tea.Cmd) {
	return m.startGeneration(m.retryStep, m.retryArg)
}

func (m Model) back() (tea.Model, tea.Cmd) {
	m.notice = notice{}
	return m.goTo(m.step.Prev())
}

// View renders the current screen.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n\n")

	if m.settings {
		b.WriteString(m.viewSettings())
	} else {
		switch m.step {
		case wizard.StepHome:
			b.WriteString(m.viewHome())
		case wizard.StepDescribe:
			b.WriteString(m.viewDescribe())
		case wizard.StepChooseDrawing:
			b.WriteString(m.viewChooseDrawing())
		case wizard.StepChooseOutline:
			b.WriteString(m.viewChooseOutline())
		case wizard.StepPrintSettings:
			b.WriteString(m.viewPrintSettings())
		case wizard.StepPreview:
			b.WriteString(m.viewPreview())
		}
	}

	b.WriteString("\n")

	if m.generating {
		b.WriteString("\n" + m.spinner.View() + " Generating… " + dimStyle.Render("(esc to cancel)") + "\n")
	}

	switch m.notice.kind {
	case noticeInfo:
		b.WriteString("\n" + infoStyle.Render(m.notice.text) + "\n")
	case noticeRetry:
		b.WriteString("\n" + retryStyle.Render(m.notice.text) + "\n")
	case noticeAlert:
		b.WriteString("\n" + alertStyle.Render(m.notice.text) + "\n")
	case noticeNone:
	}

	b.WriteString("\n" + m.help.ShortHelpView(m.bindings()))

	return b.String()
}

func (m Model) header() string {
	parts := make([]string, 0, len(wizard.Steps()))
	for _, s := range wizard.Steps() {
		if s == wizard.StepHome {
			continue
		}
		if s == m.step && !m.settings {
			parts = append(parts, stepCurStyle.Render(s.Title()))
		} else {
			parts = append(parts, stepStyle.Render(s.Title()))
		}
	}

	return titleStyle.Render("Color King") + "  " + strings.Join(parts, stepStyle.Render(" › "))
}

func (m Model) bindings() []key.Binding {
	if m.generating {
		return []key.Binding{keys.Back, keys.Quit}
	}

	var b []key.Binding
	switch {
	case m.settings:
		b = []key.Binding{keys.Toggle, keys.Enter, keys.Back}
	case m.step == wizard.StepHome:
		b = []key.Binding{keys.Enter, keys.Settings}
	case m.step == wizard.StepDescribe:
		b = []key.Binding{keys.Enter, keys.Example, keys.Settings, keys.Back}
	case m.step == wizard.StepPrintSettings:
		b = []key.Binding{keys.Up, keys.Down, keys.Left, keys.Right, keys.Enter, keys.Back}
	case m.step == wizard.StepPreview:
		b = []key.Binding{keys.Print, keys.New, keys.Back}
	default:
		b = []key.Binding{keys.Left, keys.Right, keys.Enter, keys.Back}
	}

	if m.notice.kind == noticeRetry {
		b = append(b, keys.Retry)
	}

	return append(b, keys.Quit)
}
