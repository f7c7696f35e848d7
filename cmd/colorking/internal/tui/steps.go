package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/germanamz/colorking/pkg/drawing"
	"github.com/germanamz/colorking/pkg/wizard"
)

// Home.

func (m Model) updateHome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Enter) {
		return m.goTo(wizard.StepDescribe)
	}

	return m, nil
}

func (m Model) viewHome() string {
	s := m.store.Snapshot()

	status := "off (demo drawings)"
	switch {
	case s.ProviderEnabled && s.ProviderCredential != "":
		status = "on"
	case s.ProviderEnabled:
		status = "on, but no API key is set"
	}

	return headingStyle.Render("Turn any idea into a printable coloring page.") + "\n\n" +
		"Describe a drawing, pick one of the results, choose an outline, and print.\n\n" +
		dimStyle.Render("AI provider: "+status)
}

// Describe.

func (m Model) updateDescribe(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		return m.back()
	case key.Matches(msg, keys.Example):
		m.describe.SetValue(m.opts.Examples[m.example%len(m.opts.Examples)])
		m.describe.CursorEnd()
		m.example++
		return m, nil
	case key.Matches(msg, keys.Enter):
		desc := strings.TrimSpace(m.describe.Value())
		m.store.SetDescription(desc)
		return m.startGeneration(wizard.StepChooseDrawing, desc)
	}

	var cmd tea.Cmd
	m.describe, cmd = m.describe.Update(msg)

	return m, cmd
}

func (m Model) viewDescribe() string {
	return headingStyle.Render("What should the drawing show?") + "\n\n" +
		m.describe.View() + "\n\n" +
		dimStyle.Render("Tip: press tab for an example.")
}

// Choose drawing / outline.

func (m Model) moveCursor(msg tea.KeyMsg, n int) (Model, bool) {
	switch {
	case key.Matches(msg, keys.Up), key.Matches(msg, keys.Left):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, true
	case key.Matches(msg, keys.Down), key.Matches(msg, keys.Right):
		if m.cursor < n-1 {
			m.cursor++
		}
		return m, true
	}

	return m, false
}

func (m Model) updateChooseDrawing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	opts := m.store.Snapshot().DrawingOptions

	if next, moved := m.moveCursor(msg, len(opts)); moved {
		return next, nil
	}

	switch {
	case key.Matches(msg, keys.Back):
		return m.back()
	case key.Matches(msg, keys.Enter) && m.cursor < len(opts):
		return m.startGeneration(wizard.StepChooseOutline, opts[m.cursor].ID)
	}

	return m, nil
}

func (m Model) viewChooseDrawing() string {
	s := m.store.Snapshot()

	return headingStyle.Render(fmt.Sprintf("Drawings for %q", s.Description)) + "\n\n" +
		m.optionList(s.DrawingOptions)
}

func (m Model) updateChooseOutline(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	opts := m.store.Snapshot().OutlineOptions

	if next, moved := m.moveCursor(msg, len(opts)); moved {
		return next, nil
	}

	switch {
	case key.Matches(msg, keys.Back):
		return m.back()
	case key.Matches(msg, keys.Enter) && m.cursor < len(opts):
		if err := m.store.SelectOutline(opts[m.cursor].ID); err != nil {
			m.notice = notice{kind: noticeAlert, text: userMessage(err)}
			return m, nil
		}
		m.notice = notice{}
		return m.goTo(wizard.StepPrintSettings)
	}

	return m, nil
}

func (m Model) viewChooseOutline() string {
	s := m.store.Snapshot()

	var b strings.Builder
	b.WriteString(headingStyle.Render("Choose an outline"))
	if s.SelectedDrawing != nil {
		b.WriteString(dimStyle.Render("  from " + m.truncate(s.SelectedDrawing.Alt, 40)))
	}
	b.WriteString("\n\n")
	b.WriteString(m.optionList(s.OutlineOptions))

	return b.String()
}

func (m Model) optionList(opts []drawing.ImageOption) string {
	var b strings.Builder

	for i, o := range opts {
		line := fmt.Sprintf("%s. %s", o.ID, m.truncate(o.Alt, m.width-10))
		if i == m.cursor {
			b.WriteString(selStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n    " + dimStyle.Render(m.truncate(o.URL, m.width-6)) + "\n")
	}

	return b.String()
}

func (m Model) truncate(s string, w int) string {
	if w < 10 {
		w = 10
	}

	return runewidth.Truncate(s, w, "…")
}

// Print settings.

const (
	fieldPageSize = iota
	fieldThickness
	fieldColor
	fieldCopies
	fieldCount
)

func (m Model) updatePrintSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ps := m.store.Snapshot().PrintSettings
	step := 0

	switch {
	case key.Matches(msg, keys.Back):
		return m.back()
	case key.Matches(msg, keys.Enter):
		return m.goTo(wizard.StepPreview)
	case key.Matches(msg, keys.Up):
		m.field = (m.field + fieldCount - 1) % fieldCount
		return m, nil
	case key.Matches(msg, keys.Down):
		m.field = (m.field + 1) % fieldCount
		return m, nil
	case key.Matches(msg, keys.Left):
		step = -1
	case key.Matches(msg, keys.Right):
		step = 1
	default:
		return m, nil
	}

	switch m.field {
	case fieldPageSize:
		ps.PageSize = pick(step, ps.PageSize.Next, ps.PageSize.Prev)
	case fieldThickness:
		ps.OutlineThickness = pick(step, ps.OutlineThickness.Next, ps.OutlineThickness.Prev)
	case fieldColor:
		ps.OutlineColor = pick(step, ps.OutlineColor.Next, ps.OutlineColor.Prev)
	case fieldCopies:
		m.store.AdjustCopies(step)
		return m, nil
	}

	if err := m.store.SetPrintSettings(ps); err != nil {
		m.notice = notice{kind: noticeAlert, text: userMessage(err)}
	}

	return m, nil
}

func pick[T any](step int, next, prev func() T) T {
	if step > 0 {
		return next()
	}

	return prev()
}

func (m Model) viewPrintSettings() string {
	ps := m.store.Snapshot().PrintSettings

	rows := []struct{ label, value string }{
		{"Page size", string(ps.PageSize)},
		{"Outline thickness", string(ps.OutlineThickness)},
		{"Outline color", string(ps.OutlineColor)},
		{"Copies", fmt.Sprintf("%d  (%d-%d)", ps.Copies, drawing.MinCopies, drawing.MaxCopies)},
	}

	var b strings.Builder
	b.WriteString(headingStyle.Render("Print settings") + "\n\n")

	for i, r := range rows {
		line := fmt.Sprintf("%-18s ‹ %s ›", r.label, r.value)
		if i == m.field {
			b.WriteString(selStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	return b.String()
}

// Preview.

func (m Model) updatePreview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		return m.back()
	case key.Matches(msg, keys.Print), key.Matches(msg, keys.Enter):
		if m.printer == nil {
			return m, nil
		}
		ctx, printer := m.ctx, m.printer
		return m, func() tea.Msg {
			path, err := printer.PrintToFile(ctx)
			return printedMsg{path: path, err: err}
		}
	case key.Matches(msg, keys.New):
		m.store.ResetState()
		m.describe.SetValue("")
		m.notice = notice{}
		return m.goTo(wizard.StepDescribe)
	}

	return m, nil
}

func (m Model) previewMarkdown() string {
	s := m.store.Snapshot()
	ps := s.PrintSettings

	var b strings.Builder
	b.WriteString("# Ready to print\n\n")
	fmt.Fprintf(&b, "**%s**\n\n", s.Description)
	b.WriteString("| Setting | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Page size | %s |\n", ps.PageSize)
	fmt.Fprintf(&b, "| Outline | %s, %s |\n", ps.OutlineThickness, ps.OutlineColor)
	fmt.Fprintf(&b, "| Copies | %d |\n", ps.Copies)
	if s.SelectedOutline != nil {
		fmt.Fprintf(&b, "\nOutline: %s\n", s.SelectedOutline.Alt)
	}

	return b.String()
}

func (m Model) viewPreview() string {
	src := m.previewMarkdown()
	if m.md == nil {
		return src
	}

	out, err := m.md.Render(src)
	if err != nil {
		return src
	}

	return strings.TrimRight(out, "\n")
}
