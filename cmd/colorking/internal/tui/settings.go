package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// openSettings shows the provider screen, loaded from the store.
func (m Model) openSettings(n notice) (tea.Model, tea.Cmd) {
	s := m.store.Snapshot()

	m.settings = true
	m.notice = n
	m.enabled = s.ProviderEnabled
	m.keyFocus = 0
	m.credential.SetValue(s.ProviderCredential)
	m.credential.CursorEnd()
	m.describe.Blur()

	return m, m.credential.Focus()
}

func (m Model) closeSettings() (tea.Model, tea.Cmd) {
	m.settings = false
	m.credential.Blur()

	return m.goTo(m.step)
}

func (m Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		m.notice = notice{}
		return m.closeSettings()

	case key.Matches(msg, keys.Toggle):
		m.keyFocus = 1 - m.keyFocus
		if m.keyFocus == 0 {
			return m, m.credential.Focus()
		}
		m.credential.Blur()
		return m, nil

	case key.Matches(msg, keys.Enter):
		if err := m.store.SetProviderCredential(m.ctx, m.credential.Value()); err != nil {
			m.notice = notice{kind: noticeAlert, text: userMessage(err)}
			return m, nil
		}
		if err := m.store.SetProviderEnabled(m.ctx, m.enabled); err != nil {
			m.notice = notice{kind: noticeAlert, text: userMessage(err)}
			return m, nil
		}
		m.notice = notice{kind: noticeInfo, text: "Provider settings saved."}
		return m.closeSettings()
	}

	if m.keyFocus == 1 {
		switch msg.String() {
		case " ", "left", "right":
			m.enabled = !m.enabled
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.credential, cmd = m.credential.Update(msg)

	return m, cmd
}

func (m Model) viewSettings() string {
	toggle := "[ ] use the AI provider"
	if m.enabled {
		toggle = "[x] use the AI provider"
	}
	if m.keyFocus == 1 {
		toggle = selStyle.Render("> " + toggle)
	} else {
		toggle = "  " + toggle
	}

	body := headingStyle.Render("AI provider") + "\n\n" +
		"API key\n" + m.credential.View() + "\n\n" +
		toggle + "\n\n" +
		dimStyle.Render("The key is stored on this machine only. With the provider off, demo drawings are shown.")

	return panelStyle.Render(body)
}
