package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"taskpilot/internal/api"
	"taskpilot/internal/app"
)

// statusFilters is the cycle order for the list filter. Empty means all.
var statusFilters = []api.SessionStatus{
	"",
	api.StatusActive,
	api.StatusHumanInput,
	api.StatusCompleted,
	api.StatusFailed,
	api.StatusStopped,
}

type listModel struct {
	app *app.Application
	th  Theme

	width  int
	height int

	sessions  []api.Session
	cursor    int
	filterIdx int
	loading   bool

	composing bool
	compose   textarea.Model
}

type sessionsLoadedMsg struct{ err error }
type moreLoadedMsg struct{ err error }
type deleteDoneMsg struct {
	result app.CommandResult
	name   string
}

func newListModel(a *app.Application, th Theme) listModel {
	ta := textarea.New()
	ta.Placeholder = "Describe the task..."
	ta.SetHeight(4)
	ta.CharLimit = 4000
	return listModel{app: a, th: th, compose: ta}
}

func (m *listModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.compose.SetWidth(w - 4)
}

func (m *listModel) load() tea.Cmd {
	m.loading = true
	filter := statusFilters[m.filterIdx]
	a := m.app
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return sessionsLoadedMsg{err: a.Sessions.Refresh(ctx, filter)}
	}
}

func (m *listModel) loadMore() tea.Cmd {
	a := m.app
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return moreLoadedMsg{err: a.Sessions.LoadMore(ctx)}
	}
}

func (m *listModel) deleteSelected() tea.Cmd {
	if m.cursor >= len(m.sessions) {
		return nil
	}
	target := m.sessions[m.cursor]
	a := m.app
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return deleteDoneMsg{result: a.Sessions.Delete(ctx, target.ID), name: target.Name}
	}
}

// update returns goSettings=true when the settings screen should take over.
func (m *listModel) update(msg tea.Msg) (bool, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionsLoadedMsg:
		m.loading = false
		m.sessions = m.app.Sessions.Sessions()
		if m.cursor >= len(m.sessions) {
			m.cursor = 0
		}
		if msg.err != nil {
			return false, showToast("could not load sessions: "+msg.err.Error(), true)
		}
		return false, nil

	case moreLoadedMsg:
		m.sessions = m.app.Sessions.Sessions()
		if msg.err != nil {
			return false, showToast("could not load more: "+msg.err.Error(), true)
		}
		return false, nil

	case deleteDoneMsg:
		m.sessions = m.app.Sessions.Sessions()
		if m.cursor >= len(m.sessions) && m.cursor > 0 {
			m.cursor--
		}
		if msg.result.RolledBack {
			return false, showToast("could not delete "+msg.name+", restored", true)
		}
		if msg.result.Applied {
			return false, showToast("deleted "+msg.name, false)
		}
		return false, nil

	case tea.KeyMsg:
		if m.composing {
			return false, m.updateCompose(msg)
		}
		switch msg.String() {
		case "q", "esc":
			return false, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.sessions)-1 {
				m.cursor++
			} else if m.app.Sessions.HasMore() {
				return false, m.loadMore()
			}
		case "enter":
			if m.cursor < len(m.sessions) {
				id := m.sessions[m.cursor].ID
				return false, func() tea.Msg { return openSessionMsg{sessionID: id} }
			}
		case "tab", "f":
			m.filterIdx = (m.filterIdx + 1) % len(statusFilters)
			m.cursor = 0
			return false, m.load()
		case "r":
			return false, m.load()
		case "x":
			return false, m.deleteSelected()
		case "n":
			m.composing = true
			return false, m.compose.Focus()
		case "s":
			return true, nil
		}
	}
	if m.composing {
		var cmd tea.Cmd
		m.compose, cmd = m.compose.Update(msg)
		return false, cmd
	}
	return false, nil
}

func (m *listModel) updateCompose(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.composing = false
		m.compose.Blur()
		return nil
	case "ctrl+s", "ctrl+enter":
		task := strings.TrimSpace(m.compose.Value())
		if task == "" {
			return showToast("task cannot be empty", true)
		}
		// The session screen owns the start call: it routes a balance
		// refusal to the paywall instead of a toast.
		m.composing = false
		m.compose.Reset()
		m.compose.Blur()
		return func() tea.Msg { return openSessionMsg{task: task} }
	}
	var cmd tea.Cmd
	m.compose, cmd = m.compose.Update(msg)
	return cmd
}

func (m *listModel) view() string {
	var b strings.Builder
	b.WriteString(m.th.Header.Render("TaskPilot"))
	b.WriteString("\n")

	filter := statusFilters[m.filterIdx]
	label := "All"
	if filter != "" {
		label = StatusLabel(filter)
	}
	b.WriteString(m.th.StatusRow.Render("filter: " + label))
	b.WriteString("\n\n")

	if m.composing {
		b.WriteString(m.th.InputLabel.Render("New task"))
		b.WriteString("\n")
		b.WriteString(m.th.InputBox.Render(m.compose.View()))
		b.WriteString("\n")
		b.WriteString(m.th.Footer.Render("ctrl+s start · esc cancel"))
		return b.String()
	}

	if m.loading && len(m.sessions) == 0 {
		b.WriteString(m.th.Muted.Render("Loading sessions..."))
		b.WriteString("\n")
	} else if len(m.sessions) == 0 {
		b.WriteString(m.th.Muted.Render("No sessions. Press n to start one."))
		b.WriteString("\n")
	}

	maxName := m.width - 30
	if maxName < 16 {
		maxName = 16
	}
	for i, s := range m.sessions {
		name := s.Name
		if name == "" {
			name = s.ID
		}
		line := fmt.Sprintf("%s %-*s %-12s $%.2f",
			m.th.StatusDot(string(s.Status)),
			maxName, truncate(name, maxName),
			StatusLabel(s.Status),
			s.Cost)
		if n := len(s.Files); n > 0 {
			line += fmt.Sprintf("  [%d file(s)]", n)
		}
		if i == m.cursor {
			b.WriteString(m.th.Selected.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	if m.app.Sessions.HasMore() {
		b.WriteString(m.th.Muted.Render("  ... more (scroll down)"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.th.Footer.Render("enter open · n new · x delete · tab filter · r refresh · s settings · q quit"))
	return b.String()
}
