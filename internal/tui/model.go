package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"taskpilot/internal/app"
)

type screen int

const (
	screenList screen = iota
	screenSession
	screenSettings
)

const requestTimeout = 30 * time.Second

// Model is the root TUI state: one active screen plus shared chrome.
type Model struct {
	app *app.Application
	th  Theme
	md  *MarkdownRenderer

	width  int
	height int
	screen screen
	toast  toast

	list     listModel
	session  *sessionModel
	settings settingsModel
}

func New(application *app.Application) *Model {
	th := NewTheme(application.Theme())
	m := &Model{
		app:    application,
		th:     th,
		md:     NewMarkdownRenderer(th.Name),
		width:  80,
		height: 24,
	}
	m.list = newListModel(application, th)
	m.settings = newSettingsModel(application, th)
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.list.load(),
		loadUser(m.app),
	)
}

type userLoadedMsg struct{ err error }

func loadUser(a *app.Application) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return userLoadedMsg{err: a.Users.Load(ctx)}
	}
}

type openSessionMsg struct {
	sessionID string
	task      string
}

type backToListMsg struct{}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.setSize(msg.Width, msg.Height)
		if m.session != nil {
			m.session.setSize(msg.Width, msg.Height)
		}
		m.settings.setSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		}

	case toastMsg:
		return m, m.toast.set(msg)

	case toastExpireMsg:
		m.toast.expire(msg)
		return m, nil

	case userLoadedMsg:
		// The settings screen reads through the store; nothing to copy.
		return m, nil

	case openSessionMsg:
		sm := newSessionModel(m.app, m.th, m.md)
		sm.setSize(m.width, m.height)
		m.session = sm
		m.screen = screenSession
		if msg.sessionID != "" {
			return m, sm.open(msg.sessionID)
		}
		return m, sm.start(msg.task)

	case backToListMsg:
		m.session = nil
		m.screen = screenList
		return m, m.list.load()
	}

	switch m.screen {
	case screenSession:
		if m.session == nil {
			m.screen = screenList
			return m, nil
		}
		cmd := m.session.update(msg)
		return m, cmd
	case screenSettings:
		done, cmd := m.settings.update(msg)
		if done {
			m.screen = screenList
		}
		return m, cmd
	default:
		goSettings, cmd := m.list.update(msg)
		if goSettings {
			m.screen = screenSettings
			return m, tea.Batch(cmd, m.settings.enter())
		}
		return m, cmd
	}
}

func (m *Model) View() string {
	var body string
	switch m.screen {
	case screenSession:
		if m.session != nil {
			body = m.session.view()
		}
	case screenSettings:
		body = m.settings.view()
	default:
		body = m.list.view()
	}
	if t := m.toast.view(m.th); t != "" {
		body += "\n" + t
	}
	return body
}
