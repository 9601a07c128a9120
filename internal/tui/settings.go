package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"taskpilot/internal/api"
	"taskpilot/internal/app"
)

// settingsModel shows the profile and edits account-level preferences.
// Notification toggles round-trip through the backend before the view
// updates; only the theme changes instantly.
type settingsModel struct {
	app *app.Application
	th  Theme

	width      int
	height     int
	confirming bool
	busy       bool
}

type notificationsSavedMsg struct{ err error }
type accountDeletedMsg struct{ err error }
type userRefreshedMsg struct{ err error }

func newSettingsModel(a *app.Application, th Theme) settingsModel {
	return settingsModel{app: a, th: th}
}

func (m *settingsModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

// enter refreshes the profile when the screen opens.
func (m *settingsModel) enter() tea.Cmd {
	a := m.app
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return userRefreshedMsg{err: a.Users.Refresh(ctx)}
	}
}

func (m *settingsModel) update(msg tea.Msg) (bool, tea.Cmd) {
	switch msg := msg.(type) {
	case userRefreshedMsg:
		if msg.err != nil {
			return false, showToast("could not load profile: "+msg.err.Error(), true)
		}
		return false, nil

	case notificationsSavedMsg:
		m.busy = false
		if msg.err != nil {
			return false, showToast("could not save notifications: "+msg.err.Error(), true)
		}
		return false, showToast("notifications updated", false)

	case accountDeletedMsg:
		m.busy = false
		if msg.err != nil {
			return false, showToast("could not delete account: "+msg.err.Error(), true)
		}
		return false, tea.Quit

	case tea.KeyMsg:
		if m.confirming {
			switch msg.String() {
			case "y":
				m.confirming = false
				m.busy = true
				a := m.app
				return false, func() tea.Msg {
					ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
					defer cancel()
					return accountDeletedMsg{err: a.Users.DeleteAccount(ctx)}
				}
			default:
				m.confirming = false
				return false, nil
			}
		}
		switch msg.String() {
		case "esc", "q":
			return true, nil
		case "e":
			return false, m.toggle(func(n *api.NotificationSettings) { n.Email = !n.Email })
		case "p":
			return false, m.toggle(func(n *api.NotificationSettings) { n.Mobile = !n.Mobile })
		case "t":
			next := "light"
			if m.th.Name == ThemeLight {
				next = "dark"
			}
			m.app.SetTheme(next)
			m.th = NewTheme(next)
			return false, showToast("theme set to "+next+", restart to apply everywhere", false)
		case "o":
			m.app.SignOut()
			return false, tea.Quit
		case "D":
			m.confirming = true
			return false, nil
		}
	}
	return false, nil
}

func (m *settingsModel) toggle(mutate func(*api.NotificationSettings)) tea.Cmd {
	user := m.app.Users.User()
	if user == nil || m.busy {
		return nil
	}
	settings := user.NotificationSettings
	mutate(&settings)
	m.busy = true
	a := m.app
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return notificationsSavedMsg{err: a.Users.SetNotifications(ctx, settings)}
	}
}

func (m *settingsModel) view() string {
	var b strings.Builder
	b.WriteString(m.th.Header.Render("Settings"))
	b.WriteString("\n\n")

	user := m.app.Users.User()
	if user == nil {
		b.WriteString(m.th.Muted.Render("Not signed in."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.th.InputLabel.Render("Account"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("  email    %s\n", user.Email))
		b.WriteString(fmt.Sprintf("  balance  $%.2f\n", user.Balance))
		if user.Plan != "" {
			b.WriteString(fmt.Sprintf("  plan     %s\n", user.Plan))
		}
		b.WriteString("\n")
		b.WriteString(m.th.InputLabel.Render("Notifications"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("  [e] email   %s\n", onOff(user.NotificationSettings.Email)))
		b.WriteString(fmt.Sprintf("  [p] mobile  %s\n", onOff(user.NotificationSettings.Mobile)))
	}

	b.WriteString("\n")
	b.WriteString(m.th.InputLabel.Render("Appearance"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  [t] theme   %s\n", m.th.Name))
	b.WriteString("\n")

	if m.confirming {
		b.WriteString(m.th.ToastErr.Render("Delete your account and all sessions? y to confirm, any other key to cancel"))
		b.WriteString("\n")
	} else if m.busy {
		b.WriteString(m.th.Muted.Render("saving..."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.th.Footer.Render("o sign out · D delete account · esc back"))
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
