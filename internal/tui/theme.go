package tui

import (
	"github.com/charmbracelet/lipgloss"
)

type ThemeName string

const (
	ThemeDark  ThemeName = "dark"
	ThemeLight ThemeName = "light"
)

// Theme bundles every style the screens use so switching is one swap.
type Theme struct {
	Name ThemeName

	TextPrimary lipgloss.Color
	TextMuted   lipgloss.Color
	Accent      lipgloss.Color
	Success     lipgloss.Color
	Warn        lipgloss.Color
	Error       lipgloss.Color
	Border      lipgloss.Color

	Header    lipgloss.Style
	StatusRow lipgloss.Style
	Footer    lipgloss.Style
	Toast     lipgloss.Style
	ToastErr  lipgloss.Style

	UserMsg      lipgloss.Style
	AssistantMsg lipgloss.Style
	StepLabel    lipgloss.Style
	DoneLabel    lipgloss.Style
	FileCard     lipgloss.Style
	InputBox     lipgloss.Style
	InputLabel   lipgloss.Style
	InputDesc    lipgloss.Style
	Muted        lipgloss.Style
	Selected     lipgloss.Style
}

func NewTheme(name string) Theme {
	switch ThemeName(name) {
	case ThemeLight:
		return newLightTheme()
	default:
		return newDarkTheme()
	}
}

func newDarkTheme() Theme {
	t := Theme{
		Name:        ThemeDark,
		TextPrimary: lipgloss.Color("#F8FAFC"),
		TextMuted:   lipgloss.Color("#94A3B8"),
		Accent:      lipgloss.Color("#3B82F6"),
		Success:     lipgloss.Color("#10B981"),
		Warn:        lipgloss.Color("#F59E0B"),
		Error:       lipgloss.Color("#EF4444"),
		Border:      lipgloss.Color("#334155"),
	}
	return t.build()
}

func newLightTheme() Theme {
	t := Theme{
		Name:        ThemeLight,
		TextPrimary: lipgloss.Color("#0F172A"),
		TextMuted:   lipgloss.Color("#64748B"),
		Accent:      lipgloss.Color("#2563EB"),
		Success:     lipgloss.Color("#059669"),
		Warn:        lipgloss.Color("#D97706"),
		Error:       lipgloss.Color("#DC2626"),
		Border:      lipgloss.Color("#CBD5E1"),
	}
	return t.build()
}

func (t Theme) build() Theme {
	t.Header = lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(t.Border).
		Padding(0, 1)
	t.StatusRow = lipgloss.NewStyle().Foreground(t.TextMuted).Padding(0, 1)
	t.Footer = lipgloss.NewStyle().Foreground(t.TextMuted).Padding(0, 1)
	t.Toast = lipgloss.NewStyle().Foreground(t.Success).Padding(0, 1)
	t.ToastErr = lipgloss.NewStyle().Foreground(t.Error).Padding(0, 1)

	t.UserMsg = lipgloss.NewStyle().Foreground(t.TextPrimary).
		Border(lipgloss.RoundedBorder()).BorderForeground(t.Accent).Padding(0, 1)
	t.AssistantMsg = lipgloss.NewStyle().Foreground(t.TextPrimary).
		Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).Padding(0, 1)
	t.StepLabel = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.DoneLabel = lipgloss.NewStyle().Bold(true).Foreground(t.Success)
	t.FileCard = lipgloss.NewStyle().Foreground(t.TextPrimary).
		Border(lipgloss.NormalBorder()).BorderForeground(t.Border).Padding(0, 1)
	t.InputBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).Padding(0, 1)
	t.InputLabel = lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary)
	t.InputDesc = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.Muted = lipgloss.NewStyle().Foreground(t.TextMuted)
	t.Selected = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	return t
}

// StatusDot returns the colored indicator for a session status string.
func (t Theme) StatusDot(status string) string {
	color := t.Error
	switch status {
	case "active":
		color = t.Success
	case "humanInput":
		color = t.Warn
	case "completed":
		color = t.Accent
	}
	return lipgloss.NewStyle().Foreground(color).Render("●")
}
