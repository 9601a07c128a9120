package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// toast is the transient one-line notification at the bottom of every
// screen. Command failures land here; polling errors never do.
type toast struct {
	text  string
	isErr bool
	seq   int
}

type toastMsg struct {
	text  string
	isErr bool
}

type toastExpireMsg struct{ seq int }

func showToast(text string, isErr bool) tea.Cmd {
	return func() tea.Msg { return toastMsg{text: text, isErr: isErr} }
}

func (t *toast) set(msg toastMsg) tea.Cmd {
	t.text = msg.text
	t.isErr = msg.isErr
	t.seq++
	seq := t.seq
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return toastExpireMsg{seq: seq}
	})
}

func (t *toast) expire(msg toastExpireMsg) {
	if msg.seq == t.seq {
		t.text = ""
	}
}

func (t *toast) view(th Theme) string {
	if t.text == "" {
		return ""
	}
	if t.isErr {
		return th.ToastErr.Render(t.text)
	}
	return th.Toast.Render(t.text)
}
