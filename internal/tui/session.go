package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"taskpilot/internal/api"
	"taskpilot/internal/app"
)

type sessionFocus int

const (
	focusTranscript sessionFocus = iota
	focusCompose
	focusForm
	focusPreview
)

// sessionModel is the live session view: a polled transcript, a compose
// box, the pending human-input form, and the files row.
type sessionModel struct {
	app    *app.Application
	th     Theme
	md     *MarkdownRenderer
	syncer *app.Syncer
	drafts *app.DraftSet

	width  int
	height int
	focus  sessionFocus

	transcript viewport.Model
	compose    textarea.Model
	sp         spinner.Model

	formIndex  int
	formFields []textinput.Model
	formInputs []api.HumanInput

	fileIdx int
	preview viewport.Model
	paywall bool
	polling bool
}

type pollTickMsg struct{}
type polledMsg struct {
	applied bool
	err     error
}
type messageSentMsg struct{ err error }
type stoppedMsg struct{ err error }
type ratedMsg struct {
	quality api.ResponseQuality
	err     error
}
type inputsSubmittedMsg struct {
	index int
	err   error
}
type previewLoadedMsg struct {
	name    string
	content string
	err     error
}
type downloadedMsg struct {
	path string
	err  error
}

func newSessionModel(a *app.Application, th Theme, md *MarkdownRenderer) *sessionModel {
	ta := textarea.New()
	ta.Placeholder = "Send a message..."
	ta.SetHeight(3)
	ta.CharLimit = 4000

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = th.Selected

	m := &sessionModel{
		app:        a,
		th:         th,
		md:         md,
		syncer:     a.NewSyncer(),
		drafts:     app.NewDraftSet(),
		transcript: viewport.New(80, 20),
		compose:    ta,
		sp:         sp,
		preview:    viewport.New(80, 20),
		formIndex:  -1,
	}
	return m
}

func (m *sessionModel) setSize(w, h int) {
	m.width = w
	m.height = h
	body := h - 10
	if body < 5 {
		body = 5
	}
	m.transcript.Width = w
	m.transcript.Height = body
	m.preview.Width = w
	m.preview.Height = h - 4
	m.compose.SetWidth(w - 4)
}

// open attaches to an existing session and begins polling.
func (m *sessionModel) open(sessionID string) tea.Cmd {
	m.syncer.Attach(sessionID)
	m.polling = true
	return tea.Batch(m.poll(), m.tick(), m.sp.Tick)
}

// start creates a session for the task and begins polling it.
func (m *sessionModel) start(task string) tea.Cmd {
	s := m.syncer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if _, err := s.Start(ctx, task); err != nil {
			return polledMsg{err: err}
		}
		return pollTickMsg{}
	}
}

func (m *sessionModel) tick() tea.Cmd {
	return tea.Tick(m.app.Config.PollInterval(), func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

func (m *sessionModel) poll() tea.Cmd {
	s := m.syncer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, applied, err := s.PollOnce(ctx)
		return polledMsg{applied: applied, err: err}
	}
}

func (m *sessionModel) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case pollTickMsg:
		m.polling = true
		// The next tick is scheduled before the fetch returns, so a slow
		// response never pauses the poll cadence. The generation guard in
		// the syncer keeps overlapping responses ordered.
		cmds := []tea.Cmd{m.poll()}
		if m.syncer.ShouldPoll() {
			// Duplicate spinner ticks are dropped by the spinner's own
			// tag guard, so resuming here after a start or send is safe.
			cmds = append(cmds, m.tick(), m.sp.Tick)
		} else {
			m.polling = false
		}
		return tea.Batch(cmds...)

	case polledMsg:
		if msg.err != nil {
			m.polling = false
			if errors.Is(msg.err, api.ErrInsufficientBalance) {
				m.paywall = true
				return nil
			}
			if errors.Is(msg.err, api.ErrSessionGone) {
				return tea.Batch(
					showToast("session no longer exists", true),
					func() tea.Msg { return backToListMsg{} },
				)
			}
			return showToast("sync error: "+msg.err.Error(), true)
		}
		if msg.applied {
			m.applySnapshot()
		}
		return nil

	case messageSentMsg:
		if msg.err != nil {
			if errors.Is(msg.err, api.ErrInsufficientBalance) {
				m.paywall = true
				return nil
			}
			return showToast("send failed: "+msg.err.Error(), true)
		}
		m.polling = true
		return tea.Batch(m.poll(), m.tick(), m.sp.Tick)

	case stoppedMsg:
		if msg.err != nil {
			return showToast("stop request failed: "+msg.err.Error(), true)
		}
		return showToast("session stopped", false)

	case ratedMsg:
		if msg.err != nil {
			return showToast("rating failed: "+msg.err.Error(), true)
		}
		m.applySnapshot()
		return nil

	case inputsSubmittedMsg:
		if msg.err != nil {
			return showToast("could not submit answers: "+msg.err.Error(), true)
		}
		m.drafts.MarkSubmitted(msg.index)
		m.clearForm()
		m.focus = focusTranscript
		m.applySnapshot()
		m.polling = true
		return tea.Batch(showToast("answers submitted", false), m.poll(), m.tick(), m.sp.Tick)

	case previewLoadedMsg:
		if msg.err != nil {
			return showToast("preview failed: "+msg.err.Error(), true)
		}
		m.preview.SetContent(m.md.Render(msg.content, m.width-2))
		m.preview.GotoTop()
		m.focus = focusPreview
		return nil

	case downloadedMsg:
		if msg.err != nil {
			return showToast("download failed: "+msg.err.Error(), true)
		}
		return showToast("saved to "+msg.path, false)

	case spinner.TickMsg:
		if !m.polling {
			return nil
		}
		var cmd tea.Cmd
		m.sp, cmd = m.sp.Update(msg)
		return cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	switch m.focus {
	case focusCompose:
		var cmd tea.Cmd
		m.compose, cmd = m.compose.Update(msg)
		return cmd
	case focusForm:
		for i := range m.formFields {
			if m.formFields[i].Focused() {
				var cmd tea.Cmd
				m.formFields[i], cmd = m.formFields[i].Update(msg)
				return cmd
			}
		}
		return nil
	}
	var cmd tea.Cmd
	m.transcript, cmd = m.transcript.Update(msg)
	return cmd
}

func (m *sessionModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.paywall {
		switch msg.String() {
		case "esc", "q", "enter":
			m.paywall = false
			return func() tea.Msg { return backToListMsg{} }
		}
		return nil
	}

	switch m.focus {
	case focusPreview:
		if msg.String() == "esc" || msg.String() == "q" {
			m.focus = focusTranscript
			return nil
		}
		var cmd tea.Cmd
		m.preview, cmd = m.preview.Update(msg)
		return cmd

	case focusCompose:
		return m.handleComposeKey(msg)

	case focusForm:
		return m.handleFormKey(msg)
	}

	switch msg.String() {
	case "esc", "q":
		return func() tea.Msg { return backToListMsg{} }
	case "m":
		// Terminal sessions take no further messages.
		if sess := m.syncer.Session(); sess != nil && sess.Status.Terminal() {
			return showToast("session is "+StatusLabel(sess.Status)+"; start a new task instead", true)
		}
		m.focus = focusCompose
		return m.compose.Focus()
	case "i":
		if m.formIndex >= 0 {
			m.focus = focusForm
			return m.formFields[0].Focus()
		}
		return nil
	case "S":
		s := m.syncer
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			return stoppedMsg{err: s.Stop(ctx)}
		}
	case "+":
		return m.rate(api.QualityGood)
	case "-":
		return m.rate(api.QualityBad)
	case "f":
		if files := m.files(); len(files) > 0 {
			m.fileIdx = (m.fileIdx + 1) % len(files)
		}
		return nil
	case "v":
		return m.previewFile()
	case "d":
		return m.downloadFile()
	}

	var cmd tea.Cmd
	m.transcript, cmd = m.transcript.Update(msg)
	return cmd
}

func (m *sessionModel) handleComposeKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.focus = focusTranscript
		m.compose.Blur()
		return nil
	case "ctrl+s", "ctrl+enter":
		text := strings.TrimSpace(m.compose.Value())
		// The box clears no matter what the backend says about the send.
		m.compose.Reset()
		m.focus = focusTranscript
		m.compose.Blur()
		if text == "" {
			return showToast("message cannot be empty", true)
		}
		s := m.syncer
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			return messageSentMsg{err: s.SendMessage(ctx, text)}
		}
	}
	var cmd tea.Cmd
	m.compose, cmd = m.compose.Update(msg)
	return cmd
}

func (m *sessionModel) handleFormKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.focus = focusTranscript
		for i := range m.formFields {
			m.formFields[i].Blur()
		}
		return nil
	case "tab", "down", "enter":
		m.cycleFormFocus(1)
		return nil
	case "shift+tab", "up":
		m.cycleFormFocus(-1)
		return nil
	case "ctrl+s":
		return m.submitForm()
	}

	for i := range m.formFields {
		if !m.formFields[i].Focused() {
			continue
		}
		var cmd tea.Cmd
		m.formFields[i], cmd = m.formFields[i].Update(msg)
		m.drafts.SetValue(m.formIndex, m.formInputs[i].Title, m.formFields[i].Value())
		return cmd
	}
	return nil
}

func (m *sessionModel) cycleFormFocus(dir int) {
	if len(m.formFields) == 0 {
		return
	}
	cur := 0
	for i := range m.formFields {
		if m.formFields[i].Focused() {
			cur = i
			m.formFields[i].Blur()
			break
		}
	}
	next := (cur + dir + len(m.formFields)) % len(m.formFields)
	m.formFields[next].Focus()
}

func (m *sessionModel) submitForm() tea.Cmd {
	idx := m.formIndex
	if idx < 0 {
		return nil
	}
	payload := m.drafts.Merged(idx, m.formInputs)
	s := m.syncer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return inputsSubmittedMsg{index: idx, err: s.SubmitHumanInput(ctx, idx, payload)}
	}
}

func (m *sessionModel) rate(q api.ResponseQuality) tea.Cmd {
	s := m.syncer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return ratedMsg{quality: q, err: s.Rate(ctx, q)}
	}
}

func (m *sessionModel) files() []api.SessionFile {
	if sess := m.syncer.Session(); sess != nil {
		return sess.Files
	}
	return nil
}

func (m *sessionModel) previewFile() tea.Cmd {
	files := m.files()
	if m.fileIdx >= len(files) {
		return nil
	}
	file := files[m.fileIdx]
	if !app.Previewable(file.Filename) {
		return showToast(file.Filename+" cannot be previewed, press d to download", true)
	}
	svc := m.app.Files
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		content, err := svc.Content(ctx, file)
		return previewLoadedMsg{name: file.Filename, content: content, err: err}
	}
}

func (m *sessionModel) downloadFile() tea.Cmd {
	files := m.files()
	if m.fileIdx >= len(files) {
		return nil
	}
	file := files[m.fileIdx]
	svc := m.app.Files
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		path, err := svc.Download(ctx, file)
		return downloadedMsg{path: path, err: err}
	}
}

// applySnapshot rebuilds the derived view state from the latest snapshot:
// the transcript text, the draft merge, and the live input form.
func (m *sessionModel) applySnapshot() {
	sess := m.syncer.Session()
	if sess == nil {
		return
	}
	m.drafts.Reconcile(sess.Messages)
	m.rebuildForm(sess.Messages)

	atBottom := m.transcript.AtBottom()
	m.transcript.SetContent(FormatTranscript(m.th, m.md, sess.Messages, sess.ResponseQuality, m.width))
	if atBottom {
		m.transcript.GotoBottom()
	}
	if m.fileIdx >= len(sess.Files) {
		m.fileIdx = 0
	}
}

// rebuildForm points the form at the newest editable human-input message,
// preserving field focus and draft values across polls.
func (m *sessionModel) rebuildForm(messages []api.Message) {
	idx := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if len(messages[i].HumanInput) > 0 && m.drafts.Editable(i, messages[i].HumanInput) {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.clearForm()
		return
	}
	inputs := messages[idx].HumanInput
	if idx == m.formIndex && len(inputs) == len(m.formInputs) {
		m.formInputs = inputs
		return
	}

	focused := -1
	for i := range m.formFields {
		if m.formFields[i].Focused() {
			focused = i
		}
	}
	m.formIndex = idx
	m.formInputs = inputs
	m.formFields = make([]textinput.Model, len(inputs))
	for i, in := range inputs {
		field := textinput.New()
		field.Placeholder = in.Description
		field.CharLimit = 1000
		field.SetValue(m.drafts.Value(idx, in.Title))
		if i == focused {
			field.Focus()
		}
		m.formFields[i] = field
	}
	if m.focus == focusForm && focused < 0 && len(m.formFields) > 0 {
		m.formFields[0].Focus()
	}
}

func (m *sessionModel) clearForm() {
	m.formIndex = -1
	m.formFields = nil
	m.formInputs = nil
	if m.focus == focusForm {
		m.focus = focusTranscript
	}
}

func (m *sessionModel) view() string {
	if m.paywall {
		box := m.th.InputBox.Width(m.width - 4).Render(
			m.th.InputLabel.Render("Out of balance") + "\n\n" +
				"Reload your balance to keep running tasks.\n" +
				m.th.Muted.Render("press esc to go back"))
		return box
	}
	if m.focus == focusPreview {
		return m.preview.View() + "\n" + m.th.Footer.Render("esc close · arrows scroll")
	}

	sess := m.syncer.Session()

	var b strings.Builder
	title := "Session"
	status := ""
	if sess != nil {
		if sess.Name != "" {
			title = sess.Name
		} else {
			title = sess.ID
		}
		status = StatusLabel(sess.Status)
	} else {
		status = "loading..."
	}
	if m.polling {
		status = m.sp.View() + " " + status
	}
	b.WriteString(m.th.Header.Render(truncate(title, m.width-4)))
	b.WriteString("\n")
	b.WriteString(m.th.StatusRow.Render(status))
	b.WriteString("\n")
	if sess != nil && sess.LastScreenshotURL != "" {
		b.WriteString(m.th.Muted.Render("screenshot: " + truncate(sess.LastScreenshotURL, m.width-14)))
		b.WriteString("\n")
	}

	b.WriteString(m.transcript.View())
	b.WriteString("\n")

	if m.formIndex >= 0 {
		b.WriteString(m.viewForm())
	}

	if files := m.files(); len(files) > 0 {
		names := make([]string, len(files))
		for i, f := range files {
			if i == m.fileIdx {
				names[i] = m.th.Selected.Render("[" + f.Filename + "]")
			} else {
				names[i] = f.Filename
			}
		}
		b.WriteString(m.th.StatusRow.Render("files: " + strings.Join(names, "  ")))
		b.WriteString("\n")
	}

	if m.focus == focusCompose {
		b.WriteString(m.th.InputBox.Render(m.compose.View()))
		b.WriteString("\n")
		b.WriteString(m.th.Footer.Render("ctrl+s send · esc cancel"))
	} else {
		b.WriteString(m.th.Footer.Render("m message · i answer · S stop · +/- rate · f/v/d files · esc back"))
	}
	return b.String()
}

func (m *sessionModel) viewForm() string {
	var b strings.Builder
	b.WriteString(m.th.InputLabel.Render("The agent needs your input"))
	b.WriteString("\n")
	for i, in := range m.formInputs {
		b.WriteString(m.th.InputLabel.Render(in.Title))
		if in.Description != "" {
			b.WriteString(" " + m.th.InputDesc.Render(in.Description))
		}
		b.WriteString("\n")
		b.WriteString(m.th.InputBox.Render(m.formFields[i].View()))
		b.WriteString("\n")
	}
	if m.focus == focusForm {
		b.WriteString(m.th.Footer.Render("tab next field · ctrl+s submit · esc done"))
	} else {
		b.WriteString(m.th.Muted.Render("press i to answer"))
	}
	b.WriteString("\n")
	return b.String()
}
