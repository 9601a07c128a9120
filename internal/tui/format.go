package tui

import (
	"fmt"
	"strings"

	"taskpilot/internal/api"
)

// StatusLabel is the user-facing name for a session status.
func StatusLabel(status api.SessionStatus) string {
	switch status {
	case api.StatusActive:
		return "Active"
	case api.StatusHumanInput:
		return "Help Needed"
	case api.StatusCompleted:
		return "Completed"
	case api.StatusFailed:
		return "Failed"
	case api.StatusStopped:
		return "Stopped"
	default:
		return "Inactive"
	}
}

// StepLabel numbers an assistant turn, or marks it as the completion.
// messages[:i+1] supplies the assistant count the way the transcript
// numbers steps.
func StepLabel(messages []api.Message, i int) string {
	msg := messages[i]
	if msg.Completed() {
		return "Task Completed"
	}
	steps := 0
	for _, m := range messages[:i+1] {
		if m.Role == "assistant" {
			steps++
		}
	}
	return fmt.Sprintf("Step %d", steps)
}

// FormatTranscript renders the message history. Editable human-input
// forms are rendered live by the session screen; this handles everything
// else, including answered forms shown read-only.
func FormatTranscript(th Theme, md *MarkdownRenderer, messages []api.Message, quality api.ResponseQuality, width int) string {
	if len(messages) == 0 {
		return th.Muted.Render("No messages yet...")
	}
	inner := width - 4
	if inner < 20 {
		inner = 20
	}

	var b strings.Builder
	for i, msg := range messages {
		if msg.Role == "user" {
			b.WriteString(th.UserMsg.Width(inner).Render("You: " + msg.Content))
			b.WriteString("\n")
			continue
		}

		b.WriteString(th.StepLabel.Render("── " + StepLabel(messages, i) + " ──"))
		b.WriteString("\n")

		if api.Answered(msg.HumanInput) {
			b.WriteString(renderAnsweredInputs(th, msg.HumanInput, inner))
		}

		if !msg.Completed() && msg.Content != "" {
			b.WriteString(th.AssistantMsg.Width(inner).Render(msg.Content))
			b.WriteString("\n")
		}

		if msg.AgentData != nil {
			for _, action := range msg.AgentData.Action {
				if action.Done != nil {
					text := md.Render(action.Done.Text, inner)
					b.WriteString(th.AssistantMsg.Width(inner).Render(text))
					b.WriteString("\n")
					b.WriteString(th.Muted.Render("  rate this answer: " + ratingHint(quality)))
					b.WriteString("\n")
				}
				if action.SaveToFile != nil {
					card := fmt.Sprintf("file: %s  (v view · d download)", action.SaveToFile.FilePath)
					b.WriteString(th.FileCard.Width(inner).Render(card))
					b.WriteString("\n")
				}
			}
		}
	}
	return b.String()
}

func renderAnsweredInputs(th Theme, inputs []api.HumanInput, width int) string {
	var b strings.Builder
	for _, in := range inputs {
		line := th.InputLabel.Render(in.Title) + " " + in.Value
		b.WriteString(th.FileCard.Width(width).Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func ratingHint(quality api.ResponseQuality) string {
	switch quality {
	case api.QualityGood:
		return "[+] good  [-] bad (marked good)"
	case api.QualityBad:
		return "[+] good  [-] bad (marked bad)"
	default:
		return "+ good / - bad"
	}
}

// FileLines lists session artifacts for the files panel.
func FileLines(files []api.SessionFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Filename)
	}
	return out
}

// truncate shortens on rune boundaries so multibyte names stay valid.
func truncate(s string, max int) string {
	if max <= 3 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
