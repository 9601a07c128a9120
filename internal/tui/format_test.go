package tui

import (
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"taskpilot/internal/api"
)

// glamour styles the rendered done text with ANSI escapes, which would
// split plain substrings; strip them before asserting on the text.
var ansiEscapes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiEscapes.ReplaceAllString(s, "")
}

func assistant(content string) api.Message {
	return api.Message{Role: "assistant", Content: content}
}

func doneMessage(text string) api.Message {
	return api.Message{Role: "assistant", AgentData: &api.AgentData{
		Action: []api.Action{{Done: &api.DonePayload{Text: text}}},
	}}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		status api.SessionStatus
		want   string
	}{
		{api.StatusActive, "Active"},
		{api.StatusHumanInput, "Help Needed"},
		{api.StatusCompleted, "Completed"},
		{api.StatusFailed, "Failed"},
		{api.StatusStopped, "Stopped"},
		{api.StatusInactive, "Inactive"},
	}
	for _, tc := range tests {
		if got := StatusLabel(tc.status); got != tc.want {
			t.Fatalf("StatusLabel(%s) = %q, want %q", tc.status, got, tc.want)
		}
	}
}

func TestStepLabelCountsAssistantTurns(t *testing.T) {
	messages := []api.Message{
		{Role: "user", Content: "do the thing"},
		assistant("working"),
		{Role: "user", Content: "also this"},
		assistant("more work"),
		doneMessage("all finished"),
	}

	if got := StepLabel(messages, 1); got != "Step 1" {
		t.Fatalf("first assistant turn = %q", got)
	}
	if got := StepLabel(messages, 3); got != "Step 2" {
		t.Fatalf("second assistant turn = %q", got)
	}
	if got := StepLabel(messages, 4); got != "Task Completed" {
		t.Fatalf("done turn = %q", got)
	}
}

func TestFormatTranscriptShowsDoneTextNotContent(t *testing.T) {
	th := NewTheme("dark")
	md := NewMarkdownRenderer(th.Name)

	done := doneMessage("final answer")
	done.Content = "internal scratch text"
	messages := []api.Message{
		{Role: "user", Content: "summarize"},
		done,
	}

	out := stripANSI(FormatTranscript(th, md, messages, api.QualityNone, 80))
	if !strings.Contains(out, "final answer") {
		t.Fatalf("done text missing:\n%s", out)
	}
	if strings.Contains(out, "internal scratch text") {
		t.Fatalf("completed message must hide raw content:\n%s", out)
	}
	if !strings.Contains(out, "rate this answer") {
		t.Fatalf("rating hint missing:\n%s", out)
	}
}

func TestFormatTranscriptShowsAnsweredInputsReadOnly(t *testing.T) {
	th := NewTheme("dark")
	md := NewMarkdownRenderer(th.Name)

	messages := []api.Message{
		{Role: "assistant", HumanInput: []api.HumanInput{
			{Title: "Repository", Value: "acme/site"},
		}},
	}

	out := FormatTranscript(th, md, messages, api.QualityNone, 80)
	if !strings.Contains(out, "Repository") || !strings.Contains(out, "acme/site") {
		t.Fatalf("answered input missing:\n%s", out)
	}
}

func TestFormatTranscriptEmpty(t *testing.T) {
	th := NewTheme("dark")
	md := NewMarkdownRenderer(th.Name)
	out := FormatTranscript(th, md, nil, api.QualityNone, 80)
	if !strings.Contains(out, "No messages yet") {
		t.Fatalf("empty transcript placeholder missing:\n%s", out)
	}
}

func TestRatingHintReflectsQuality(t *testing.T) {
	if hint := ratingHint(api.QualityGood); !strings.Contains(hint, "marked good") {
		t.Fatalf("good hint = %q", hint)
	}
	if hint := ratingHint(api.QualityBad); !strings.Contains(hint, "marked bad") {
		t.Fatalf("bad hint = %q", hint)
	}
	if hint := ratingHint(api.QualityNone); strings.Contains(hint, "marked") {
		t.Fatalf("unrated hint = %q", hint)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate short = %q", got)
	}
	if got := truncate("a very long session name", 10); got != "a very ..." {
		t.Fatalf("truncate long = %q", got)
	}
}

func TestTruncateKeepsMultibyteRunesIntact(t *testing.T) {
	name := "セッションのとても長い名前です"
	got := truncate(name, 8)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate produced invalid UTF-8: %q", got)
	}
	if got != "セッション..." {
		t.Fatalf("truncate multibyte = %q", got)
	}
	if r := []rune(got); len(r) != 8 {
		t.Fatalf("rune length = %d, want 8", len(r))
	}
}
