package app

import (
	"sync"

	"taskpilot/internal/api"
)

// DraftSet holds in-progress answers to human-input requests, keyed by
// message index. It lives only as long as one session view: submit or
// teardown discards it.
//
// Reconciliation rule, applied on every poll: a server echo of a field the
// user is editing must not clobber the local value, but a server-supplied
// non-empty value means the field was answered elsewhere and wins. Fields
// the server adds appear; fields it drops disappear.
type DraftSet struct {
	mu        sync.Mutex
	drafts    map[int][]api.HumanInput
	submitted map[int]bool
}

func NewDraftSet() *DraftSet {
	return &DraftSet{
		drafts:    make(map[int][]api.HumanInput),
		submitted: make(map[int]bool),
	}
}

// Reconcile merges the latest transcript into the draft set.
func (d *DraftSet) Reconcile(messages []api.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, msg := range messages {
		if len(msg.HumanInput) == 0 {
			continue
		}
		existing, ok := d.drafts[i]
		if !ok {
			seeded := make([]api.HumanInput, len(msg.HumanInput))
			copy(seeded, msg.HumanInput)
			d.drafts[i] = seeded
			continue
		}
		merged := make([]api.HumanInput, len(msg.HumanInput))
		for j, in := range msg.HumanInput {
			merged[j] = in
			if in.Value == "" {
				if prev, found := find(existing, in.Title); found {
					merged[j].Value = prev.Value
				}
			}
		}
		d.drafts[i] = merged
	}
}

func find(inputs []api.HumanInput, title string) (api.HumanInput, bool) {
	for _, in := range inputs {
		if in.Title == title {
			return in, true
		}
	}
	return api.HumanInput{}, false
}

// SetValue records a keystroke-level edit to one field.
func (d *DraftSet) SetValue(messageIndex int, title, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for j, in := range d.drafts[messageIndex] {
		if in.Title == title {
			d.drafts[messageIndex][j].Value = value
			return
		}
	}
	d.drafts[messageIndex] = append(d.drafts[messageIndex], api.HumanInput{Title: title, Value: value})
}

// Value returns the current draft value for one field.
func (d *DraftSet) Value(messageIndex int, title string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if in, ok := find(d.drafts[messageIndex], title); ok {
		return in.Value
	}
	return ""
}

// Merged builds the submission payload for messageIndex in the server's
// field order, filling each request with the draft value.
func (d *DraftSet) Merged(messageIndex int, requests []api.HumanInput) []api.HumanInput {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]api.HumanInput, len(requests))
	for j, req := range requests {
		out[j] = req
		if in, ok := find(d.drafts[messageIndex], req.Title); ok {
			out[j].Value = in.Value
		} else {
			out[j].Value = ""
		}
	}
	return out
}

// MarkSubmitted flips the form at messageIndex to read-only ahead of the
// next poll confirming the values.
func (d *DraftSet) MarkSubmitted(messageIndex int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitted[messageIndex] = true
}

// Editable reports whether the form for messageIndex should accept edits:
// never after a successful submit, and not once any server field carries a
// value.
func (d *DraftSet) Editable(messageIndex int, inputs []api.HumanInput) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.submitted[messageIndex] {
		return false
	}
	return !api.Answered(inputs)
}
