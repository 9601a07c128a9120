package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskpilot/internal/api"
)

// ListAPI is the backend surface the session list needs.
type ListAPI interface {
	ListSessions(ctx context.Context, page, limit int, status api.SessionStatus) (*api.SessionPage, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// CommandResult describes the outcome of an optimistic mutation: whether
// the local change was applied, and whether it had to be undone after the
// backend refused.
type CommandResult struct {
	Applied    bool
	RolledBack bool
	Err        error
}

// SessionList is the in-memory session index backing the list screen,
// sorted by last activity, newest first. Deletion is optimistic with an
// order-preserving revert.
type SessionList struct {
	backend  ListAPI
	pageSize int

	mu         sync.Mutex
	sessions   []api.Session
	page       int
	totalPages int
	filter     api.SessionStatus
}

func NewSessionList(backend ListAPI, pageSize int) *SessionList {
	if pageSize <= 0 {
		pageSize = 12
	}
	return &SessionList{backend: backend, pageSize: pageSize, totalPages: 1}
}

// Sessions returns a copy of the current list.
func (l *SessionList) Sessions() []api.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]api.Session, len(l.sessions))
	copy(out, l.sessions)
	return out
}

// Filter returns the active status filter, empty for all.
func (l *SessionList) Filter() api.SessionStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

// Refresh reloads page one under the given status filter.
func (l *SessionList) Refresh(ctx context.Context, filter api.SessionStatus) error {
	page, err := l.backend.ListSessions(ctx, 1, l.pageSize, filter)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions = page.Sessions
	l.page = 1
	l.totalPages = page.TotalPages
	l.filter = filter
	return nil
}

// LoadMore appends the next page. It is a no-op on the last page.
func (l *SessionList) LoadMore(ctx context.Context) error {
	l.mu.Lock()
	next := l.page + 1
	if l.page >= l.totalPages {
		l.mu.Unlock()
		return nil
	}
	filter := l.filter
	l.mu.Unlock()

	page, err := l.backend.ListSessions(ctx, next, l.pageSize, filter)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions = append(l.sessions, page.Sessions...)
	l.page = next
	l.totalPages = page.TotalPages
	return nil
}

// HasMore reports whether more pages remain.
func (l *SessionList) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page < l.totalPages
}

// Delete removes the session locally, then asks the backend. On failure
// the session is re-inserted at its original sort position by re-sorting
// on lastActionDate, which is the list's only ordering contract.
func (l *SessionList) Delete(ctx context.Context, sessionID string) CommandResult {
	l.mu.Lock()
	var removed *api.Session
	kept := l.sessions[:0]
	for _, s := range l.sessions {
		if s.ID == sessionID && removed == nil {
			cp := s
			removed = &cp
			continue
		}
		kept = append(kept, s)
	}
	l.sessions = kept
	l.mu.Unlock()

	if removed == nil {
		return CommandResult{}
	}

	if err := l.backend.DeleteSession(ctx, sessionID); err != nil {
		l.mu.Lock()
		l.sessions = append(l.sessions, *removed)
		sortByLastAction(l.sessions)
		l.mu.Unlock()
		return CommandResult{Applied: true, RolledBack: true, Err: err}
	}
	return CommandResult{Applied: true}
}

func sortByLastAction(sessions []api.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return actionTime(sessions[i]).After(actionTime(sessions[j]))
	})
}

func actionTime(s api.Session) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s.LastActionDate); err == nil {
			return t
		}
	}
	return time.Time{}
}
