package app

import (
	"context"
	"errors"
	"testing"

	"taskpilot/internal/api"
)

type fakeListBackend struct {
	pages     map[int]*api.SessionPage
	listErr   error
	deleteErr error

	gotStatus api.SessionStatus
	deleted   []string
}

func (f *fakeListBackend) ListSessions(ctx context.Context, page, limit int, status api.SessionStatus) (*api.SessionPage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.gotStatus = status
	if p, ok := f.pages[page]; ok {
		return p, nil
	}
	return &api.SessionPage{TotalPages: 1}, nil
}

func (f *fakeListBackend) DeleteSession(ctx context.Context, sessionID string) error {
	f.deleted = append(f.deleted, sessionID)
	return f.deleteErr
}

func listSession(id, lastAction string) api.Session {
	return api.Session{ID: id, Status: api.StatusCompleted, LastActionDate: lastAction}
}

func TestRefreshReplacesListAndFilter(t *testing.T) {
	backend := &fakeListBackend{pages: map[int]*api.SessionPage{
		1: {Sessions: []api.Session{listSession("a", ""), listSession("b", "")}, TotalPages: 2},
	}}
	l := NewSessionList(backend, 2)

	if err := l.Refresh(context.Background(), api.StatusCompleted); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if backend.gotStatus != api.StatusCompleted {
		t.Fatalf("filter not forwarded: %q", backend.gotStatus)
	}
	if got := len(l.Sessions()); got != 2 {
		t.Fatalf("sessions = %d", got)
	}
	if !l.HasMore() {
		t.Fatalf("two pages means more to load")
	}
}

func TestLoadMoreAppendsAndStopsAtLastPage(t *testing.T) {
	backend := &fakeListBackend{pages: map[int]*api.SessionPage{
		1: {Sessions: []api.Session{listSession("a", "")}, TotalPages: 2},
		2: {Sessions: []api.Session{listSession("b", "")}, TotalPages: 2},
	}}
	l := NewSessionList(backend, 1)
	ctx := context.Background()

	if err := l.Refresh(ctx, ""); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := l.LoadMore(ctx); err != nil {
		t.Fatalf("load more: %v", err)
	}
	if got := len(l.Sessions()); got != 2 {
		t.Fatalf("sessions = %d, want 2", got)
	}
	if l.HasMore() {
		t.Fatalf("no pages left")
	}

	// On the last page LoadMore is a no-op, not an error.
	if err := l.LoadMore(ctx); err != nil {
		t.Fatalf("no-op load more: %v", err)
	}
	if got := len(l.Sessions()); got != 2 {
		t.Fatalf("no-op appended: %d", got)
	}
}

func TestDeleteOptimisticSuccess(t *testing.T) {
	backend := &fakeListBackend{pages: map[int]*api.SessionPage{
		1: {Sessions: []api.Session{listSession("a", ""), listSession("b", "")}, TotalPages: 1},
	}}
	l := NewSessionList(backend, 10)
	ctx := context.Background()
	l.Refresh(ctx, "")

	res := l.Delete(ctx, "a")
	if !res.Applied || res.RolledBack || res.Err != nil {
		t.Fatalf("result = %+v", res)
	}
	if got := l.Sessions(); len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("sessions = %+v", got)
	}
	if len(backend.deleted) != 1 || backend.deleted[0] != "a" {
		t.Fatalf("backend deletes = %v", backend.deleted)
	}
}

func TestDeleteRevertRestoresSortPosition(t *testing.T) {
	backend := &fakeListBackend{pages: map[int]*api.SessionPage{
		1: {Sessions: []api.Session{
			listSession("b", "2026-08-05T00:00:00Z"),
			listSession("a", "2026-08-03T00:00:00Z"),
			listSession("c", "2026-08-01T00:00:00Z"),
		}, TotalPages: 1},
	}}
	l := NewSessionList(backend, 10)
	ctx := context.Background()
	l.Refresh(ctx, "")

	backend.deleteErr = errors.New("backend refused")
	res := l.Delete(ctx, "a")
	if !res.Applied || !res.RolledBack || res.Err == nil {
		t.Fatalf("result = %+v", res)
	}

	got := l.Sessions()
	want := []string{"b", "a", "c"}
	if len(got) != 3 {
		t.Fatalf("sessions = %d", len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("order[%d] = %s, want %s (full: %v)", i, got[i].ID, id, ids(got))
		}
	}
}

func TestDeleteUnknownIDIsNoop(t *testing.T) {
	backend := &fakeListBackend{pages: map[int]*api.SessionPage{
		1: {Sessions: []api.Session{listSession("a", "")}, TotalPages: 1},
	}}
	l := NewSessionList(backend, 10)
	ctx := context.Background()
	l.Refresh(ctx, "")

	res := l.Delete(ctx, "missing")
	if res.Applied || res.RolledBack || res.Err != nil {
		t.Fatalf("result = %+v", res)
	}
	if len(backend.deleted) != 0 {
		t.Fatalf("backend must not be called for unknown ids")
	}
}

func ids(sessions []api.Session) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.ID
	}
	return out
}
