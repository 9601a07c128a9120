package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"taskpilot/internal/api"
)

// SessionAPI is the backend surface the sync engine needs. *api.Client
// satisfies it; tests substitute a scripted fake.
type SessionAPI interface {
	StartSession(ctx context.Context, task string, settings map[string]any) (string, error)
	GetSession(ctx context.Context, sessionID string) (*api.Session, error)
	SendMessage(ctx context.Context, sessionID, text string) error
	SubmitHumanInput(ctx context.Context, sessionID string, messageIndex int, responses []api.HumanInput) error
	StopSession(ctx context.Context, sessionID string) error
	UpdateResponseQuality(ctx context.Context, sessionID string, quality api.ResponseQuality) error
}

// Syncer keeps a local view of one session fresh while it runs. Poll
// responses may overlap; each fetch is stamped with a generation before the
// request goes out and a response is applied only if no newer generation
// has been applied yet, so the latest request wins regardless of arrival
// order. A stale response after teardown fails the same guard.
type Syncer struct {
	backend SessionAPI
	logger  *Logger

	mu         sync.Mutex
	sessionID  string
	session    *api.Session
	nextGen    uint64
	appliedGen uint64
	hardErr    error
	surfaced   bool
}

func NewSyncer(backend SessionAPI, logger *Logger) *Syncer {
	return &Syncer{backend: backend, logger: logger}
}

// Attach points the engine at an existing session without fetching it.
func (s *Syncer) Attach(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = sessionID
	s.session = nil
	s.appliedGen = 0
	s.nextGen = 0
	s.hardErr = nil
	s.surfaced = false
}

// Start creates a new session for task and attaches to it. A balance
// refusal comes back as api.ErrInsufficientBalance for the paywall path.
func (s *Syncer) Start(ctx context.Context, task string) (string, error) {
	if strings.TrimSpace(task) == "" {
		return "", api.ErrEmptyMessage
	}
	id, err := s.backend.StartSession(ctx, task, nil)
	if err != nil {
		return "", err
	}
	s.Attach(id)
	return id, nil
}

// SessionID returns the attached session, empty when none.
func (s *Syncer) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Session returns the last applied snapshot, nil before the first poll.
func (s *Syncer) Session() *api.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Status returns the local view of the session status.
func (s *Syncer) Status() api.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return api.StatusInactive
	}
	return s.session.Status
}

// PollOnce fetches a snapshot and applies it under the generation guard.
// applied is false when a newer response landed first or the engine was
// re-attached mid-flight. Transient errors are logged, not returned; a
// hard error (auth, session gone) is returned exactly once and marks the
// engine stopped.
func (s *Syncer) PollOnce(ctx context.Context) (snap *api.Session, applied bool, err error) {
	s.mu.Lock()
	if s.sessionID == "" || s.hardErr != nil {
		s.mu.Unlock()
		return nil, false, nil
	}
	id := s.sessionID
	s.nextGen++
	gen := s.nextGen
	s.mu.Unlock()

	sess, ferr := s.backend.GetSession(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID != id {
		return nil, false, nil
	}
	if ferr != nil {
		if api.Transient(ferr) {
			s.logger.Info("poll skipped transient error", map[string]interface{}{
				"session": id, "error": ferr.Error(),
			})
			return nil, false, nil
		}
		s.hardErr = ferr
		if s.surfaced {
			return nil, false, nil
		}
		s.surfaced = true
		return nil, false, ferr
	}
	if gen <= s.appliedGen {
		return sess, false, nil
	}
	// Local stopped is sticky: the optimistic transition is terminal and a
	// lagging snapshot must not resurrect the session.
	if s.session != nil && s.session.Status == api.StatusStopped {
		s.appliedGen = gen
		return sess, false, nil
	}
	s.appliedGen = gen
	s.session = sess
	return sess, true, nil
}

// ShouldPoll reports whether the timer should keep firing.
func (s *Syncer) ShouldPoll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID == "" || s.hardErr != nil {
		return false
	}
	if s.session == nil {
		// Nothing applied yet; keep going until the first snapshot lands.
		return true
	}
	return s.session.Status.Polling()
}

// Run polls on interval until the session reaches a terminal status, a
// hard error surfaces, or ctx is cancelled. onUpdate receives each applied
// snapshot; onError receives the single surfaced hard error. Used by the
// headless watch command; the TUI drives PollOnce from its own tick.
func (s *Syncer) Run(ctx context.Context, interval time.Duration, onUpdate func(*api.Session), onError func(error)) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap, applied, err := s.PollOnce(ctx)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if applied && onUpdate != nil {
			onUpdate(snap)
		}
		if !s.ShouldPoll() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SendMessage appends a user message. Validation happens before any
// request; the compose field is the caller's to clear.
func (s *Syncer) SendMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return api.ErrEmptyMessage
	}
	s.mu.Lock()
	id := s.sessionID
	s.mu.Unlock()
	return s.backend.SendMessage(ctx, id, text)
}

// Stop sends the stop command and flips the local status to stopped
// immediately. There is no rollback: if the backend call fails the local
// view stays stopped and the failure is only logged.
func (s *Syncer) Stop(ctx context.Context) error {
	s.mu.Lock()
	id := s.sessionID
	if s.session != nil {
		s.session.Status = api.StatusStopped
	} else if id != "" {
		s.session = &api.Session{ID: id, Status: api.StatusStopped}
	}
	s.mu.Unlock()

	if id == "" {
		return nil
	}
	if err := s.backend.StopSession(ctx, id); err != nil {
		s.logger.Error("stop session failed", map[string]interface{}{
			"session": id, "error": err.Error(),
		})
		return err
	}
	return nil
}

// Rate records the thumbs rating, updating the local snapshot first. The
// call is always re-sent even when the value is unchanged.
func (s *Syncer) Rate(ctx context.Context, quality api.ResponseQuality) error {
	s.mu.Lock()
	id := s.sessionID
	if s.session != nil {
		s.session.ResponseQuality = quality
	}
	s.mu.Unlock()
	if id == "" {
		return nil
	}
	return s.backend.UpdateResponseQuality(ctx, id, quality)
}

// SubmitHumanInput forwards answered input fields for messageIndex.
func (s *Syncer) SubmitHumanInput(ctx context.Context, messageIndex int, responses []api.HumanInput) error {
	s.mu.Lock()
	id := s.sessionID
	s.mu.Unlock()
	return s.backend.SubmitHumanInput(ctx, id, messageIndex, responses)
}

// Err returns the surfaced hard error, if any.
func (s *Syncer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hardErr
}
