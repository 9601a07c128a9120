package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"taskpilot/internal/api"
)

// fakeBackend scripts GetSession responses and records every call.
type fakeBackend struct {
	mu        sync.Mutex
	snapshots []*api.Session
	errs      []error
	calls     int

	started   string
	sent      []string
	stopped   int
	rated     []api.ResponseQuality
	submitted [][]api.HumanInput
	submitIdx int
	startErr  error
}

func (f *fakeBackend) StartSession(ctx context.Context, task string, settings map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = task
	return "sess-1", nil
}

func (f *fakeBackend) GetSession(ctx context.Context, sessionID string) (*api.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.snapshots) {
		return f.snapshots[i], nil
	}
	return f.snapshots[len(f.snapshots)-1], nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, sessionID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeBackend) SubmitHumanInput(ctx context.Context, sessionID string, messageIndex int, responses []api.HumanInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitIdx = messageIndex
	f.submitted = append(f.submitted, responses)
	return nil
}

func (f *fakeBackend) StopSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	return nil
}

func (f *fakeBackend) UpdateResponseQuality(ctx context.Context, sessionID string, quality api.ResponseQuality) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rated = append(f.rated, quality)
	return nil
}

func testSyncer(backend SessionAPI) *Syncer {
	return NewSyncer(backend, NewLogger(io.Discard))
}

func snap(status api.SessionStatus) *api.Session {
	return &api.Session{ID: "sess-1", Status: status}
}

func TestPollOnceAppliesSnapshots(t *testing.T) {
	backend := &fakeBackend{snapshots: []*api.Session{snap(api.StatusActive), snap(api.StatusCompleted)}}
	s := testSyncer(backend)
	s.Attach("sess-1")

	ctx := context.Background()
	if _, applied, err := s.PollOnce(ctx); err != nil || !applied {
		t.Fatalf("first poll: applied=%v err=%v", applied, err)
	}
	if !s.ShouldPoll() {
		t.Fatalf("active session should keep polling")
	}
	if _, applied, _ := s.PollOnce(ctx); !applied {
		t.Fatalf("second poll should apply")
	}
	if s.ShouldPoll() {
		t.Fatalf("completed session should stop polling")
	}
	if s.Status() != api.StatusCompleted {
		t.Fatalf("status = %s", s.Status())
	}
}

func TestPollOnceLatestRequestWins(t *testing.T) {
	backend := &fakeBackend{snapshots: []*api.Session{snap(api.StatusActive)}}
	s := testSyncer(backend)
	s.Attach("sess-1")

	ctx := context.Background()
	if _, applied, _ := s.PollOnce(ctx); !applied {
		t.Fatalf("baseline poll should apply")
	}

	// Simulate a response from a request stamped before the applied one:
	// a fetch that raced and lost must be discarded.
	s.mu.Lock()
	s.appliedGen = s.nextGen + 5
	s.mu.Unlock()

	if _, applied, _ := s.PollOnce(ctx); applied {
		t.Fatalf("stale-generation response must not apply")
	}
}

func TestPollOnceTransientErrorsAreSwallowed(t *testing.T) {
	backend := &fakeBackend{
		errs:      []error{&api.Error{Status: 503, Message: "unavailable"}, nil},
		snapshots: []*api.Session{nil, snap(api.StatusActive)},
	}
	s := testSyncer(backend)
	s.Attach("sess-1")

	ctx := context.Background()
	if _, applied, err := s.PollOnce(ctx); err != nil || applied {
		t.Fatalf("transient failure: applied=%v err=%v, want both false/nil", applied, err)
	}
	if !s.ShouldPoll() {
		t.Fatalf("transient failure must not stop the engine")
	}
	if _, applied, _ := s.PollOnce(ctx); !applied {
		t.Fatalf("recovery poll should apply")
	}
}

func TestPollOnceHardErrorSurfacedExactlyOnce(t *testing.T) {
	backend := &fakeBackend{errs: []error{api.ErrSessionGone, api.ErrSessionGone}}
	s := testSyncer(backend)
	s.Attach("sess-1")

	ctx := context.Background()
	if _, _, err := s.PollOnce(ctx); !errors.Is(err, api.ErrSessionGone) {
		t.Fatalf("first hard error must surface, got %v", err)
	}
	if _, _, err := s.PollOnce(ctx); err != nil {
		t.Fatalf("repeat polls must stay silent, got %v", err)
	}
	if s.ShouldPoll() {
		t.Fatalf("hard error must stop the engine")
	}
	if !errors.Is(s.Err(), api.ErrSessionGone) {
		t.Fatalf("Err() = %v", s.Err())
	}
}

func TestStopIsStickyAgainstLaggingSnapshots(t *testing.T) {
	backend := &fakeBackend{snapshots: []*api.Session{snap(api.StatusActive)}}
	s := testSyncer(backend)
	s.Attach("sess-1")

	ctx := context.Background()
	if _, _, err := s.PollOnce(ctx); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if s.Status() != api.StatusStopped {
		t.Fatalf("stop must flip local status immediately, got %s", s.Status())
	}

	// The backend still reports active; the local stopped view must hold.
	if _, applied, _ := s.PollOnce(ctx); applied {
		t.Fatalf("lagging active snapshot must not resurrect a stopped session")
	}
	if s.Status() != api.StatusStopped {
		t.Fatalf("status after lagging snapshot = %s", s.Status())
	}
}

func TestReattachDiscardsInFlightResponses(t *testing.T) {
	backend := &fakeBackend{snapshots: []*api.Session{snap(api.StatusActive)}}
	s := testSyncer(backend)
	s.Attach("sess-1")

	// A poll for the old session resolving after re-attach must be dropped.
	release := make(chan struct{})
	slow := &blockingBackend{inner: backend, release: release, entered: make(chan struct{}, 1)}
	s.backend = slow

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, applied, _ := s.PollOnce(context.Background()); applied {
			t.Errorf("poll for detached session must not apply")
		}
	}()
	<-slow.entered
	s.Attach("sess-2")
	close(release)
	<-done

	if s.Session() != nil {
		t.Fatalf("re-attached engine must start with no snapshot")
	}
}

type blockingBackend struct {
	inner   SessionAPI
	release chan struct{}
	entered chan struct{}
}

func (b *blockingBackend) GetSession(ctx context.Context, id string) (*api.Session, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return b.inner.GetSession(ctx, id)
}

func (b *blockingBackend) StartSession(ctx context.Context, task string, settings map[string]any) (string, error) {
	return b.inner.StartSession(ctx, task, settings)
}
func (b *blockingBackend) SendMessage(ctx context.Context, id, text string) error {
	return b.inner.SendMessage(ctx, id, text)
}
func (b *blockingBackend) SubmitHumanInput(ctx context.Context, id string, i int, r []api.HumanInput) error {
	return b.inner.SubmitHumanInput(ctx, id, i, r)
}
func (b *blockingBackend) StopSession(ctx context.Context, id string) error {
	return b.inner.StopSession(ctx, id)
}
func (b *blockingBackend) UpdateResponseQuality(ctx context.Context, id string, q api.ResponseQuality) error {
	return b.inner.UpdateResponseQuality(ctx, id, q)
}

func TestStartRejectsBlankTask(t *testing.T) {
	s := testSyncer(&fakeBackend{})
	if _, err := s.Start(context.Background(), "  \n"); !errors.Is(err, api.ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
}

func TestSendMessageRejectsBlank(t *testing.T) {
	backend := &fakeBackend{}
	s := testSyncer(backend)
	s.Attach("sess-1")
	if err := s.SendMessage(context.Background(), "   "); !errors.Is(err, api.ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
	if len(backend.sent) != 0 {
		t.Fatalf("blank message must not reach the backend")
	}
}

func TestRateAlwaysResends(t *testing.T) {
	backend := &fakeBackend{snapshots: []*api.Session{snap(api.StatusCompleted)}}
	s := testSyncer(backend)
	s.Attach("sess-1")
	s.PollOnce(context.Background())

	for i := 0; i < 2; i++ {
		if err := s.Rate(context.Background(), api.QualityGood); err != nil {
			t.Fatalf("rate %d: %v", i, err)
		}
	}
	if len(backend.rated) != 2 {
		t.Fatalf("rated %d times, want 2 (repeat ratings re-send)", len(backend.rated))
	}
	if s.Session().ResponseQuality != api.QualityGood {
		t.Fatalf("local quality not updated")
	}
}

func TestRunStopsOnTerminalStatus(t *testing.T) {
	backend := &fakeBackend{snapshots: []*api.Session{
		snap(api.StatusActive),
		snap(api.StatusActive),
		snap(api.StatusCompleted),
	}}
	s := testSyncer(backend)
	s.Attach("sess-1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var updates int
	s.Run(ctx, time.Millisecond, func(*api.Session) { updates++ }, nil)

	if ctx.Err() != nil {
		t.Fatalf("run should finish before the deadline")
	}
	if updates < 3 {
		t.Fatalf("updates = %d, want at least 3", updates)
	}
	if s.Status() != api.StatusCompleted {
		t.Fatalf("status = %s", s.Status())
	}
}
