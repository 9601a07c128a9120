package app

import (
	"context"
	"sync"

	"taskpilot/internal/api"
)

// UserAPI is the backend surface the profile store needs.
type UserAPI interface {
	GetUser(ctx context.Context) (*api.UserProfile, error)
	UpdateNotifications(ctx context.Context, settings api.NotificationSettings, pushToken string) error
	DeleteAccount(ctx context.Context) error
}

// UserStore owns the signed-in user's profile for the life of the app. It
// is constructed once and handed to every screen; screens read through it
// and never mutate the profile directly. Every mutation goes through the
// backend followed by a full Refresh — there is no client-side merge of
// partial updates.
type UserStore struct {
	backend UserAPI
	cache   *Cache
	logger  *Logger

	mu   sync.Mutex
	user *api.UserProfile
	subs []func(*api.UserProfile)
}

func NewUserStore(backend UserAPI, cache *Cache, logger *Logger) *UserStore {
	return &UserStore{backend: backend, cache: cache, logger: logger}
}

// Load primes the store at app start: the cached snapshot paints first,
// then a refresh replaces it with backend truth.
func (u *UserStore) Load(ctx context.Context) error {
	if u.cache != nil {
		if snap, err := u.cache.UserSnapshot(); err == nil && snap != nil {
			u.setUser(snap)
		}
	}
	return u.Refresh(ctx)
}

// Refresh re-fetches the whole profile from the backend.
func (u *UserStore) Refresh(ctx context.Context) error {
	profile, err := u.backend.GetUser(ctx)
	if err != nil {
		u.logger.Error("refresh user failed", map[string]interface{}{"error": err.Error()})
		return err
	}
	u.setUser(profile)
	if u.cache != nil {
		_ = u.cache.SaveUserSnapshot(profile)
	}
	return nil
}

func (u *UserStore) setUser(profile *api.UserProfile) {
	u.mu.Lock()
	u.user = profile
	subs := make([]func(*api.UserProfile), len(u.subs))
	copy(subs, u.subs)
	u.mu.Unlock()
	for _, fn := range subs {
		fn(profile)
	}
}

// User returns the current profile, nil before the first load.
func (u *UserStore) User() *api.UserProfile {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.user
}

// Subscribe registers a callback for profile changes. Callbacks run on the
// mutating goroutine; keep them cheap.
func (u *UserStore) Subscribe(fn func(*api.UserProfile)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.subs = append(u.subs, fn)
}

// SetNotifications updates delivery preferences on the backend and then
// refreshes. The device push token rides along when mobile is enabled.
func (u *UserStore) SetNotifications(ctx context.Context, settings api.NotificationSettings) error {
	pushToken := ""
	if settings.Mobile && u.cache != nil {
		pushToken, _ = u.cache.GetPushToken()
		if pushToken == "" {
			// Fall back to the stable device ID so the backend can route.
			pushToken, _ = u.cache.DeviceID()
		}
	}
	if err := u.backend.UpdateNotifications(ctx, settings, pushToken); err != nil {
		return err
	}
	return u.Refresh(ctx)
}

// DeleteAccount removes the account server-side and clears local state.
func (u *UserStore) DeleteAccount(ctx context.Context) error {
	if err := u.backend.DeleteAccount(ctx); err != nil {
		return err
	}
	u.SignOut()
	return nil
}

// SignOut tears the store down and wipes the cached token and snapshot.
func (u *UserStore) SignOut() {
	u.setUser(nil)
	if u.cache != nil {
		_ = u.cache.Reset()
	}
}
