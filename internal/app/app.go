package app

import (
	"context"
	"errors"
	"io"

	"taskpilot/internal/api"
)

// Application wires the client stack together once at startup and is
// passed by reference into every screen and command.
type Application struct {
	Config   Config
	Client   *api.Client
	Cache    *Cache
	Users    *UserStore
	Sessions *SessionList
	Files    *FileService
	Logger   *Logger

	tokens   *api.CachedTokenSource
	closeLog func() error
}

// NewApplication builds the full stack from config. logOut overrides the
// file logger; tests pass io.Discard.
func NewApplication(cfg Config, logOut io.Writer) (*Application, error) {
	var (
		logger   *Logger
		closeLog func() error
	)
	if logOut != nil {
		logger = NewLogger(logOut)
	} else {
		var err error
		logger, closeLog, err = NewFileLogger(cfg.StateDir)
		if err != nil {
			return nil, err
		}
	}

	cache := NewCache(cfg.StateDir)

	var tokens *api.CachedTokenSource
	var source api.TokenSource
	if cfg.Token != "" {
		source = api.StaticTokenSource(cfg.Token)
	} else {
		tokens = api.NewCachedTokenSource(cache, func(ctx context.Context) (string, error) {
			return "", errors.New("not signed in: set TASKPILOT_TOKEN or run `taskpilot login`")
		})
		source = tokens
	}

	client := api.NewClient(cfg.APIURL,
		api.WithTokenSource(source),
		api.WithLogger(logger),
	)

	a := &Application{
		Config:   cfg,
		Client:   client,
		Cache:    cache,
		Users:    NewUserStore(client, cache, logger),
		Sessions: NewSessionList(client, cfg.PageSize),
		Files:    NewFileService(client, cfg.DownloadDir, logger),
		Logger:   logger,
		tokens:   tokens,
		closeLog: closeLog,
	}
	return a, nil
}

// NewSyncer returns a sync engine for one session view.
func (a *Application) NewSyncer() *Syncer {
	return NewSyncer(a.Client, a.Logger)
}

// SignIn stores a bearer token, records the identity-provider sign-in when
// one is named, and loads the profile. A 404 from the profile fetch means
// the token is valid but no account record exists yet; when an email is
// known the record is created and the load retried. The token is dropped on
// any failure so a bad sign-in leaves no credentials behind.
func (a *Application) SignIn(ctx context.Context, token, provider, email string) (*api.UserProfile, error) {
	if token == "" {
		return nil, errors.New("token is required")
	}
	if err := a.Cache.SaveToken(token); err != nil {
		return nil, err
	}
	if a.tokens != nil {
		a.tokens.Clear()
	}
	fail := func(err error) (*api.UserProfile, error) {
		_ = a.Cache.ClearToken()
		return nil, err
	}
	if provider != "" {
		if err := a.Client.Login(ctx, provider); err != nil {
			return fail(err)
		}
	}
	if err := a.Users.Load(ctx); err != nil {
		if email == "" || !errors.Is(err, api.ErrSessionGone) {
			return fail(err)
		}
		if _, cerr := a.Client.CreateUser(ctx, email); cerr != nil {
			return fail(cerr)
		}
		if lerr := a.Users.Load(ctx); lerr != nil {
			return fail(lerr)
		}
	}
	return a.Users.User(), nil
}

// SignOut clears the profile store and local credentials.
func (a *Application) SignOut() {
	a.Users.SignOut()
	if a.tokens != nil {
		a.tokens.Clear()
	}
}

// Theme returns the persisted theme preference, falling back to config.
func (a *Application) Theme() string {
	if t, err := a.Cache.GetTheme(); err == nil && t != "" {
		return t
	}
	return a.Config.Theme
}

// SetTheme persists the theme preference.
func (a *Application) SetTheme(theme string) {
	_ = a.Cache.SaveTheme(theme)
}

// Close releases the cache and log file.
func (a *Application) Close() error {
	err := a.Cache.Close()
	if a.closeLog != nil {
		if cerr := a.closeLog(); err == nil {
			err = cerr
		}
	}
	return err
}
