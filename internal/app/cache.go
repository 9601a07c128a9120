package app

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"taskpilot/internal/api"
)

// Cache is the on-device store: the auth token, the theme preference, the
// device identifier used for push registration, and a snapshot of the user
// profile for instant first paint. Single process, single writer.
type Cache struct {
	Root   string
	dbPath string

	mu   sync.Mutex
	db   *sql.DB
	once sync.Once
	err  error
}

const (
	keyToken     = "auth_token"
	keyTheme     = "theme"
	keyDeviceID  = "device_id"
	keyUserSnap  = "user_snapshot"
	keyPushToken = "push_token"
)

func NewCache(root string) *Cache {
	if root == "" {
		root = DefaultStateDir()
	}
	return &Cache{Root: root, dbPath: filepath.Join(root, "cache.db")}
}

func (c *Cache) open() (*sql.DB, error) {
	c.once.Do(func() {
		if err := os.MkdirAll(c.Root, 0o755); err != nil {
			c.err = err
			return
		}
		db, err := sql.Open("sqlite", c.dbPath)
		if err != nil {
			c.err = err
			return
		}
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`); err != nil {
			c.err = err
			_ = db.Close()
			return
		}
		c.db = db
	})
	return c.db, c.err
}

func (c *Cache) get(key string) (string, error) {
	db, err := c.open()
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var value string
	err = db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (c *Cache) set(key, value string) error {
	db, err := c.open()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = db.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (c *Cache) delete(key string) error {
	db, err := c.open()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}

// GetToken and SaveToken satisfy api.TokenCache.
func (c *Cache) GetToken() (string, error)      { return c.get(keyToken) }
func (c *Cache) SaveToken(token string) error   { return c.set(keyToken, token) }
func (c *Cache) ClearToken() error              { return c.delete(keyToken) }
func (c *Cache) GetTheme() (string, error)      { return c.get(keyTheme) }
func (c *Cache) SaveTheme(theme string) error   { return c.set(keyTheme, theme) }
func (c *Cache) GetPushToken() (string, error)  { return c.get(keyPushToken) }
func (c *Cache) SavePushToken(t string) error   { return c.set(keyPushToken, t) }

// DeviceID returns a stable identifier for this install, minting one on
// first use.
func (c *Cache) DeviceID() (string, error) {
	id, err := c.get(keyDeviceID)
	if err != nil || id != "" {
		return id, err
	}
	id = uuid.NewString()
	if err := c.set(keyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

// SaveUserSnapshot caches the last fetched profile.
func (c *Cache) SaveUserSnapshot(u *api.UserProfile) error {
	if u == nil {
		return c.delete(keyUserSnap)
	}
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return c.set(keyUserSnap, string(data))
}

// UserSnapshot returns the cached profile, or nil when none is stored.
func (c *Cache) UserSnapshot() (*api.UserProfile, error) {
	raw, err := c.get(keyUserSnap)
	if err != nil || raw == "" {
		return nil, err
	}
	var u api.UserProfile
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		// A corrupt snapshot is treated as absent.
		return nil, nil
	}
	return &u, nil
}

// Reset clears everything a sign-out must not leave behind.
func (c *Cache) Reset() error {
	if err := c.ClearToken(); err != nil {
		return err
	}
	return c.SaveUserSnapshot(nil)
}

func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		err := c.db.Close()
		c.db = nil
		return err
	}
	return nil
}
