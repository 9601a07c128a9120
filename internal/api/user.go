package api

import (
	"context"
	"net/http"
)

// GetUser fetches the signed-in user's profile.
func (c *Client) GetUser(ctx context.Context) (*UserProfile, error) {
	var result struct {
		User *UserProfile `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/user", nil, nil, &result); err != nil {
		return nil, err
	}
	if result.User == nil {
		return nil, &Error{Status: http.StatusOK, Message: "empty user record"}
	}
	return result.User, nil
}

// CreateUser registers the account record after first sign-in with the
// identity provider.
func (c *Client) CreateUser(ctx context.Context, email string) (*UserProfile, error) {
	body := map[string]string{"email": email}
	var result struct {
		User *UserProfile `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/user/create", nil, body, &result); err != nil {
		return nil, err
	}
	return result.User, nil
}

// Login records a sign-in from an external provider (apple, google).
func (c *Client) Login(ctx context.Context, provider string) error {
	body := map[string]string{"provider": provider}
	return c.do(ctx, http.MethodPost, "/user/login", nil, body, nil)
}

// DeleteAccount permanently removes the account and its sessions.
func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/user/delete", nil, nil, nil)
}

// UpdateNotifications sets the delivery preferences. A device token is sent
// along when mobile delivery is enabled so the backend can push.
func (c *Client) UpdateNotifications(ctx context.Context, settings NotificationSettings, pushToken string) error {
	body := map[string]any{
		"notificationSettings": settings,
	}
	if pushToken != "" {
		body["expoPushToken"] = pushToken
	}
	return c.do(ctx, http.MethodPost, "/user/update-notifications", nil, body, nil)
}
