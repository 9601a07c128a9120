package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ListSessions fetches one page of the session list, newest activity first.
// status filters by a single SessionStatus; empty means all.
func (c *Client) ListSessions(ctx context.Context, page, limit int, status SessionStatus) (*SessionPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 12
	}
	query := url.Values{
		"page":   {strconv.Itoa(page)},
		"limit":  {strconv.Itoa(limit)},
		"status": {string(status)},
		"source": {"client"},
	}
	var result SessionPage
	if err := c.do(ctx, http.MethodGet, "/v1/sessions", query, nil, &result); err != nil {
		return nil, err
	}
	if result.TotalPages < 1 {
		result.TotalPages = 1
	}
	return &result, nil
}

// StartSession asks the backend to run a new agent task. The backend
// signals refusal inside a 200 body, so the error field is checked even on
// success; a balance refusal surfaces as ErrInsufficientBalance.
func (c *Client) StartSession(ctx context.Context, task string, settings map[string]any) (string, error) {
	if strings.TrimSpace(task) == "" {
		return "", ErrEmptyMessage
	}
	if settings == nil {
		settings = map[string]any{}
	}
	var result struct {
		SessionID string `json:"sessionId"`
		Error     string `json:"error"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/sessions/new", nil, StartSessionRequest{Task: task, SessionSettings: settings}, &result)
	if err != nil {
		return "", err
	}
	if result.SessionID == "" {
		if result.Error == balanceErrorText {
			return "", ErrInsufficientBalance
		}
		return "", &Error{Status: http.StatusOK, Message: result.Error}
	}
	return result.SessionID, nil
}

// GetSession fetches the current snapshot of one session.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var result struct {
		Session *Session `json:"session"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+sessionID, nil, nil, &result); err != nil {
		return nil, err
	}
	if result.Session == nil {
		return nil, ErrSessionGone
	}
	if result.Session.ID == "" {
		result.Session.ID = sessionID
	}
	if result.Session.ResponseQuality == "" {
		result.Session.ResponseQuality = QualityNone
	}
	return result.Session, nil
}

// SendMessage appends a user message to a running session.
func (c *Client) SendMessage(ctx context.Context, sessionID, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	body := map[string]string{"message": text}
	return c.do(ctx, http.MethodPost, "/v1/sessions/"+sessionID+"/send-message", nil, body, nil)
}

// SubmitHumanInput answers the input requests embedded in the message at
// messageIndex. responses must preserve the server's field order.
func (c *Client) SubmitHumanInput(ctx context.Context, sessionID string, messageIndex int, responses []HumanInput) error {
	body := map[string]any{
		"humanInputResponse": responses,
		"messageIndex":       messageIndex,
	}
	return c.do(ctx, http.MethodPut, "/v1/sessions/"+sessionID+"/update-human-input", nil, body, nil)
}

// StopSession asks the backend to halt a running session.
func (c *Client) StopSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodPost, "/v1/sessions/"+sessionID+"/stop", nil, nil, nil)
}

// UpdateResponseQuality records the thumbs rating for the last answer. The
// backend treats repeats as idempotent; the client always re-sends.
func (c *Client) UpdateResponseQuality(ctx context.Context, sessionID string, quality ResponseQuality) error {
	body := map[string]string{"responseQuality": string(quality)}
	return c.do(ctx, http.MethodPut, "/v1/sessions/"+sessionID+"/update-response-quality", nil, body, nil)
}

// DeleteSession removes a session from the account.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	body := map[string]string{"sessionId": sessionID}
	return c.do(ctx, http.MethodPost, "/v1/sessions/delete-session", nil, body, nil)
}

// FileContent fetches the text content of a session artifact through the
// backend, which dereferences the signed URL server-side.
func (c *Client) FileContent(ctx context.Context, signedURL string) (string, error) {
	if signedURL == "" {
		return "", fmt.Errorf("file has no signed url")
	}
	body := map[string]string{"url": signedURL}
	var result struct {
		Content string `json:"content"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/file", nil, body, &result); err != nil {
		return "", err
	}
	return result.Content, nil
}
