// Package client is the HTTP client for the prepwise backend API.
//
// It implements the chat.Sender interface consumed by the coordinator and
// adds session management operations for the CLI and TUI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prepwise/prepwise/internal/audio"
	"github.com/prepwise/prepwise/internal/chat"
)

// DefaultTimeout bounds a single request. Chat sends wait on the model
// provider, so this is generous.
const DefaultTimeout = 2 * time.Minute

// APIError is a non-2xx response from the backend. The body may carry a
// human-readable message.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	if e.Code != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Code)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// ErrNotFound indicates the requested session or resource does not exist.
var ErrNotFound = errors.New("not found")

// Config configures a Client.
type Config struct {
	// BaseURL is the backend root, e.g. "http://127.0.0.1:3400".
	BaseURL string

	// Timeout per request. Zero means DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the transport. Nil builds one from Timeout.
	HTTPClient *http.Client

	// Retry controls retries of idempotent requests. Zero value uses
	// DefaultRetryConfig.
	Retry RetryConfig

	Logger *slog.Logger
}

// Client talks to the prepwise backend. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      RetryConfig
	logger     *slog.Logger
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, errors.New("client.New: base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("client.New: invalid base URL: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		retry:      retry,
		logger:     logger,
	}, nil
}

// CreateSessionParams are the attributes of a new interview session.
type CreateSessionParams struct {
	JobTitle    string `json:"jobTitle"`
	CompanyName string `json:"companyName"`
	Topic       string `json:"topic"`
	Difficulty  string `json:"difficulty,omitempty"`
}

// ListSessions returns the user's sessions, newest first.
func (c *Client) ListSessions(ctx context.Context) ([]chat.Session, error) {
	var out struct {
		Sessions []chat.Session `json:"sessions"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/sessions", nil, &out); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out.Sessions, nil
}

// CreateSession creates a new interview session.
func (c *Client) CreateSession(ctx context.Context, params CreateSessionParams) (*chat.Session, error) {
	var out chat.Session
	if err := c.doJSON(ctx, http.MethodPost, "/api/sessions", params, &out); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &out, nil
}

// DeleteSession deletes a session and all its messages.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/api/sessions/"+url.PathEscape(sessionID), nil, nil); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

// CompleteSession marks a session as completed.
func (c *Client) CompleteSession(ctx context.Context, sessionID string) (*chat.Session, error) {
	var out chat.Session
	if err := c.doJSON(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/complete", nil, &out); err != nil {
		return nil, fmt.Errorf("complete session %s: %w", sessionID, err)
	}
	return &out, nil
}

// Messages returns all messages for a session, oldest first.
func (c *Client) Messages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	var out struct {
		Messages []chat.Message `json:"messages"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(sessionID)+"/messages", nil, &out); err != nil {
		return nil, fmt.Errorf("messages for %s: %w", sessionID, err)
	}
	return out.Messages, nil
}

// SendText posts a text turn and returns the confirmed user message plus the
// AI reply. Never retried: a duplicate would create a duplicate turn.
func (c *Client) SendText(ctx context.Context, sessionID, text string) (chat.SendResult, error) {
	body := map[string]string{"text": text}
	var out chat.SendResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/chat", body, &out); err != nil {
		return chat.SendResult{}, err
	}
	return out, nil
}

// SendAudio posts a recorded audio turn as multipart form data, the same
// shape the browser client sends: an "audio" file part, an empty "text"
// field, and the session id.
func (c *Client) SendAudio(ctx context.Context, sessionID string, payload audio.Payload) (chat.SendResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("audio", payload.Filename)
	if err != nil {
		return chat.SendResult{}, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(payload.Data); err != nil {
		return chat.SendResult{}, fmt.Errorf("write audio part: %w", err)
	}
	if err := mw.WriteField("text", ""); err != nil {
		return chat.SendResult{}, fmt.Errorf("write text field: %w", err)
	}
	if err := mw.WriteField("sessionId", sessionID); err != nil {
		return chat.SendResult{}, fmt.Errorf("write sessionId field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return chat.SendResult{}, fmt.Errorf("finish multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/sessions/"+url.PathEscape(sessionID)+"/chat", &buf)
	if err != nil {
		return chat.SendResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return chat.SendResult{}, fmt.Errorf("send audio: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out chat.SendResult
	if err := c.decode(resp, &out); err != nil {
		return chat.SendResult{}, err
	}
	return out, nil
}

// AudioURL is a time-limited playable URL for a stored recording.
type AudioURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ResolveAudio exchanges an opaque audio key for a playable URL. Invoked
// lazily per message when rendering.
func (c *Client) ResolveAudio(ctx context.Context, sessionID, audioKey string) (*AudioURL, error) {
	var out AudioURL
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/audio/" + url.PathEscape(audioKey)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("resolve audio %s: %w", audioKey, err)
	}
	return &out, nil
}

// doJSON performs a JSON request. Idempotent methods (GET, DELETE) are
// retried on transient failures; POST is issued exactly once so a timed-out
// send cannot produce a duplicate turn.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	attempt := func() (*http.Response, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return c.httpClient.Do(req)
	}

	var resp *http.Response
	var err error
	if idempotent(method) {
		resp, err = c.withRetry(ctx, attempt)
	} else {
		resp, err = attempt()
	}
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	return c.decode(resp, out)
}

// decode maps the response to out, converting non-2xx statuses to *APIError
// (ErrNotFound for 404).
func (c *Client) decode(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var body struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil {
			apiErr.Code = body.Error
			apiErr.Message = body.Message
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Error())
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodDelete || method == http.MethodHead
}
