// Package apiclient talks to the userpanel proxy over its JSON REST surface.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"userpanel/internal/model"
)

const sessionTokenHeader = "x-session-token"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnavailable  = errors.New("service unavailable")
	ErrServer       = errors.New("server error")
)

// APIError carries the proxy's status and message. Err is one of the sentinel
// errors above so callers can branch with errors.Is.
type APIError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

type Client struct {
	baseURL string
	http    *http.Client
	token   func() string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New returns a client for the proxy at baseURL. token is read on every request,
// so a session that is denied mid-flight stops sending its credential at once.
func New(baseURL string, token func() string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		token:   token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Total   int             `json:"total"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Error   string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set(sessionTokenHeader, tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Err: ErrUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode >= 300 {
			return statusError(resp.StatusCode, envelope{})
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 300 || !env.Success {
		return statusError(resp.StatusCode, env)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

func statusError(status int, env envelope) error {
	e := &APIError{Status: status, Code: env.Code, Message: env.Message}
	if e.Message == "" {
		e.Message = env.Error
	}

	switch {
	case status == http.StatusUnauthorized:
		e.Err = ErrUnauthorized
	case status == http.StatusNotFound:
		e.Err = ErrNotFound
	case status == http.StatusConflict:
		e.Err = ErrConflict
	case status == http.StatusBadRequest:
		e.Err = ErrValidation
	case status == http.StatusServiceUnavailable:
		e.Err = ErrUnavailable
	default:
		e.Err = ErrServer
	}
	return e
}

// Ping probes the ungated health endpoint. Any answer other than 200 counts as offline.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Err: ErrUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Err: ErrUnavailable, Message: resp.Status}
	}
	return nil
}

// NewUser is the create payload. Password travels in plaintext to the proxy,
// which hashes it before storage.
type NewUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	IsAdmin  bool   `json:"is_admin"`
}

// UserUpdate leaves nil fields untouched. An empty Password keeps the stored hash.
type UserUpdate struct {
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	Name     *string `json:"name,omitempty"`
	IsAdmin  *bool   `json:"is_admin,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := c.do(ctx, http.MethodGet, "/api/users", nil, &out)
	return out, err
}

func (c *Client) GetUser(ctx context.Context, id string) (model.User, error) {
	var out model.User
	err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) CreateUser(ctx context.Context, in NewUser) (model.User, error) {
	var out model.User
	err := c.do(ctx, http.MethodPost, "/api/users", in, &out)
	return out, err
}

func (c *Client) UpdateUser(ctx context.Context, id string, in UserUpdate) (model.User, error) {
	var out model.User
	err := c.do(ctx, http.MethodPut, "/api/users/"+url.PathEscape(id), in, &out)
	return out, err
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ToggleStatus(ctx context.Context, id string) (model.User, error) {
	var out model.User
	err := c.do(ctx, http.MethodPatch, "/api/users/"+url.PathEscape(id)+"/toggle-status", nil, &out)
	return out, err
}

func (c *Client) ToggleAdmin(ctx context.Context, id string) (model.User, error) {
	var out model.User
	err := c.do(ctx, http.MethodPatch, "/api/users/"+url.PathEscape(id)+"/toggle-admin", nil, &out)
	return out, err
}

func (c *Client) ResetPassword(ctx context.Context, id, password string) (model.User, error) {
	var out model.User
	body := map[string]string{"password": password}
	err := c.do(ctx, http.MethodPatch, "/api/users/"+url.PathEscape(id)+"/reset-password", body, &out)
	return out, err
}

func (c *Client) ListLoginAttempts(ctx context.Context, username string, limit int) ([]model.LoginAttempt, error) {
	q := url.Values{}
	if username != "" {
		q.Set("username", username)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []model.LoginAttempt
	err := c.do(ctx, http.MethodGet, withQuery("/api/login-attempts", q), nil, &out)
	return out, err
}

func (c *Client) ListDevices(ctx context.Context, username string) ([]model.AuthorizedDevice, error) {
	q := url.Values{}
	if username != "" {
		q.Set("username", username)
	}
	var out []model.AuthorizedDevice
	err := c.do(ctx, http.MethodGet, withQuery("/api/authorized-devices", q), nil, &out)
	return out, err
}

func (c *Client) DeleteDevice(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/authorized-devices/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListAlerts(ctx context.Context, unreadOnly bool, limit int) ([]model.SecurityAlert, error) {
	q := url.Values{}
	if unreadOnly {
		q.Set("unread", "true")
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []model.SecurityAlert
	err := c.do(ctx, http.MethodGet, withQuery("/api/alerts", q), nil, &out)
	return out, err
}

func (c *Client) MarkAlertRead(ctx context.Context, id string) (model.SecurityAlert, error) {
	var out model.SecurityAlert
	err := c.do(ctx, http.MethodPatch, "/api/alerts/"+url.PathEscape(id)+"/mark-read", nil, &out)
	return out, err
}

func (c *Client) DeleteAlert(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/alerts/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Dashboard(ctx context.Context) (model.DashboardStats, error) {
	var out model.DashboardStats
	err := c.do(ctx, http.MethodGet, "/api/dashboard", nil, &out)
	return out, err
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
