package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"songrank/internal/config"
	"songrank/internal/logging"
	"songrank/internal/services"
)

const (
	component       = "remote"
	maxResponseBody = 8 << 20
	maxErrorBody    = 4096
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// TokenSource supplies and renews bearer credentials. *session.Session
// satisfies it.
type TokenSource interface {
	AccessToken() string
	RefreshToken() string
	SetAccessToken(string) error
	Logout() error
}

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for backend calls.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		c.http = client
	}
}

// WithRequestIDs overrides the correlation ID generator.
func WithRequestIDs(next func() string) Option {
	return func(c *Client) {
		c.newRequestID = next
	}
}

// Client talks to the ranking backend.
type Client struct {
	base         *url.URL
	http         HTTPDoer
	tokens       TokenSource
	userAgent    string
	logger       *slog.Logger
	newRequestID func() string

	refreshMu sync.Mutex
}

// New builds a Client from configuration. tokens may be nil for
// unauthenticated use.
func New(cfg *config.Config, tokens TokenSource, logger *slog.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	base, err := url.Parse(cfg.Remote.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "init", fmt.Sprintf("invalid base url %q", cfg.Remote.BaseURL), err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	c := &Client{
		base:         base,
		http:         &http.Client{Timeout: time.Duration(cfg.Remote.TimeoutSeconds) * time.Second},
		tokens:       tokens,
		userAgent:    cfg.Remote.UserAgent,
		logger:       logging.NewComponentLogger(logger, component),
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the resolved backend root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	anonymous   bool
}

func jsonRequest(op, method, path string, query url.Values, payload any) (request, error) {
	req := request{op: op, method: method, path: path, query: query}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return request{}, fmt.Errorf("marshal request body: %w", err)
		}
		req.body = data
		req.contentType = "application/json"
	}
	return req, nil
}

func rankingQuery(slug string) url.Values {
	if slug == "" {
		return nil
	}
	return url.Values{"ranking": []string{slug}}
}

// do sends req, renewing the access token once on 401, and decodes a
// successful JSON response into out.
func (c *Client) do(ctx context.Context, req request, out any) error {
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = c.newRequestID()
		ctx = services.WithRequestID(ctx, requestID)
	}

	status, body, err := c.send(ctx, req, requestID)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized && !req.anonymous && c.tokens != nil {
		if err := c.refresh(ctx, requestID); err != nil {
			return err
		}
		status, body, err = c.send(ctx, req, requestID)
		if err != nil {
			return err
		}
	}
	return c.decode(req, status, body, out)
}

func (c *Client) send(ctx context.Context, req request, requestID string) (int, []byte, error) {
	target := c.base.ResolveReference(&url.URL{Path: req.path})
	if len(req.query) > 0 {
		target.RawQuery = req.query.Encode()
	}

	var reader io.Reader
	if req.body != nil {
		reader = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if !req.anonymous && c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	logger := logging.WithContext(ctx, c.logger)
	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		logger.Debug("remote request failed",
			logging.String("method", req.method),
			logging.String("path", req.path),
			logging.Error(err),
		)
		return 0, nil, services.Wrap(services.ErrNetwork, component, req.op, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, nil, services.Wrap(services.ErrNetwork, component, req.op, "read response", err)
	}
	logger.Debug("remote request",
		logging.String("method", req.method),
		logging.String("path", req.path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)
	return resp.StatusCode, body, nil
}

func (c *Client) decode(req request, status int, body []byte, out any) error {
	if status >= 200 && status < 300 {
		if out == nil || len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return services.Wrap(services.ErrServer, component, req.op, "decode response", err)
		}
		return nil
	}

	statusErr := &StatusError{Method: req.method, Path: req.path, StatusCode: status, Body: truncate(body)}
	switch {
	case status == http.StatusBadRequest:
		verr := parseValidation(body)
		return fmt.Errorf("%s: %s: %w", component, req.op, verr)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return services.Wrap(services.ErrUnauthorized, component, req.op, "not permitted, log in again", statusErr)
	case status == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, component, req.op, "", statusErr)
	case status >= 500:
		return services.Wrap(services.ErrServer, component, req.op, "", statusErr)
	default:
		return services.Wrap(services.ErrValidation, component, req.op, "rejected", statusErr)
	}
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// refresh exchanges the refresh token for a new access token. Any failure
// clears the session so the user is asked to log in again.
func (c *Client) refresh(ctx context.Context, requestID string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	logger := logging.WithContext(ctx, c.logger)
	fail := func(message string, cause error) error {
		if err := c.tokens.Logout(); err != nil {
			logging.WarnWithContext(logger, "clear session failed", "session_clear_failed", logging.Error(err))
		}
		return services.Wrap(services.ErrUnauthorized, component, "refresh token", message, cause)
	}

	token := c.tokens.RefreshToken()
	if token == "" {
		return fail("session expired, log in again", nil)
	}
	req, err := jsonRequest("refresh token", http.MethodPost, "token/refresh/", nil, map[string]string{"refresh": token})
	if err != nil {
		return err
	}
	req.anonymous = true

	status, body, err := c.send(ctx, req, requestID)
	if err != nil {
		return err
	}
	var pair tokenPair
	if err := c.decode(req, status, body, &pair); err != nil {
		return fail("session expired, log in again", err)
	}
	if pair.Access == "" {
		return fail("refresh response carried no access token", nil)
	}
	if err := c.tokens.SetAccessToken(pair.Access); err != nil {
		return fmt.Errorf("store refreshed token: %w", err)
	}
	logger.Debug("access token refreshed", logging.String(logging.FieldEventType, "token_refreshed"))
	return nil
}

func truncate(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return text
}
