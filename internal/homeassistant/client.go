package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/muurk/vtdash/internal/entity"
	"github.com/muurk/vtdash/internal/logging"
	"github.com/muurk/vtdash/internal/version"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 3 * time.Second

	// DefaultMaxRetries is the number of retry attempts used by Check
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the initial delay between Check attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay caps the exponential backoff
	DefaultMaxRetryDelay = 10 * time.Second
)

// Client talks to the Home Assistant REST API. It implements entity.Provider.
// Provider calls never retry; a failed poll is simply skipped by the caller.
type Client struct {
	// BaseURL is the instance URL, always ending with "/"
	BaseURL string

	// Token is the long-lived access token sent as a bearer token
	Token string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for Check
	MaxRetries int

	// RetryDelay is the initial delay between Check attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration
}

var _ entity.Provider = (*Client)(nil)

// NewClient creates a REST client for the instance at baseURL
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:       normalizeBaseURL(baseURL),
		Token:         token,
		HTTPClient:    &http.Client{Timeout: DefaultTimeout},
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
	}
}

func normalizeBaseURL(baseURL string) string {
	if !strings.HasSuffix(baseURL, "/") {
		return baseURL + "/"
	}
	return baseURL
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior for Check
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, classifyNetworkError("failed to create request", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	return req, nil
}

// do sends req and decodes a JSON response into out (when non-nil)
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return classifyNetworkError(fmt.Sprintf("%s %s failed", req.Method, req.URL.Path), err)
	}
	defer func() { _ = resp.Body.Close() }()

	logging.LogHTTPRequest(req.Method, req.URL.String(), resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return newAuthError("access token rejected")
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return newHTTPError(resp.StatusCode,
			fmt.Sprintf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyNetworkError("failed to read response body", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return newParseError("failed to parse JSON response", err)
	}
	return nil
}

// States fetches the raw state list
func (c *Client) States(ctx context.Context) ([]State, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "api/states", nil)
	if err != nil {
		return nil, err
	}

	var states []State
	if err := c.do(req, &states); err != nil {
		return nil, err
	}
	return states, nil
}

// ListEntities fetches and classifies every entity
func (c *Client) ListEntities(ctx context.Context) ([]*entity.Entity, error) {
	states, err := c.States(ctx)
	if err != nil {
		return nil, err
	}
	return toEntities(states), nil
}

// SwitchState fetches the state of a single entity. A response for a
// different entity id is reported as SwitchUnknown.
func (c *Client) SwitchState(ctx context.Context, id string) (entity.SwitchState, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "api/states/"+url.PathEscape(id), nil)
	if err != nil {
		return entity.SwitchUnknown, err
	}

	var state State
	if err := c.do(req, &state); err != nil {
		return entity.SwitchUnknown, err
	}

	if state.EntityID != id {
		return entity.SwitchUnknown, nil
	}
	return entity.ParseSwitchState(state.State), nil
}

// SetSwitch calls turn_on or turn_off for the entity
func (c *Client) SetSwitch(ctx context.Context, id string, on bool) error {
	path := fmt.Sprintf("api/services/%s/%s", serviceDomain(id), serviceName(on))

	req, err := c.newRequest(ctx, http.MethodPost, path, serviceCall{EntityID: id})
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Ping checks the API is reachable and the token is accepted
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "api/", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Check lists entities, retrying retryable failures with exponential backoff.
// Used by the check command, never by the poll loop.
func (c *Client) Check(ctx context.Context) ([]*entity.Entity, error) {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(currentDelay):
			}

			currentDelay *= 2
			if currentDelay > c.MaxRetryDelay {
				currentDelay = c.MaxRetryDelay
			}
		}

		entities, err := c.ListEntities(ctx)
		if err == nil {
			return entities, nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}
