// Package api is the client for the filing service's JSON API.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// StatusError is a non-2xx response other than 401 and lookup 404.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// TokenSource supplies the bearer token and forgets it after a 401.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// RetryCount applies to GET requests only.
	RetryCount int
}

type Client struct {
	http   *resty.Client
	tokens TokenSource
	lookup singleflight.Group
}

// envelope wraps every JSON response body.
type envelope[T any] struct {
	Data T `json:"data"`
}

func NewClient(cfg Config, tokens TokenSource) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := &Client{tokens: tokens}
	c.http = resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(300*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal).
		AddRetryCondition(retryIdempotent).
		OnBeforeRequest(c.authorize)
	return c
}

// retryIdempotent never retries a POST, PUT or PATCH so filings are not
// created twice.
func retryIdempotent(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	return err != nil || resp.StatusCode() >= http.StatusInternalServerError
}

func (c *Client) authorize(_ *resty.Client, r *resty.Request) error {
	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.Token(r.Context())
	if err != nil {
		// Requests without a token still go out; the API answers 401.
		return nil
	}
	r.SetAuthToken(token)
	return nil
}

// do sends the request and decodes the data envelope into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if err := c.check(ctx, method, path, resp); err != nil {
		return resp, err
	}
	if out != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return resp, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp, nil
}

func (c *Client) check(ctx context.Context, method, path string, resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		if c.tokens != nil {
			if err := c.tokens.Clear(ctx); err != nil {
				slog.WarnContext(ctx, "Failed to clear access token", "error", err)
			}
		}
		return ErrUnauthorized
	}

	var body struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(resp.Body(), &body)
	return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode(), Message: body.Message}
}
