// Package api implements the HTTP client for the signup service: one
// read operation (list activities) and two mutating operations (signup,
// unregister). The server is authoritative; this client only reports
// what it said.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"roster/internal/directory"
	"roster/internal/logging"
)

const (
	defaultTimeout = 15 * time.Second
	userAgent      = "roster/1.0"
)

// Client talks to one signup service instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests, custom
// transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a client for the service at baseURL (no trailing slash
// required).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: trimSlash(baseURL),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// activityPayload is the wire shape of one activity in the listing.
type activityPayload struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

type messagePayload struct {
	Message string `json:"message"`
}

type detailPayload struct {
	Detail string `json:"detail"`
}

// ListActivities fetches the full directory snapshot. The response is a
// JSON object keyed by activity name; object key order is the server's
// display order, so the body is walked token by token instead of being
// decoded into a Go map.
func (c *Client) ListActivities(ctx context.Context) ([]directory.Activity, error) {
	timer := logging.StartTimer(logging.CategoryAPI, "ListActivities")
	defer timer.Stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/activities", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		logging.APIError("list activities failed: %v", err)
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.rejected(resp)
	}

	acts, err := decodeActivities(json.NewDecoder(resp.Body))
	if err != nil {
		logging.APIError("list activities parse failed: %v", err)
		return nil, fmt.Errorf("failed to parse activities: %w", err)
	}
	logging.API("listed %d activities", len(acts))
	return acts, nil
}

// decodeActivities walks the top-level object, preserving key order.
func decodeActivities(dec *json.Decoder) ([]directory.Activity, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var acts []directory.Activity
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected activity name, got %v", keyTok)
		}

		var payload activityPayload
		if err := dec.Decode(&payload); err != nil {
			return nil, fmt.Errorf("activity %q: %w", name, err)
		}
		acts = append(acts, directory.Activity{
			Name:            name,
			Description:     payload.Description,
			Schedule:        payload.Schedule,
			MaxParticipants: payload.MaxParticipants,
			Participants:    payload.Participants,
		})
	}
	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return acts, nil
}

// Signup registers an email for an activity and returns the server's
// confirmation message.
func (c *Client) Signup(ctx context.Context, activity, email string) (string, error) {
	return c.post(ctx, activity, email, "signup")
}

// Unregister removes an email from an activity and returns the server's
// confirmation message.
func (c *Client) Unregister(ctx context.Context, activity, email string) (string, error) {
	return c.post(ctx, activity, email, "unregister")
}

func (c *Client) post(ctx context.Context, activity, email, action string) (string, error) {
	timer := logging.StartTimer(logging.CategoryAPI, action)
	defer timer.Stop()

	endpoint := fmt.Sprintf("%s/activities/%s/%s?email=%s",
		c.baseURL, url.PathEscape(activity), action, url.QueryEscape(email))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		logging.APIError("%s %q failed: %v", action, activity, err)
		return "", fmt.Errorf("%s request failed: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.rejected(resp)
	}

	var payload messagePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to parse %s response: %w", action, err)
	}
	logging.API("%s %q ok: %s", action, activity, payload.Message)
	return payload.Message, nil
}

// rejected turns a non-2xx response into a RejectedError, keeping the
// server's detail message when the body parses.
func (c *Client) rejected(resp *http.Response) error {
	var payload detailPayload
	// Detail stays empty on parse failure; callers fall back to a
	// generic message.
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	logging.APIDebug("rejected: status=%d detail=%q", resp.StatusCode, payload.Detail)
	return &RejectedError{StatusCode: resp.StatusCode, Detail: payload.Detail}
}
