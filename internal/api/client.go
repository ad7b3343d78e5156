// Package api is the JSON client for the Exam Planner backend. The backend
// owns all timetable logic; this client only moves requests and responses.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// TokenSource supplies the current access token for authenticated calls.
// The session store satisfies this through a small adapter; the client never
// reaches into session state directly.
type TokenSource interface {
	AccessToken() (string, bool)
}

// Error is a non-2xx backend response. Detail carries the backend's own
// message when the body had one.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("backend returned status %d", e.Status)
}

// Client talks to the backend under a single configured API root.
type Client struct {
	base   string
	http   *http.Client
	tokens TokenSource
}

// Option configures the client.
type Option func(*Client)

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient swaps the underlying HTTP client (primarily for testing).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithTokenSource attaches a bearer token source for authenticated calls.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token exchanges staff credentials for a fresh credential pair.
func (c *Client) Token(ctx context.Context, username, password string) (TokenPair, error) {
	var pair TokenPair
	err := c.do(ctx, http.MethodPost, "token/", Credentials{Username: username, Password: password}, &pair)
	return pair, err
}

// TokenRefresh exchanges a refresh token for a new credential pair.
func (c *Client) TokenRefresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	var pair TokenPair
	err := c.do(ctx, http.MethodPost, "token/refresh/", map[string]string{"refresh": refreshToken}, &pair)
	return pair, err
}

func (c *Client) Departments(ctx context.Context) ([]Department, error) {
	var out []Department
	err := c.do(ctx, http.MethodGet, "departments/", nil, &out)
	return out, err
}

func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	var out []Course
	err := c.do(ctx, http.MethodGet, "courses/", nil, &out)
	return out, err
}

func (c *Client) CreateCourse(ctx context.Context, course Course) (Course, error) {
	var out Course
	err := c.do(ctx, http.MethodPost, "courses/", course, &out)
	return out, err
}

func (c *Client) Venues(ctx context.Context) ([]Venue, error) {
	var out []Venue
	err := c.do(ctx, http.MethodGet, "venues/", nil, &out)
	return out, err
}

func (c *Client) CreateVenue(ctx context.Context, venue Venue) (Venue, error) {
	var out Venue
	err := c.do(ctx, http.MethodPost, "venues/", venue, &out)
	return out, err
}

func (c *Client) CourseSets(ctx context.Context) ([]CourseSet, error) {
	var out []CourseSet
	err := c.do(ctx, http.MethodGet, "course-sets/", nil, &out)
	return out, err
}

func (c *Client) VenueSets(ctx context.Context) ([]VenueSet, error) {
	var out []VenueSet
	err := c.do(ctx, http.MethodGet, "venue-sets/", nil, &out)
	return out, err
}

func (c *Client) TimeTables(ctx context.Context) ([]TimeTable, error) {
	var out []TimeTable
	err := c.do(ctx, http.MethodGet, "exam-time-table/", nil, &out)
	return out, err
}

// ProcessTimeTable submits a plan request. Generation is synchronous on the
// backend; the call returns once the timetable has been produced.
func (c *Client) ProcessTimeTable(ctx context.Context, plan PlanRequest) (PlanResponse, error) {
	var out PlanResponse
	err := c.do(ctx, http.MethodPost, "process-time-table/", plan, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+"/"+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		if access, ok := c.tokens.AccessToken(); ok {
			req.Header.Set("Authorization", "Bearer "+access)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Detail = payload.Detail
	}
	return apiErr
}
