// Package client is a typed HTTP client for the users API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is used when API_BASE_URL is not set.
const DefaultBaseURL = "http://127.0.0.1:8080"

// ErrConnection is matched by errors that never reached the server.
var ErrConnection = errors.New("cannot connect to API server")

// APIError is returned for any non-2xx answer.
type APIError struct {
	Status int
	Detail string
	Body   []byte
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Detail)
}

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type CreateUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UpdateUser only sends the fields that are non-nil.
type UpdateUser struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
}

// Response is the raw outcome of a call, kept for tools that print it.
type Response struct {
	Status int
	Body   []byte
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Root(ctx context.Context) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if _, err := c.call(ctx, http.MethodGet, "/", nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	if _, err := c.call(ctx, http.MethodGet, "/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUser(ctx context.Context, id int64) (*User, error) {
	var out User
	if _, err := c.call(ctx, http.MethodGet, userPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateUser(ctx context.Context, in CreateUser) (*User, error) {
	var out User
	if _, err := c.call(ctx, http.MethodPost, "/users", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUser(ctx context.Context, id int64, in UpdateUser) (*User, error) {
	var out User
	if _, err := c.call(ctx, http.MethodPut, userPath(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if _, err := c.call(ctx, http.MethodDelete, userPath(id), nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Do sends a request and returns the raw response whatever its status.
// Only transport failures are reported as errors.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		if isConnErr(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrConnection, c.BaseURL, err)
		}
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	return &Response{Status: res.StatusCode, Body: b}, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) (*Response, error) {
	res, err := c.Do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if res.Status < 200 || res.Status > 299 {
		return res, newAPIError(res)
	}
	if out != nil && len(res.Body) > 0 {
		if err := json.Unmarshal(res.Body, out); err != nil {
			return res, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return res, nil
}

func newAPIError(res *Response) *APIError {
	var eb struct {
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(res.Body, &eb)
	return &APIError{Status: res.Status, Detail: eb.Detail, Body: res.Body}
}

func isConnErr(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func userPath(id int64) string {
	return "/users/" + strconv.FormatInt(id, 10)
}
