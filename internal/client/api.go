package client

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

	"github.com/imrishuroy/go-shoplist/internal/items"
)

// DefaultTimeout bounds every request made by HTTPClient.
const DefaultTimeout = 10 * time.Second

// API is the shopping list service as seen by the State manager.
type API interface {
	List(ctx context.Context, f items.Filter) ([]items.Item, error)
	Get(ctx context.Context, id int64) (items.Item, error)
	Create(ctx context.Context, in items.NewItem) (items.Item, error)
	Update(ctx context.Context, id int64, p items.Patch) (items.Item, error)
	Toggle(ctx context.Context, id int64) (items.Item, error)
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (items.Stats, error)
}

// APIError is a failed request: the HTTP status (408 on timeout, 0 when no
// response arrived) and the envelope error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// HTTPClient talks to the REST API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewHTTPClient returns a client for the API rooted at baseURL.
// A zero timeout means DefaultTimeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: timeout,
	}
}

func (c *HTTPClient) List(ctx context.Context, f items.Filter) ([]items.Item, error) {
	path := "/shopping"
	if f.Purchased != nil {
		path += "?" + url.Values{"purchased": {strconv.FormatBool(*f.Purchased)}}.Encode()
	}
	list := []items.Item{}
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *HTTPClient) Get(ctx context.Context, id int64) (items.Item, error) {
	var it items.Item
	err := c.do(ctx, http.MethodGet, itemPath(id), nil, &it)
	return it, err
}

func (c *HTTPClient) Create(ctx context.Context, in items.NewItem) (items.Item, error) {
	var it items.Item
	err := c.do(ctx, http.MethodPost, "/shopping", in, &it)
	return it, err
}

func (c *HTTPClient) Update(ctx context.Context, id int64, p items.Patch) (items.Item, error) {
	var it items.Item
	err := c.do(ctx, http.MethodPut, itemPath(id), p, &it)
	return it, err
}

func (c *HTTPClient) Toggle(ctx context.Context, id int64) (items.Item, error) {
	var it items.Item
	err := c.do(ctx, http.MethodPatch, itemPath(id)+"/toggle", nil, &it)
	return it, err
}

func (c *HTTPClient) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, itemPath(id), nil, nil)
}

func (c *HTTPClient) Stats(ctx context.Context) (items.Stats, error) {
	var st items.Stats
	err := c.do(ctx, http.MethodGet, "/shopping/stats", nil, &st)
	return st, err
}

func itemPath(id int64) string {
	return "/shopping/" + strconv.FormatInt(id, 10)
}

// do sends one request and decodes the envelope's data into out.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return transportError(err)
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "API request failed"
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Status: http.StatusRequestTimeout, Message: "Request timeout"}
	}
	return &APIError{Message: err.Error()}
}
