package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL        = "http://127.0.0.1:8000"
	DefaultRequestTimeout = 30 * time.Second

	// maxErrorBody caps how much of a failed response is kept for the error message
	maxErrorBody = 512
)

// Client talks to the chat backend. It is safe for concurrent use.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
}

// NewClient creates a client for baseURL. requestTimeout bounds the short
// calls (new id, history); reply streams are only bounded by their context.
func NewClient(baseURL string, requestTimeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No client-wide Timeout: it would also cut long reply streams
		httpClient:     &http.Client{},
		requestTimeout: requestTimeout,
	}
}

// BaseURL returns the backend base URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	return resp, nil
}

// doShort performs a bounded request and returns the whole body on success
func (c *Client) doShort(ctx context.Context, op, method, endpoint string, body interface{}) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.doRequest(ctx, method, endpoint, body)
	if err != nil {
		return nil, networkError(op, 0, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(op, resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(op, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}
	return data, nil
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var cause error
	if msg := strings.TrimSpace(string(body)); msg != "" {
		cause = errors.New(msg)
	}
	return networkError(op, resp.StatusCode, cause)
}

func conversationPath(conversationID string, suffix ...string) string {
	parts := append([]string{"/chat", url.PathEscape(conversationID)}, suffix...)
	return strings.Join(parts, "/")
}
