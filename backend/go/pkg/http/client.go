package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusError is returned by Client.Do when the server answers with a status code >= 400.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Detail)
}

// Client is a custom HTTP client that wraps the standard http.Client
// and turns error responses into *StatusError values.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new Client. A zero timeout means no timeout, which streaming callers need.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Do executes an HTTP request.
// Status codes >= 400 are reported as *StatusError and the body is closed;
// otherwise the caller owns resp.Body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusBadRequest {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	statusErr := &StatusError{StatusCode: resp.StatusCode}
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Detail != "" {
		statusErr.Detail = payload.Detail
	} else {
		statusErr.Detail = string(body)
	}
	return nil, statusErr
}
