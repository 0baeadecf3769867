package ragclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	httpclient "DocQA/backend/go/pkg/http"
)

// Client talks to the DocQA REST API.
type Client struct {
	baseURL string
	http    *httpclient.Client
}

// New creates a Client for the backend at baseURL (e.g. "http://localhost:8000").
func New(baseURL string, http *httpclient.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http,
	}
}

// Upload sends a document to the backend and returns the server's message.
func (c *Client) Upload(ctx context.Context, path, indexName string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	if indexName != "" {
		if err := w.WriteField("index_name", indexName); err != nil {
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload_and_process_docx/", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out struct {
		Message string `json:"message"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Ask returns the full answer to query. topK <= 0 lets the server choose.
func (c *Client) Ask(ctx context.Context, query string, topK int, indexName string) (string, error) {
	req, err := c.askRequest(ctx, "/ask_document/", query, topK, indexName)
	if err != nil {
		return "", err
	}
	var out struct {
		Answer string `json:"answer"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	return out.Answer, nil
}

// AskStream calls fn for every answer fragment sent by the streaming endpoint.
func (c *Client) AskStream(ctx context.Context, query string, topK int, indexName string, fn func(token string)) error {
	req, err := c.askRequest(ctx, "/ask_document/stream/", query, topK, indexName)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return readEvents(resp.Body, func(event, data string) (bool, error) {
		switch event {
		case "token":
			fn(data)
		case "error":
			return false, fmt.Errorf("answer stream failed: %s", data)
		case "done":
			return false, nil
		}
		return true, nil
	})
}

// ListIndexes returns the indexes known to the backend.
func (c *Client) ListIndexes(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/list_indexes/", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		AvailableIndexes []string `json:"available_indexes"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	return out.AvailableIndexes, nil
}

func (c *Client) askRequest(ctx context.Context, path, query string, topK int, indexName string) (*http.Request, error) {
	payload := map[string]interface{}{"query": query}
	if topK > 0 {
		payload["top_k"] = topK
	}
	if indexName != "" {
		payload["index_name"] = indexName
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}

// readEvents parses a text/event-stream body and calls fn once per event until fn returns false.
func readEvents(r io.Reader, fn func(event, data string) (bool, error)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		event string
		data  []string
	)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event == "" && len(data) == 0 {
				continue
			}
			more, err := fn(event, strings.Join(data, "\n"))
			if err != nil || !more {
				return err
			}
			event, data = "", nil
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(line, "data:"))
		}
	}
	return scanner.Err()
}
