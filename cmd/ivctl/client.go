package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// apiClient is a thin JSON client over the interviewd HTTP API. The base
// URL is a pointer so the root command's flag parsing lands before use.
type apiClient struct {
	base *string
	hc   http.Client
}

func (c *apiClient) url(path string) string {
	return strings.TrimRight(*c.base, "/") + path
}

func (c *apiClient) get(path string) (json.RawMessage, error) {
	return c.do(http.MethodGet, path, nil)
}

func (c *apiClient) post(path string, body any) (json.RawMessage, error) {
	return c.do(http.MethodPost, path, body)
}

func (c *apiClient) do(method, path string, body any) (json.RawMessage, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequest(method, c.url(path), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	if c.hc.Timeout == 0 {
		c.hc.Timeout = 60 * time.Second
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, apiError(resp.StatusCode, data)
	}

	return data, nil
}

// apiError extracts the server's message field when there is one.
func apiError(status int, body []byte) error {
	var e struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Message != nil {
		return fmt.Errorf("server returned %d: %v", status, e.Message)
	}
	return fmt.Errorf("server returned %d: %s", status, strings.TrimSpace(string(body)))
}

// printJSON pretty-prints a response body to stdout.
func printJSON(data json.RawMessage) error {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		// Not JSON; print as-is.
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(out.String())
	return nil
}
