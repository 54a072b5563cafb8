// Package client is an HTTP client for the agentbox daemon API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentbox/agentbox/pkg/types"
)

// Client talks to one agentbox daemon.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new agentbox API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// doRequest performs an HTTP request with API key authentication.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	reqURL := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}

	return resp, nil
}

// apiError turns a non-success response into an error, preserving the
// typed kind when the daemon sent one.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var typed types.Error
	if err := json.Unmarshal(body, &typed); err == nil && typed.Kind != "" {
		return &typed
	}
	return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
}

// invoke dispatches one tool call and decodes the result into out.
func (c *Client) invoke(ctx context.Context, tool string, payload, out interface{}) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/tools/"+tool, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// RunCommand executes a shell command in the sandbox.
func (c *Client) RunCommand(ctx context.Context, req types.ExecRequest) (*types.ExecResult, error) {
	var res types.ExecResult
	if err := c.invoke(ctx, "run_command", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// PollCommand returns a snapshot of a background process.
func (c *Client) PollCommand(ctx context.Context, handle string) (*types.ProcessSnapshot, error) {
	var snap types.ProcessSnapshot
	if err := c.invoke(ctx, "poll_command", map[string]string{"handle": handle}, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// CollectCommand returns the final result of a finished background
// process and releases its registry entry.
func (c *Client) CollectCommand(ctx context.Context, handle string) (*types.ExecResult, error) {
	var res types.ExecResult
	if err := c.invoke(ctx, "collect_command", map[string]string{"handle": handle}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ReadFile reads a page of lines from a text file.
func (c *Client) ReadFile(ctx context.Context, req types.ReadRequest) (*types.ReadResult, error) {
	var res types.ReadResult
	if err := c.invoke(ctx, "read_file", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// WriteFile creates or overwrites a file.
func (c *Client) WriteFile(ctx context.Context, req types.WriteRequest) (*types.WriteResult, error) {
	var res types.WriteResult
	if err := c.invoke(ctx, "write_file", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// EditFile performs an exact-substring substitution in a file.
func (c *Client) EditFile(ctx context.Context, req types.EditRequest) (*types.EditResult, error) {
	var res types.EditResult
	if err := c.invoke(ctx, "edit_file", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListProcesses lists the handles of live background processes.
func (c *Client) ListProcesses(ctx context.Context) ([]string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/processes", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var result struct {
		Handles []string `json:"handles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result.Handles, nil
}

// KillProcess terminates a background process.
func (c *Client) KillProcess(ctx context.Context, handle string) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/processes/"+handle, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

// CreatePTY starts an interactive shell session on the daemon.
func (c *Client) CreatePTY(ctx context.Context, cols, rows uint16) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/pty", map[string]uint16{
		"cols": cols,
		"rows": rows,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", apiError(resp)
	}

	var result struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return result.SessionID, nil
}

// KillPTY terminates an interactive session.
func (c *Client) KillPTY(ctx context.Context, sessionID string) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/pty/"+sessionID, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}
