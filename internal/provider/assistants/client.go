// Package assistants provides the thread/run protocol client: create thread,
// add message, start run, poll to a terminal state, fetch transcript and run
// steps, and submit tool outputs while a run waits on them.
package assistants

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

// Run statuses the poller cares about.
const (
	RunStatusCompleted      = "completed"
	RunStatusRequiresAction = "requires_action"
	RunStatusFailed         = "failed"
	RunStatusCancelled      = "cancelled"
	RunStatusExpired        = "expired"
)

// IsTerminalFailure reports whether a run status means the run is dead.
func IsTerminalFailure(status string) bool {
	switch status {
	case RunStatusFailed, RunStatusCancelled, RunStatusExpired:
		return true
	}
	return false
}

// Client is the thread/run client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// RunRequest represents the run creation request.
type RunRequest struct {
	AssistantID  string `json:"assistant_id"`
	Model        string `json:"model,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// ToolOutput pairs a tool call id with its serialized output for
// submit_tool_outputs.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// CreateThread creates an empty thread and returns its id.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	raw, err := c.post(ctx, "/v1/threads", map[string]interface{}{})
	if err != nil {
		return "", err
	}
	id, _ := raw["id"].(string)
	if id == "" {
		return "", fmt.Errorf("thread creation returned no id")
	}
	return id, nil
}

// AddMessage appends a message to a thread.
func (c *Client) AddMessage(ctx context.Context, threadID, role, content string) error {
	_, err := c.post(ctx, "/v1/threads/"+threadID+"/messages", map[string]interface{}{
		"role":    role,
		"content": content,
	})
	return err
}

// CreateRun starts a run on a thread and returns the raw run object.
func (c *Client) CreateRun(ctx context.Context, threadID string, req *RunRequest) (map[string]interface{}, error) {
	return c.post(ctx, "/v1/threads/"+threadID+"/runs", req)
}

// GetRun fetches the current run object.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (map[string]interface{}, error) {
	return c.get(ctx, "/v1/threads/"+threadID+"/runs/"+runID)
}

// SubmitToolOutputs replays executed tool outputs to a run waiting on them.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (map[string]interface{}, error) {
	return c.post(ctx, "/v1/threads/"+threadID+"/runs/"+runID+"/submit_tool_outputs", map[string]interface{}{
		"tool_outputs": outputs,
	})
}

// ListMessages fetches the thread transcript, newest first.
func (c *Client) ListMessages(ctx context.Context, threadID string) ([]interface{}, error) {
	raw, err := c.get(ctx, "/v1/threads/"+threadID+"/messages")
	if err != nil {
		return nil, err
	}
	data, _ := raw["data"].([]interface{})
	return data, nil
}

// ListRunSteps fetches run-step detail, needed to recover tool and
// file-search evidence absent from the plain transcript.
func (c *Client) ListRunSteps(ctx context.Context, threadID, runID string) ([]interface{}, error) {
	raw, err := c.get(ctx, "/v1/threads/"+threadID+"/runs/"+runID+"/steps")
	if err != nil {
		return nil, err
	}
	data, _ := raw["data"].([]interface{})
	return data, nil
}

// PollRun re-checks the run on an interval until it is completed, waiting on
// tool outputs, or dead. Timeout without a terminal state is an error, never
// a hang.
func (c *Client) PollRun(ctx context.Context, threadID, runID string, interval, timeout time.Duration) (map[string]interface{}, error) {
	deadline := time.Now().Add(timeout)
	for {
		run, err := c.GetRun(ctx, threadID, runID)
		if err != nil {
			return nil, err
		}
		status, _ := run["status"].(string)
		switch {
		case status == RunStatusCompleted || status == RunStatusRequiresAction:
			return run, nil
		case IsTerminalFailure(status):
			return run, fmt.Errorf("run %s entered terminal state %q", runID, status)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("run %s did not reach a terminal state within %s", runID, timeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

func (c *Client) get(ctx context.Context, path string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (map[string]interface{}, error) {
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider error [%d]: %s", resp.StatusCode, string(respBody))
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return result, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", "assistants=v2")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
