// Package responses provides the stateful continuation client. History lives
// provider-side behind an opaque previous-response identifier; each call only
// ships the new input delta.
package responses

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

// Client is the response-continuation client.
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

// Request represents the response creation request. Input items are
// heterogeneous (user messages, function call outputs), so they stay maps.
type Request struct {
	Model string `json:"model"`

	// Instructions carries the system prompt. Sent on the first call only;
	// the provider carries it forward with the continuation.
	Instructions string `json:"instructions,omitempty"`

	Input []map[string]interface{} `json:"input"`

	// Tools must be resent on every call; the protocol does not remember
	// them between calls.
	Tools []Tool `json:"tools,omitempty"`

	PreviousResponseID string `json:"previous_response_id,omitempty"`
}

// Tool represents a tool definition. Function tools are flat on this wire
// (name next to type); built-in tools carry their own settings.
type Tool struct {
	Type           string                 `json:"type"`
	Name           string                 `json:"name,omitempty"`
	Description    string                 `json:"description,omitempty"`
	Parameters     map[string]interface{} `json:"parameters,omitempty"`
	VectorStoreIDs []string               `json:"vector_store_ids,omitempty"`
}

// UserMessage builds a user input item.
func UserMessage(text string) map[string]interface{} {
	return map[string]interface{}{
		"role":    "user",
		"content": text,
	}
}

// FunctionCallOutput builds a function result input item. The call_id must
// match the id of the function_call output item byte-for-byte.
func FunctionCallOutput(callID, output string) map[string]interface{} {
	return map[string]interface{}{
		"type":    "function_call_output",
		"call_id": callID,
		"output":  output,
	}
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// APIError represents the error details.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// CreateResponse sends a response creation request and returns the raw
// decoded payload for the normalizer.
func (c *Client) CreateResponse(ctx context.Context, req *Request) (map[string]interface{}, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return nil, fmt.Errorf("provider error [%d]: %s (type: %s)", resp.StatusCode, errResp.Error.Message, errResp.Error.Type)
		}
		return nil, fmt.Errorf("provider error [%d]: %s", resp.StatusCode, string(respBody))
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return result, nil
}

// setHeaders sets common request headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
