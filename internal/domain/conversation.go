package domain

import (
	"encoding/json"
	"fmt"
)

// Message is one turn-entry of a conversation. Created once per turn per
// role and immutable after creation. Messages are ordered by turn, the user
// message preceding the assistant message within a turn.
type Message struct {
	Role                   Role                     `json:"role"`
	Content                string                   `json:"content"`
	Turn                   int                      `json:"turn"`
	Usage                  *Usage                   `json:"usage,omitempty"`
	ToolCalls              []ToolCall               `json:"tool_calls,omitempty"`
	FileSearchResults      []map[string]interface{} `json:"file_search_results,omitempty"`
	WebSearchResults       []map[string]interface{} `json:"web_search_results,omitempty"`
	CodeInterpreterResults []map[string]interface{} `json:"code_interpreter_results,omitempty"`
	ProviderMetadata       map[string]interface{}   `json:"provider_metadata,omitempty"`
}

// ConversationResult is the orchestrator's output: the full ordered message
// sequence plus terminal status and protocol metadata. It is constructed once
// at the end of an execution and written to the record store exactly once.
type ConversationResult struct {
	Messages         []Message              `json:"messages"`
	TotalTurns       int                    `json:"total_turns"`
	Status           ExecutionStatus        `json:"status"`
	ProviderMetadata map[string]interface{} `json:"provider_metadata,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// ToMap serializes the result to a plain nested-map representation for the
// persistence collaborator.
func (r *ConversationResult) ToMap() map[string]interface{} {
	encoded, err := json.Marshal(r)
	if err != nil {
		// All fields are JSON-encodable value types.
		panic(fmt.Sprintf("conversation result not encodable: %v", err))
	}
	var m map[string]interface{}
	if err := json.Unmarshal(encoded, &m); err != nil {
		panic(fmt.Sprintf("conversation result round-trip failed: %v", err))
	}
	return m
}

// ResultFromMap rebuilds a ConversationResult from its nested-map
// representation. ToMap followed by ResultFromMap reproduces an equal value.
func ResultFromMap(m map[string]interface{}) (*ConversationResult, error) {
	encoded, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result map: %w", err)
	}
	var result ConversationResult
	if err := json.Unmarshal(encoded, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result map: %w", err)
	}
	return &result, nil
}
