package domain

// ToolDefinition describes a function the model may call during a turn.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// ExecutionParams is the opaque parameter bag a caller supplies for one test
// execution. The engine reads it once and never mutates it.
type ExecutionParams struct {
	ExecutionID string   `json:"execution_id,omitempty"`
	Protocol    Protocol `json:"protocol"`
	Model       string   `json:"model,omitempty"`

	// AssistantID is required by the thread/run protocol only.
	AssistantID string `json:"assistant_id,omitempty"`

	SystemPrompt     string `json:"system_prompt,omitempty"`
	FirstUserMessage string `json:"first_user_message"`

	// PersonaPrompt drives the interlocutor simulator on turns after the
	// first. Ignored when MaxTurns is 1.
	PersonaPrompt string `json:"persona_prompt,omitempty"`

	MaxTurns int `json:"max_turns,omitempty"`

	Tools          []ToolDefinition `json:"tools,omitempty"`
	VectorStoreIDs []string         `json:"vector_store_ids,omitempty"`

	// Fixtures maps function names to canned results for simulated tool
	// execution. A string fixture is returned verbatim; any other value is
	// JSON-encoded.
	Fixtures map[string]interface{} `json:"fixtures,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
