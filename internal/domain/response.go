package domain

// Usage holds token counts for a single provider call or an aggregate of
// several. Fields are never negative; a missing counter is zero.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the element-wise sum of two usages.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// IsZero reports whether no tokens were counted.
func (u Usage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

// ToolCall is a model-issued request to invoke a named function. ID correlates
// the call with its executed output across the response and the replay payload,
// and must be preserved byte-for-byte through the resolution loop.
type ToolCall struct {
	ID           string                 `json:"id"`
	FunctionName string                 `json:"function_name"`
	Arguments    map[string]interface{} `json:"arguments"`

	// RawArguments keeps the provider's original argument encoding for
	// wire-exact replay. Not part of the persisted shape.
	RawArguments string `json:"-"`
}

// CanonicalResponse is the normalized, protocol-agnostic shape every adapter
// produces from a raw provider payload.
//
// Invariants: Text is never reported as missing (empty string is the floor),
// ToolCalls is never nil (empty slice is the floor), usage counters default
// to zero.
type CanonicalResponse struct {
	Text                   string
	Usage                  Usage
	Model                  string
	ToolCalls              []ToolCall
	FileSearchResults      []map[string]interface{}
	WebSearchResults       []map[string]interface{}
	CodeInterpreterResults []map[string]interface{}
	ProviderMetadata       map[string]interface{}

	// Raw is the unmodified provider payload, retained for diagnostics only.
	Raw map[string]interface{}
}

// NewCanonicalResponse returns a response with the documented floors applied.
func NewCanonicalResponse() *CanonicalResponse {
	return &CanonicalResponse{
		ToolCalls:              []ToolCall{},
		FileSearchResults:      []map[string]interface{}{},
		WebSearchResults:       []map[string]interface{}{},
		CodeInterpreterResults: []map[string]interface{}{},
		ProviderMetadata:       map[string]interface{}{},
	}
}

// HasToolCalls reports whether the model is waiting on tool outputs.
func (r *CanonicalResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}
