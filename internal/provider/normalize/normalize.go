// Package normalize converts raw provider payloads into the canonical
// response shape. One normalizer exists per provider protocol.
//
// Normalizers never fail on missing optional fields; each absent field gets
// its documented default (empty string, empty slice, zero counters). The only
// error case is a payload that is not a well-formed map at all.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/promptbench/engine/internal/domain"
)

// Func is a single-protocol normalizer.
type Func func(raw interface{}) (*domain.CanonicalResponse, error)

// ForProtocol returns the normalizer for the given protocol.
func ForProtocol(p domain.Protocol) (Func, error) {
	switch p {
	case domain.ProtocolStateless:
		return Stateless, nil
	case domain.ProtocolContinuation:
		return Continuation, nil
	case domain.ProtocolThreadRun:
		return ThreadRun, nil
	default:
		return nil, fmt.Errorf("no normalizer for protocol %q", p)
	}
}

// Stateless normalizes a chat-completions payload: text and tool calls live
// under choices[0].message, usage under prompt/completion/total token keys.
func Stateless(raw interface{}) (*domain.CanonicalResponse, error) {
	payload, err := requireMap(raw)
	if err != nil {
		return nil, err
	}

	resp := domain.NewCanonicalResponse()
	resp.Raw = payload
	resp.Model = getString(payload, "model")
	resp.Usage = extractUsage(getMap(payload, "usage"), "prompt_tokens", "completion_tokens")

	choices := getSlice(payload, "choices")
	if len(choices) > 0 {
		if message := getMap(asMap(choices[0]), "message"); message != nil {
			resp.Text = getString(message, "content")
			for _, rawCall := range getSlice(message, "tool_calls") {
				if call, ok := decodeToolCall(asMap(rawCall)); ok {
					resp.ToolCalls = append(resp.ToolCalls, call)
				}
			}
		}
	}

	if id := getString(payload, "id"); id != "" {
		resp.ProviderMetadata["completion_id"] = id
	}
	return resp, nil
}

// Continuation normalizes a response-continuation payload: output items carry
// message text blocks, function calls and built-in tool call records; usage
// uses input/output token keys.
func Continuation(raw interface{}) (*domain.CanonicalResponse, error) {
	payload, err := requireMap(raw)
	if err != nil {
		return nil, err
	}

	resp := domain.NewCanonicalResponse()
	resp.Raw = payload
	resp.Model = getString(payload, "model")
	resp.Usage = extractUsage(getMap(payload, "usage"), "input_tokens", "output_tokens")

	var textParts []string
	for _, rawItem := range getSlice(payload, "output") {
		item := asMap(rawItem)
		if item == nil {
			continue
		}
		switch getString(item, "type") {
		case "message":
			for _, rawBlock := range getSlice(item, "content") {
				block := asMap(rawBlock)
				if getString(block, "type") == "output_text" {
					if text := getString(block, "text"); text != "" {
						textParts = append(textParts, text)
					}
				}
			}
		case "function_call":
			if call, ok := decodeToolCall(item); ok {
				resp.ToolCalls = append(resp.ToolCalls, call)
			}
		case "file_search_call":
			resp.FileSearchResults = append(resp.FileSearchResults, item)
		case "web_search_call":
			resp.WebSearchResults = append(resp.WebSearchResults, item)
		case "code_interpreter_call":
			resp.CodeInterpreterResults = append(resp.CodeInterpreterResults, item)
		}
	}
	resp.Text = strings.Join(textParts, "\n")
	if resp.Text == "" {
		// Convenience field some payloads carry at the top level.
		resp.Text = getString(payload, "output_text")
	}

	if id := getString(payload, "id"); id != "" {
		resp.ProviderMetadata["response_id"] = id
	}
	return resp, nil
}

// ThreadRun normalizes the composite payload the thread/run adapter
// assembles: the run object plus transcript messages and run steps.
func ThreadRun(raw interface{}) (*domain.CanonicalResponse, error) {
	payload, err := requireMap(raw)
	if err != nil {
		return nil, err
	}

	resp := domain.NewCanonicalResponse()
	resp.Raw = payload

	run := getMap(payload, "run")
	if run != nil {
		resp.Model = getString(run, "model")
		resp.Usage = extractUsage(getMap(run, "usage"), "prompt_tokens", "completion_tokens")
		if threadID := getString(run, "thread_id"); threadID != "" {
			resp.ProviderMetadata["thread_id"] = threadID
		}
		if runID := getString(run, "id"); runID != "" {
			resp.ProviderMetadata["run_id"] = runID
		}

		// A run paused on requires_action carries the pending tool calls.
		if action := getMap(run, "required_action"); action != nil {
			if submit := getMap(action, "submit_tool_outputs"); submit != nil {
				for _, rawCall := range getSlice(submit, "tool_calls") {
					if call, ok := decodeToolCall(asMap(rawCall)); ok {
						resp.ToolCalls = append(resp.ToolCalls, call)
					}
				}
			}
		}
	}

	var textParts []string
	for _, rawMsg := range getSlice(payload, "messages") {
		msg := asMap(rawMsg)
		if getString(msg, "role") != "assistant" {
			continue
		}
		for _, rawBlock := range getSlice(msg, "content") {
			block := asMap(rawBlock)
			if getString(block, "type") != "text" {
				continue
			}
			if textObj := getMap(block, "text"); textObj != nil {
				if value := getString(textObj, "value"); value != "" {
					textParts = append(textParts, value)
				}
			}
		}
	}
	resp.Text = strings.Join(textParts, "\n")

	// Run steps hold the tool evidence absent from the plain transcript.
	for _, rawStep := range getSlice(payload, "run_steps") {
		step := asMap(rawStep)
		details := getMap(step, "step_details")
		if details == nil {
			continue
		}
		for _, rawCall := range getSlice(details, "tool_calls") {
			call := asMap(rawCall)
			switch getString(call, "type") {
			case "file_search":
				resp.FileSearchResults = append(resp.FileSearchResults, call)
			case "code_interpreter":
				resp.CodeInterpreterResults = append(resp.CodeInterpreterResults, call)
			}
		}
	}

	return resp, nil
}

// decodeToolCall tolerates the three physical call shapes seen on the wire:
// nested {id, function:{name, arguments}}, continuation-style {call_id, name,
// arguments} and flat {id, function_name, arguments}.
func decodeToolCall(m map[string]interface{}) (domain.ToolCall, bool) {
	if m == nil {
		return domain.ToolCall{}, false
	}

	call := domain.ToolCall{Arguments: map[string]interface{}{}}

	if fn := getMap(m, "function"); fn != nil {
		call.ID = getString(m, "id")
		call.FunctionName = getString(fn, "name")
		call.Arguments, call.RawArguments = parseArguments(fn["arguments"])
	} else if name := getString(m, "name"); name != "" {
		// The continuation protocol correlates outputs by call_id, not the
		// item id; prefer it so the replay matches.
		call.ID = getString(m, "call_id")
		if call.ID == "" {
			call.ID = getString(m, "id")
		}
		call.FunctionName = name
		call.Arguments, call.RawArguments = parseArguments(m["arguments"])
	} else {
		call.ID = getString(m, "id")
		call.FunctionName = getString(m, "function_name")
		call.Arguments, call.RawArguments = parseArguments(m["arguments"])
	}

	if call.FunctionName == "" {
		return domain.ToolCall{}, false
	}
	return call, true
}

// parseArguments turns a raw arguments value into a map. A JSON-encoded
// string is parsed; a parse failure degrades to an empty map, never an error.
func parseArguments(v interface{}) (map[string]interface{}, string) {
	switch args := v.(type) {
	case map[string]interface{}:
		encoded, _ := json.Marshal(args)
		return args, string(encoded)
	case string:
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(args), &parsed); err != nil || parsed == nil {
			return map[string]interface{}{}, args
		}
		return parsed, args
	default:
		return map[string]interface{}{}, ""
	}
}

func extractUsage(usage map[string]interface{}, promptKey, completionKey string) domain.Usage {
	if usage == nil {
		return domain.Usage{}
	}
	u := domain.Usage{
		PromptTokens:     getInt(usage, promptKey),
		CompletionTokens: getInt(usage, completionKey),
		TotalTokens:      getInt(usage, "total_tokens"),
	}
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}

func requireMap(raw interface{}) (map[string]interface{}, error) {
	payload, ok := raw.(map[string]interface{})
	if !ok || payload == nil {
		return nil, fmt.Errorf("malformed provider payload: expected an object, got %T", raw)
	}
	return payload, nil
}

func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func getMap(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	return asMap(m[key])
}

func getSlice(m map[string]interface{}, key string) []interface{} {
	if m == nil {
		return nil
	}
	s, _ := m[key].([]interface{})
	return s
}

func getString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func getInt(m map[string]interface{}, key string) int {
	if m == nil {
		return 0
	}
	switch n := m[key].(type) {
	case float64:
		if n < 0 {
			return 0
		}
		return int(n)
	case int:
		if n < 0 {
			return 0
		}
		return n
	case json.Number:
		if v, err := n.Int64(); err == nil && v >= 0 {
			return int(v)
		}
	}
	return 0
}
