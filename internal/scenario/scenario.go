// Package scenario loads test scenario files: YAML documents describing one
// or more executions to run against a provider.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/promptbench/engine/internal/domain"
)

// Scenario is one YAML scenario file.
type Scenario struct {
	Name       string      `yaml:"name"`
	Executions []Execution `yaml:"executions"`
}

// Execution is one entry in a scenario file. Field names mirror the
// execution parameter bag.
type Execution struct {
	ExecutionID      string                 `yaml:"execution_id"`
	Protocol         string                 `yaml:"protocol"`
	Model            string                 `yaml:"model"`
	AssistantID      string                 `yaml:"assistant_id"`
	SystemPrompt     string                 `yaml:"system_prompt"`
	FirstUserMessage string                 `yaml:"first_user_message"`
	PersonaPrompt    string                 `yaml:"persona_prompt"`
	MaxTurns         int                    `yaml:"max_turns"`
	VectorStoreIDs   []string               `yaml:"vector_store_ids"`
	Tools            []Tool                 `yaml:"tools"`
	Fixtures         map[string]interface{} `yaml:"fixtures"`
	Metadata         map[string]interface{} `yaml:"metadata"`
}

// Tool is a function tool declaration in a scenario file.
type Tool struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	Parameters  map[string]interface{} `yaml:"parameters"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(data)
}

// Parse decodes scenario YAML and validates every execution entry.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if len(sc.Executions) == 0 {
		return nil, fmt.Errorf("scenario %q has no executions", sc.Name)
	}

	for i, exec := range sc.Executions {
		if exec.FirstUserMessage == "" {
			return nil, fmt.Errorf("scenario %q execution %d: first_user_message is required", sc.Name, i+1)
		}
		switch domain.Protocol(exec.Protocol) {
		case domain.ProtocolStateless, domain.ProtocolContinuation, domain.ProtocolThreadRun:
		case "":
			return nil, fmt.Errorf("scenario %q execution %d: protocol is required", sc.Name, i+1)
		default:
			return nil, fmt.Errorf("scenario %q execution %d: unknown protocol %q", sc.Name, i+1, exec.Protocol)
		}
		if domain.Protocol(exec.Protocol) == domain.ProtocolThreadRun && exec.AssistantID == "" {
			return nil, fmt.Errorf("scenario %q execution %d: thread_run requires assistant_id", sc.Name, i+1)
		}
	}
	return &sc, nil
}

// Params converts a scenario entry to execution parameters.
func (e Execution) Params() domain.ExecutionParams {
	params := domain.ExecutionParams{
		ExecutionID:      e.ExecutionID,
		Protocol:         domain.Protocol(e.Protocol),
		Model:            e.Model,
		AssistantID:      e.AssistantID,
		SystemPrompt:     e.SystemPrompt,
		FirstUserMessage: e.FirstUserMessage,
		PersonaPrompt:    e.PersonaPrompt,
		MaxTurns:         e.MaxTurns,
		VectorStoreIDs:   e.VectorStoreIDs,
		Fixtures:         e.Fixtures,
		Metadata:         e.Metadata,
	}
	for _, tool := range e.Tools {
		params.Tools = append(params.Tools, domain.ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		})
	}
	return params
}
