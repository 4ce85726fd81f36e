// Package simulator generates synthetic user turns for multi-turn test
// conversations by role-playing a persona against the transcript so far.
package simulator

import (
	"context"
	"fmt"
	"strings"

	"github.com/promptbench/engine/internal/domain"
	"github.com/promptbench/engine/internal/provider/openai"
)

// Sentinel is the literal token the persona model emits when the simulated
// user considers the conversation concluded.
const Sentinel = "CONVERSATION_COMPLETE"

const placeholderMessage = "Please continue."

const defaultPersona = "a curious user evaluating the assistant's answers"

// Simulator produces the next user message for a conversation, or signals
// natural termination.
type Simulator interface {
	// NextUserMessage returns the next user turn. It returns ("", false) when
	// the simulated user considers the conversation over.
	NextUserMessage(ctx context.Context, personaPrompt string, history []domain.Message, turn int) (string, bool, error)
}

// Persona drives a secondary model to role-play the interlocutor.
type Persona struct {
	client *openai.Client
	model  string
}

func NewPersona(client *openai.Client, model string) *Persona {
	return &Persona{client: client, model: model}
}

func (p *Persona) NextUserMessage(ctx context.Context, personaPrompt string, history []domain.Message, turn int) (string, bool, error) {
	req := &openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatMessage{
			{Role: "system", Content: buildSystemPrompt(personaPrompt)},
			{Role: "user", Content: buildUserPrompt(history, turn)},
		},
	}

	raw, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", false, fmt.Errorf("simulator call failed: %w", err)
	}

	text := firstChoiceContent(raw)
	if strings.Contains(text, Sentinel) {
		return "", false, nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false, nil
	}
	return text, true, nil
}

func buildSystemPrompt(personaPrompt string) string {
	persona := strings.TrimSpace(personaPrompt)
	if persona == "" {
		persona = defaultPersona
	}
	var b strings.Builder
	b.WriteString("You are role-playing ")
	b.WriteString(persona)
	b.WriteString(". Reply with the user's next message only, no commentary.\n")
	b.WriteString("If the user would consider the conversation finished, reply with exactly ")
	b.WriteString(Sentinel)
	b.WriteString(".")
	return b.String()
}

func buildUserPrompt(history []domain.Message, turn int) string {
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, msg := range history {
		switch msg.Role {
		case domain.RoleUser:
			b.WriteString("User: ")
		case domain.RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nWrite the user's message for turn %d.", turn)
	return b.String()
}

func firstChoiceContent(raw map[string]interface{}) string {
	choices, _ := raw["choices"].([]interface{})
	if len(choices) == 0 {
		return ""
	}
	choice, _ := choices[0].(map[string]interface{})
	message, _ := choice["message"].(map[string]interface{})
	content, _ := message["content"].(string)
	return content
}

// Fixed is the no-live-call simulator: it always produces the same
// placeholder message so simulated executions stay reproducible.
type Fixed struct{}

func NewFixed() *Fixed { return &Fixed{} }

func (*Fixed) NextUserMessage(context.Context, string, []domain.Message, int) (string, bool, error) {
	return placeholderMessage, true, nil
}
