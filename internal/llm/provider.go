package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Provider generates a reply for a prompt. Offline lesson generation, quiz
// writing, feedback and tutoring all go through it.
type Provider interface {
	// Generate sends req and returns the model output. With req.Schema set
	// the output is JSON that has been validated against the schema;
	// otherwise it is the model's plain text.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID names the model requests are sent to.
	ModelID() string
}

// Request is one prompt.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, asks the provider for structured JSON output.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

// Message is one turn of the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the sender of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema for structured output.
type Schema struct {
	// Name is kebab-case, e.g. "reading-quiz". Used as the tool or schema
	// name by providers that need one.
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the model output.
type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage counts tokens for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Text returns the output as plain text. Providers that wrap plain replies
// in a JSON string literal are unwrapped.
func (r *Response) Text() string {
	raw := strings.TrimSpace(string(r.Content))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(r.Content, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return raw
}

// Decode unmarshals structured output into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Content, v); err != nil {
		return &ErrInvalidResponse{Content: r.Content, Err: err}
	}
	return nil
}

// Prompt builds a single-turn request.
func Prompt(system, user string, schema *Schema, maxTokens int) Request {
	return Request{
		System:    system,
		Messages:  []Message{{Role: RoleUser, Content: user}},
		Schema:    schema,
		MaxTokens: maxTokens,
	}
}
