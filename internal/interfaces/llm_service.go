package interfaces

import "context"

// Message represents a single turn in an LLM conversation
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// LLMMode indicates where completions are served from
type LLMMode string

const (
	LLMModeCloud LLMMode = "cloud"
	LLMModeLocal LLMMode = "local"
)

// LLMService provides chat completions from an AI provider.
// Implementations must honor context cancellation and bound every call
// with their configured timeout.
type LLMService interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	ModelName() string
	GetMode() LLMMode
	Close() error
}
