// Package chat generates answer text from a conversation window over
// an OpenAI-compatible completion API, with a bounded TTL cache for
// near-deterministic requests.
package chat

import "context"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation window.
type Message struct {
	Role    Role
	Content string
}

// Request is a single answer-generation call. Temperature controls
// sampling randomness; only near-zero temperatures produce answers
// stable enough to memoize.
type Request struct {
	Messages    []Message
	Model       string
	Temperature float32
}

// Generator produces answer text for a conversation window.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Close() error
}
