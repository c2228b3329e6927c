package ai

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider produces a complete assistant reply for an ordered conversation.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Embedder maps text to a fixed-length vector for similarity comparison.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
