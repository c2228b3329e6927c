package ai

import "context"

// StreamProvider is an optional interface. Providers may implement
// incremental generation; fragments arrive on the first channel in order,
// a mid-stream failure arrives on the second. Both channels are closed
// when the stream ends.
type StreamProvider interface {
	StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error)
}
