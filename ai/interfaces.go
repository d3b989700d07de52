package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer runs chat completions against a language model.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete sends msgs to the model and returns its reply.
	//
	// An empty handle makes the call stateless. A non-empty handle continues
	// the conversation recorded under it, or starts a new one if the handle is
	// unknown; the reply is appended to that conversation. The returned
	// Completion carries the handle to continue with.
	Complete(ctx context.Context, msgs []Message, handle string) (Completion, error)
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn sent to a Completer.
type Message struct {
	Role    Role
	Content string
}

// Completion is a model reply.
type Completion struct {
	// Text is the raw reply content.
	Text string

	// Handle continues this conversation; empty for stateless calls.
	Handle string
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and Completer instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Completer returns the chat completion service.
	// The returned Completer is safe for concurrent use.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
