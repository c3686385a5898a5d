// Package llm defines the model-provider contract shared by every LLM
// plug-in (internal/llm/openai, internal/llm/ollama).
//
// Tool invocation in this system is a skill-authored instruction
// routed through internal/toolclient rather than LLM-native function
// calling, so function-call-specific request/response shapes have no
// caller here and were dropped (see DESIGN.md).
package llm

import "context"

// Message represents a chat message for LLM communication.
type Message struct {
	Role             string `json:"role"`                        // "user", "assistant", "system"
	Content          string `json:"content"`                     // The message text
	ReasoningContent string `json:"reasoning_content,omitempty"` // Native thinking output (e.g. DeepSeek-R1)
}

// StreamCallback is invoked for each chunk of streamed text.
// Implementations should be lightweight; heavy work should be deferred.
type StreamCallback func(chunk string)

// Provider defines the interface for all LLM implementations. Any
// OpenAI-compatible endpoint (litellm, Ollama, Azure, vLLM, etc.) or
// Ollama's native API can be used by implementing this interface.
type Provider interface {
	// CallLLM sends messages to the LLM and returns the complete response.
	CallLLM(ctx context.Context, messages []Message) (Message, error)

	// CallLLMStream sends messages and streams the response token-by-token.
	// Each chunk of text triggers the onChunk callback.
	// Returns the full assembled message once streaming finishes.
	// If the provider does not support streaming, it may fall back to CallLLM.
	CallLLMStream(ctx context.Context, messages []Message, onChunk StreamCallback) (Message, error)

	// Name returns the provider/model identifier.
	Name() string
}

// Role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
