// Package llm defines the provider-agnostic chat streaming abstraction and
// its OpenAI-compatible and Anthropic-compatible adapters.
package llm

import "fmt"

// ProviderKind selects the wire protocol of a provider.
type ProviderKind string

const (
	KindOpenAI    ProviderKind = "openai"
	KindAnthropic ProviderKind = "anthropic"
)

// ParseProviderKind accepts the canonical names plus the "-compatible" aliases.
func ParseProviderKind(s string) (ProviderKind, error) {
	switch s {
	case "openai", "openai-compatible":
		return KindOpenAI, nil
	case "anthropic", "anthropic-compatible":
		return KindAnthropic, nil
	default:
		return "", fmt.Errorf("llm: unsupported provider type %q", s)
	}
}

// ProviderConfig identifies one provider endpoint. Immutable per call.
type ProviderConfig struct {
	Kind    ProviderKind `json:"type"`
	BaseURL string       `json:"baseUrl"`
	APIKey  string       `json:"apiKey"`
	Model   string       `json:"model"`
}

// Complete reports whether every field needed for a chat call is set.
func (c ProviderConfig) Complete() bool {
	return c.Kind != "" && c.BaseURL != "" && c.APIKey != "" && c.Model != ""
}

// Role values for Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Image is an inline image attached to a message.
type Image struct {
	Data     string `json:"data"` // base64, no data: prefix
	MimeType string `json:"mimeType"`
}

// Message represents a single turn in a conversation.
type Message struct {
	Role    string
	Content string
	Image   *Image
}

// ChatRequest is the input for a streaming chat completion.
type ChatRequest struct {
	// Model overrides the provider default when non-empty.
	Model    string
	Messages []Message
}

// ChatResponse is the outcome of a fully consumed stream.
type ChatResponse struct {
	Content   string // concatenation of every delivered fragment
	Fragments int
	Stopped   bool // consumer abandoned the stream early
}

// ModelInfo is one entry of a provider's model listing.
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
