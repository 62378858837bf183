package llm

import "context"

// Role is the author of a conversation turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation sent to a provider
type Message struct {
	Role    Role
	Content string
}

// Schema is the JSON-schema subset used to describe tool parameters
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// Tool is a function the model may ask to invoke
type Tool struct {
	Name        string
	Description string
	Parameters  *Schema
}

// ToolCall is a tool invocation requested by the model. Arguments is a JSON object.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Request contains a system prompt, a conversation and a tool registry
type Request struct {
	SystemPrompt string
	Messages     []Message
	Tools        []Tool
	Temperature  float32
	MaxTokens    int
}

// Response contains the model's message and any tool invocations
type Response struct {
	Content    string
	ToolCalls  []ToolCall
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Generate runs one completion over the conversation
	Generate(ctx context.Context, req Request, model string) (*Response, error)
}
