// Package langchain adapts langchaingo chat models (Ollama, Anthropic, Bedrock)
// to the llm.Provider interface.
package langchain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Rrens/energy-agent/internal/llm"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
)

// ModelBuilder creates a langchaingo model for the given model name
type ModelBuilder func(model string) (llms.Model, error)

// Provider implements llm.Provider over a langchaingo model
type Provider struct {
	name         string
	defaultModel string
	models       []string
	configured   bool
	build        ModelBuilder
}

// NewProvider wraps an arbitrary langchaingo model builder
func NewProvider(name, defaultModel string, models []string, configured bool, build ModelBuilder) *Provider {
	return &Provider{
		name:         name,
		defaultModel: defaultModel,
		models:       models,
		configured:   configured,
		build:        build,
	}
}

// NewOllama creates a provider for a local Ollama server
func NewOllama(host, defaultModel string) *Provider {
	if defaultModel == "" {
		defaultModel = "llama3"
	}
	return NewProvider("ollama", defaultModel,
		[]string{"llama3", "llama3.1", "mistral", "qwen2.5"},
		host != "",
		func(model string) (llms.Model, error) {
			return ollama.New(ollama.WithServerURL(host), ollama.WithModel(model))
		})
}

// NewAnthropic creates a provider for the Anthropic messages API
func NewAnthropic(apiKey, defaultModel string) *Provider {
	if defaultModel == "" {
		defaultModel = "claude-3-5-sonnet-20241022"
	}
	return NewProvider("anthropic", defaultModel,
		[]string{"claude-3-5-sonnet-20241022", "claude-3-5-haiku-20241022", "claude-3-opus-20240229"},
		apiKey != "",
		func(model string) (llms.Model, error) {
			return anthropic.New(anthropic.WithToken(apiKey), anthropic.WithModel(model))
		})
}

// NewBedrock creates a provider for Bedrock-hosted models using the default AWS credential chain
func NewBedrock(enabled bool, defaultModel string) *Provider {
	return NewProvider("bedrock", defaultModel,
		[]string{defaultModel},
		enabled && defaultModel != "",
		func(model string) (llms.Model, error) {
			return bedrock.New(bedrock.WithModel(model))
		})
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return p.name
}

// AvailableModels returns list of supported models
func (p *Provider) AvailableModels() []string {
	return p.models
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

// IsConfigured checks if provider has valid credentials
func (p *Provider) IsConfigured() bool {
	return p.configured
}

// Generate runs one GenerateContent call with optional tools
func (p *Provider) Generate(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("%s provider is not configured", p.name)
	}
	if model == "" {
		model = p.defaultModel
	}

	m, err := p.build(model)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", p.name, err)
	}

	opts := []llms.CallOption{llms.WithTemperature(float64(req.Temperature))}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if tools := toTools(req.Tools); len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools))
	}

	start := time.Now()
	resp, err := m.GenerateContent(ctx, toMessages(req), opts...)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("%s generation error: %w", p.name, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from %s", p.name)
	}

	choice := resp.Choices[0]
	out := &llm.Response{
		Content:    choice.Content,
		Model:      model,
		TokensUsed: totalTokens(choice.GenerationInfo),
		LatencyMs:  latency,
	}
	for _, call := range choice.ToolCalls {
		if call.FunctionCall == nil {
			continue
		}
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        call.ID,
			Name:      call.FunctionCall.Name,
			Arguments: call.FunctionCall.Arguments,
		})
	}
	if len(out.ToolCalls) == 0 && choice.FuncCall != nil {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			Name:      choice.FuncCall.Name,
			Arguments: choice.FuncCall.Arguments,
		})
	}
	return out, nil
}

func toMessages(req llm.Request) []llms.MessageContent {
	msgs := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}
	for _, m := range req.Messages {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case llm.RoleAssistant:
			role = llms.ChatMessageTypeAI
		case llm.RoleSystem:
			role = llms.ChatMessageTypeSystem
		}
		msgs = append(msgs, llms.TextParts(role, m.Content))
	}
	return msgs
}

func toTools(tools []llm.Tool) []llms.Tool {
	out := make([]llms.Tool, 0, len(tools))
	for _, tool := range tools {
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return out
}

// totalTokens reads the token count that each backend reports under its own key
func totalTokens(info map[string]any) int {
	for _, key := range []string{"TotalTokens", "total_tokens"} {
		switch v := info[key].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		case json.Number:
			n, _ := v.Int64()
			return int(n)
		}
	}

	in, _ := info["InputTokens"].(int)
	outTokens, _ := info["OutputTokens"].(int)
	return in + outTokens
}
