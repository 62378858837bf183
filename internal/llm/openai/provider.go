package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Rrens/energy-agent/internal/llm"
	goopenai "github.com/sashabaranov/go-openai"
)

// Provider implements llm.Provider for OpenAI and OpenAI-compatible APIs
type Provider struct {
	name         string
	apiKey       string
	defaultModel string
	models       []string
	client       *goopenai.Client
}

// NewProvider creates a new OpenAI provider
func NewProvider(apiKey, defaultModel string) *Provider {
	if defaultModel == "" {
		defaultModel = "gpt-4o-mini"
	}
	return newProvider("openai", apiKey, "", defaultModel, []string{
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4-turbo",
		"gpt-3.5-turbo",
	})
}

// NewDeepSeekProvider creates a provider for the DeepSeek OpenAI-compatible endpoint
func NewDeepSeekProvider(apiKey, baseURL, defaultModel string) *Provider {
	if defaultModel == "" {
		defaultModel = "deepseek-chat"
	}
	if baseURL == "" {
		baseURL = "https://api.deepseek.com/v1"
	}
	return newProvider("deepseek", apiKey, baseURL, defaultModel, []string{
		"deepseek-chat",
		"deepseek-reasoner",
	})
}

func newProvider(name, apiKey, baseURL, defaultModel string, models []string) *Provider {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Provider{
		name:         name,
		apiKey:       apiKey,
		defaultModel: defaultModel,
		models:       models,
		client:       goopenai.NewClientWithConfig(cfg),
	}
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
	return p.apiKey != ""
}

// Generate runs a chat completion with optional function tools
func (p *Provider) Generate(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("%s provider is not configured (missing API key)", p.name)
	}
	if model == "" {
		model = p.defaultModel
	}

	chatReq := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    toMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, tool := range req.Tools {
		chatReq.Tools = append(chatReq.Tools, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", p.name)
	}

	msg := resp.Choices[0].Message
	out := &llm.Response{
		Content:    msg.Content,
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
		LatencyMs:  latency,
	}
	for _, call := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	// Older models answer with the deprecated function_call field
	if msg.FunctionCall != nil && len(out.ToolCalls) == 0 {
		args := msg.FunctionCall.Arguments
		if !json.Valid([]byte(args)) {
			args = "{}"
		}
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{Name: msg.FunctionCall.Name, Arguments: args})
	}
	return out, nil
}

func toMessages(req llm.Request) []goopenai.ChatCompletionMessage {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, m := range req.Messages {
		role := goopenai.ChatMessageRoleUser
		switch m.Role {
		case llm.RoleAssistant:
			role = goopenai.ChatMessageRoleAssistant
		case llm.RoleSystem:
			role = goopenai.ChatMessageRoleSystem
		}
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return msgs
}
