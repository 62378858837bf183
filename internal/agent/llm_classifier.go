package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/Rrens/energy-agent/internal/llm"
)

// LLMClassifier asks a tool-calling model to pick the agent
type LLMClassifier struct {
	providers       *llm.Router
	timeout         time.Duration
	maxHistoryChars int
}

// NewLLMClassifier creates a classifier backed by the provider registry
func NewLLMClassifier(providers *llm.Router, timeout time.Duration, maxHistoryChars int) *LLMClassifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LLMClassifier{
		providers:       providers,
		timeout:         timeout,
		maxHistoryChars: maxHistoryChars,
	}
}

// Classify runs one select_agent tool call over the recent conversation
func (c *LLMClassifier) Classify(ctx context.Context, model, message string, history []domain.Message) (Classification, error) {
	provider, model, err := c.providers.Resolve(model)
	if err != nil {
		return Classification{}, err
	}

	agents := make([]string, 0, len(domain.AgentTypes()))
	for _, a := range domain.AgentTypes() {
		agents = append(agents, string(a))
	}

	msgs := llm.Conversation(history, c.maxHistoryChars)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: message})

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := provider.Generate(ctx, llm.Request{
		SystemPrompt: llm.ClassifierPrompt(agents),
		Messages:     msgs,
		Tools:        []llm.Tool{llm.SelectAgentTool(agents)},
		MaxTokens:    128,
	}, model)
	if err != nil {
		return Classification{}, fmt.Errorf("classifier call failed: %w", err)
	}

	name, reason, ok := llm.ParseSelection(resp, agents)
	if !ok {
		return Classification{}, fmt.Errorf("classifier returned no usable selection")
	}
	agent, _ := domain.ParseAgentType(name)
	return Classification{Agent: agent, Method: MethodLLM, Reason: reason}, nil
}
