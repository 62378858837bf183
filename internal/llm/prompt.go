package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/tmc/langchaingo/textsplitter"
)

// SelectAgentToolName is the tool the classifier model calls with its choice
const SelectAgentToolName = "select_agent"

// ClassifierPrompt creates the system prompt for agent selection
func ClassifierPrompt(agents []string) string {
	return fmt.Sprintf(`You route questions for an energy engineering assistant to exactly one specialist agent.

Agents:
- petrophysics: well log analysis, porosity, shale volume, water saturation, formation evaluation
- maintenance: equipment health, pumps, compressors, failure prediction, maintenance schedules
- renewable: wind farm siting, turbine layout, energy yield, carbon offset
- edicraft: well catalog search, listing wells by field or operator, stored well files

Rules:
1. Call the %s tool exactly once
2. Choose one of: %s
3. When unsure, choose petrophysics`, SelectAgentToolName, strings.Join(agents, ", "))
}

// SelectAgentTool describes the classifier tool over the given agent names
func SelectAgentTool(agents []string) Tool {
	return Tool{
		Name:        SelectAgentToolName,
		Description: "Select the specialist agent that should answer the user's question",
		Parameters: &Schema{
			Type: "object",
			Properties: map[string]*Schema{
				"agent": {
					Type:        "string",
					Description: "The agent name",
					Enum:        agents,
				},
				"reason": {
					Type:        "string",
					Description: "One sentence explaining the choice",
				},
			},
			Required: []string{"agent"},
		},
	}
}

type agentSelection struct {
	Agent  string `json:"agent"`
	Reason string `json:"reason"`
}

// ParseSelection extracts the selected agent from a classifier response.
// Tool calls win; a bare agent name in the text is accepted as a fallback.
func ParseSelection(resp *Response, agents []string) (agent, reason string, ok bool) {
	if resp == nil {
		return "", "", false
	}

	allowed := make(map[string]struct{}, len(agents))
	for _, a := range agents {
		allowed[a] = struct{}{}
	}

	for _, call := range resp.ToolCalls {
		if call.Name != SelectAgentToolName {
			continue
		}
		var sel agentSelection
		if err := json.Unmarshal([]byte(call.Arguments), &sel); err != nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(sel.Agent))
		if _, found := allowed[name]; found {
			return name, sel.Reason, true
		}
	}

	text := strings.ToLower(strings.Trim(strings.TrimSpace(resp.Content), "`\"'."))
	if _, found := allowed[text]; found {
		return text, "", true
	}
	return "", "", false
}

// TitleRequest builds the request that names a new chat session
func TitleRequest(firstMessage string) Request {
	return Request{
		SystemPrompt: "Write a short title (at most 6 words) for a chat that starts with the user's message. Reply with the title only.",
		Messages:     []Message{{Role: RoleUser, Content: firstMessage}},
		Temperature:  0.2,
		MaxTokens:    24,
	}
}

// CleanTitle trims quotes, markdown and trailing punctuation from a generated title
func CleanTitle(content string) string {
	title := strings.TrimSpace(content)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimPrefix(title, "Title:")
	title = strings.Trim(title, " \t\"'`*#.")
	if len([]rune(title)) > 80 {
		title = string([]rune(title)[:80])
	}
	return title
}

// Conversation converts stored history into provider messages, clipping each
// turn to maxChars so a long artifact dump cannot crowd out the question.
func Conversation(history []domain.Message, maxChars int) []Message {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(maxChars),
		textsplitter.WithChunkOverlap(0),
	)

	out := make([]Message, 0, len(history))
	for _, m := range history {
		role := RoleUser
		switch m.Role {
		case domain.RoleAssistant:
			role = RoleAssistant
		case domain.RoleSystem:
			continue
		}

		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if maxChars > 0 && len([]rune(content)) > maxChars {
			if chunks, err := splitter.SplitText(content); err == nil && len(chunks) > 0 {
				content = chunks[0]
			}
		}
		out = append(out, Message{Role: role, Content: content})
	}
	return out
}
