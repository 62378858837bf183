package domain

import "strings"

// AgentType identifies a specialized agent. The set is closed.
type AgentType string

const (
	AgentAuto         AgentType = "auto"
	AgentPetrophysics AgentType = "petrophysics"
	AgentMaintenance  AgentType = "maintenance"
	AgentRenewable    AgentType = "renewable"
	AgentEDIcraft     AgentType = "edicraft"
)

// AgentTypes returns the concrete agents in dispatch order
func AgentTypes() []AgentType {
	return []AgentType{AgentPetrophysics, AgentMaintenance, AgentRenewable, AgentEDIcraft}
}

// ParseAgentType maps a client-supplied agent name onto the closed set.
// Empty input resolves to AgentAuto; unknown names report false.
func ParseAgentType(s string) (AgentType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return AgentAuto, true
	case "petrophysics":
		return AgentPetrophysics, true
	case "maintenance":
		return AgentMaintenance, true
	case "renewable", "renewable_energy", "renewableenergy":
		return AgentRenewable, true
	case "edicraft", "catalog":
		return AgentEDIcraft, true
	}
	return "", false
}

// Artifact content types produced outside of the specialized handlers
const (
	ContentTypeDataAccessApproval = "data_access_approval"
	ArtifactTypeKey               = "messageContentType"
)

// Artifact is an opaque, JSON-serializable record tagged with a content type
type Artifact map[string]any

// ContentType returns the artifact's messageContentType discriminator
func (a Artifact) ContentType() string {
	s, _ := a[ArtifactTypeKey].(string)
	return s
}

// SourceAttribution cites a source used to build a response
type SourceAttribution struct {
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// QueryRequest is the inbound chat query contract
type QueryRequest struct {
	Message           string             `json:"message" validate:"required,max=8000"`
	UserID            string             `json:"userId,omitempty"`
	ChatSessionID     string             `json:"chatSessionId,omitempty" validate:"omitempty,max=128"`
	FoundationModelID string             `json:"foundationModelId,omitempty" validate:"omitempty,max=255"`
	AgentType         string             `json:"agentType,omitempty" validate:"omitempty,max=64"`
	CollectionContext *CollectionContext `json:"collectionContext,omitempty"`
	ProjectContext    map[string]any     `json:"projectContext,omitempty"`
}

// AgentResponse is the outbound response envelope. It must always be JSON-serializable.
type AgentResponse struct {
	Success           bool                `json:"success"`
	Message           string              `json:"message"`
	Artifacts         []Artifact          `json:"artifacts"`
	ThoughtSteps      []ThoughtStep       `json:"thoughtSteps"`
	SourceAttribution []SourceAttribution `json:"sourceAttribution"`
	AgentUsed         string              `json:"agentUsed,omitempty"`
}

// FailureResponse builds the structured failure envelope
func FailureResponse(message string) *AgentResponse {
	return &AgentResponse{
		Success:           false,
		Message:           message,
		Artifacts:         []Artifact{},
		ThoughtSteps:      []ThoughtStep{},
		SourceAttribution: []SourceAttribution{},
	}
}
