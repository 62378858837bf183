package agent

import (
	"encoding/json"

	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/Rrens/energy-agent/internal/metrics"
	"github.com/rs/zerolog"
)

// normalize fills the envelope defaults the client relies on
func normalize(resp *domain.AgentResponse, agent domain.AgentType, steps []domain.ThoughtStep) *domain.AgentResponse {
	if resp == nil {
		resp = domain.FailureResponse("agent returned no response")
	}
	if resp.Artifacts == nil {
		resp.Artifacts = []domain.Artifact{}
	}
	if resp.SourceAttribution == nil {
		resp.SourceAttribution = []domain.SourceAttribution{}
	}
	if steps == nil {
		steps = []domain.ThoughtStep{}
	}
	resp.ThoughtSteps = steps
	if agent != "" {
		resp.AgentUsed = string(agent)
	}
	return resp
}

// sanitizeArtifacts round-trips every artifact through encoding/json and keeps
// the decoded form. Artifacts that fail either direction are dropped.
func sanitizeArtifacts(logger zerolog.Logger, artifacts []domain.Artifact) []domain.Artifact {
	out := make([]domain.Artifact, 0, len(artifacts))
	for i, a := range artifacts {
		if a == nil {
			continue
		}
		raw, err := json.Marshal(a)
		if err == nil {
			var decoded domain.Artifact
			if err = json.Unmarshal(raw, &decoded); err == nil {
				out = append(out, decoded)
				continue
			}
		}
		metrics.DroppedArtifacts.Inc()
		logger.Warn().
			Err(err).
			Int("index", i).
			Str("content_type", a.ContentType()).
			Msg("Dropping artifact that is not JSON serializable")
	}
	return out
}

// ensureSerializable sanitizes artifacts and verifies the whole envelope encodes
func ensureSerializable(logger zerolog.Logger, resp *domain.AgentResponse) *domain.AgentResponse {
	resp.Artifacts = sanitizeArtifacts(logger, resp.Artifacts)
	if _, err := json.Marshal(resp); err != nil {
		logger.Error().Err(err).Msg("Response envelope is not JSON serializable")
		failed := domain.FailureResponse("failed to encode agent response")
		failed.AgentUsed = resp.AgentUsed
		return failed
	}
	return resp
}
