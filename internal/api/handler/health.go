package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Rrens/energy-agent/internal/api/response"
	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/Rrens/energy-agent/internal/llm"
	"github.com/rs/zerolog/log"
)

// ReadinessCheck probes one dependency
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck returns readiness status including dependency connectivity
func ReadyCheck(checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				log.Warn().Err(err).Str("dependency", c.Name).Msg("Readiness check failed")
				response.Error(w, http.StatusServiceUnavailable, domain.CodeInternal, c.Name+" not ready")
				return
			}
		}

		response.OK(w, map[string]string{
			"status": "ready",
		})
	}
}

// ProviderLister describes the registered LLM providers
type ProviderLister interface {
	GetProvidersInfo() []llm.ProviderInfo
	DefaultProvider() string
}

// ListLLMProviders returns available LLM providers
func ListLLMProviders(providers ProviderLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]any{
			"providers":        providers.GetProvidersInfo(),
			"default_provider": providers.DefaultProvider(),
		})
	}
}

// CacheFlusher drops cached entries
type CacheFlusher interface {
	FlushCache(ctx context.Context) (int64, error)
}

// FlushCache clears the collection cache
func FlushCache(cache CacheFlusher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleted, err := cache.FlushCache(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("Failed to flush cache")
			response.InternalError(w, "failed to flush cache")
			return
		}

		response.OK(w, map[string]any{
			"message":      "cache flushed successfully",
			"keys_deleted": deleted,
		})
	}
}
