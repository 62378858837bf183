package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Rrens/energy-agent/internal/api/response"
	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ArtifactService exposes stored artifacts and well files
type ArtifactService interface {
	List(ctx context.Context, userID, prefix string, limit int) ([]domain.ObjectInfo, error)
	Get(ctx context.Context, userID, key string) (*domain.Object, error)
	Delete(ctx context.Context, userID string, keys []string) (int64, error)
}

type artifactDeleteRequest struct {
	Keys []string `json:"keys" validate:"required,min=1,max=1000,dive,required"`
}

// ArtifactHandler handles object store endpoints
type ArtifactHandler struct {
	artifacts ArtifactService
}

// NewArtifactHandler creates a new artifact handler
func NewArtifactHandler(artifacts ArtifactService) *ArtifactHandler {
	return &ArtifactHandler{artifacts: artifacts}
}

// List returns objects under the prefix query parameter
func (h *ArtifactHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	objects, err := h.artifacts.List(r.Context(), userID, r.URL.Query().Get("prefix"), queryInt(r, "limit", 0, 0))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, objects)
}

// Get streams one object back with its stored content type
func (h *ArtifactHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	obj, err := h.artifacts.Get(r.Context(), userID, chi.URLParam(r, "*"))
	if err != nil {
		response.FromError(w, err)
		return
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Header().Set("Last-Modified", obj.LastModified.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(obj.Data); err != nil {
		log.Warn().Err(err).Str("key", obj.Key).Msg("Failed to write artifact")
	}
}

// Delete removes the objects listed in the request body
func (h *ArtifactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req artifactDeleteRequest
	if !bind(w, r, &req, false) {
		return
	}

	deleted, err := h.artifacts.Delete(r.Context(), userID, req.Keys)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, map[string]any{
		"deleted": deleted,
	})
}
