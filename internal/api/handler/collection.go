package handler

import (
	"context"
	"net/http"

	"github.com/Rrens/energy-agent/internal/api/response"
	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/go-chi/chi/v5"
)

// CollectionService manages data collections
type CollectionService interface {
	Create(ctx context.Context, userID string, input domain.CollectionCreate) (*domain.Collection, error)
	Get(ctx context.Context, userID, id string) (*domain.Collection, error)
	List(ctx context.Context, userID string) ([]domain.Collection, error)
}

// CollectionHandler handles collection endpoints
type CollectionHandler struct {
	collections CollectionService
}

// NewCollectionHandler creates a new collection handler
func NewCollectionHandler(collections CollectionService) *CollectionHandler {
	return &CollectionHandler{collections: collections}
}

// Create creates a new collection
func (h *CollectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input domain.CollectionCreate
	if !bind(w, r, &input, false) {
		return
	}

	collection, err := h.collections.Create(r.Context(), userID, input)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, collection)
}

// List returns the user's collections
func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	collections, err := h.collections.List(r.Context(), userID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, collections)
}

// Get returns one collection
func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	collection, err := h.collections.Get(r.Context(), userID, chi.URLParam(r, "collectionID"))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, collection)
}
