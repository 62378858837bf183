package handler

import (
	"context"
	"net/http"

	"github.com/Rrens/energy-agent/internal/api/response"
	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/go-chi/chi/v5"
)

const (
	defaultSessionPage = 20
	maxSessionPage     = 100
	maxMessagePage     = 100
)

// SessionService manages chat sessions
type SessionService interface {
	Create(ctx context.Context, userID, name string, collectionID *string) (*domain.ChatSession, error)
	Get(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error)
	List(ctx context.Context, userID string, limit, offset int) ([]domain.ChatSession, error)
	Update(ctx context.Context, userID, sessionID string, input domain.SessionUpdate) (*domain.ChatSession, error)
	Delete(ctx context.Context, userID, sessionID string) error
	Messages(ctx context.Context, userID, sessionID string, limit int) ([]domain.Message, error)
	ThoughtSteps(ctx context.Context, userID, sessionID string) ([]domain.ThoughtStep, error)
}

type sessionCreateRequest struct {
	Name               string  `json:"name" validate:"max=255"`
	LinkedCollectionID *string `json:"linkedCollectionId,omitempty" validate:"omitempty,max=128"`
}

// SessionHandler handles chat session endpoints
type SessionHandler struct {
	sessions SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// List returns the user's sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", defaultSessionPage, maxSessionPage)
	offset := queryInt(r, "offset", 0, 0)

	sessions, err := h.sessions.List(r.Context(), userID, limit, offset)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, sessions)
}

// Create creates a new session
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req sessionCreateRequest
	if !bind(w, r, &req, true) {
		return
	}

	session, err := h.sessions.Create(r.Context(), userID, req.Name, req.LinkedCollectionID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, session)
}

// Get returns one session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	session, err := h.sessions.Get(r.Context(), userID, chi.URLParam(r, "sessionID"))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, session)
}

// Update renames a session or changes its linked collection
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input domain.SessionUpdate
	if !bind(w, r, &input, false) {
		return
	}

	session, err := h.sessions.Update(r.Context(), userID, chi.URLParam(r, "sessionID"), input)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, session)
}

// Delete deletes a session and its messages
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Delete(r.Context(), userID, chi.URLParam(r, "sessionID")); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}

// Messages returns the most recent messages of a session, oldest first
func (h *SessionHandler) Messages(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 0, maxMessagePage)
	messages, err := h.sessions.Messages(r.Context(), userID, chi.URLParam(r, "sessionID"), limit)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, messages)
}

// ThoughtSteps returns the streamed thought steps of a session
func (h *SessionHandler) ThoughtSteps(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	steps, err := h.sessions.ThoughtSteps(r.Context(), userID, chi.URLParam(r, "sessionID"))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, steps)
}
