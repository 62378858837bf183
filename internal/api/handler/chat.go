package handler

import (
	"context"
	"net/http"

	"github.com/Rrens/energy-agent/internal/api/response"
	"github.com/Rrens/energy-agent/internal/domain"
)

// ChatService answers chat turns
type ChatService interface {
	Chat(ctx context.Context, userID string, req domain.QueryRequest) (*domain.AgentResponse, error)
}

// ChatHandler handles the chat endpoint
type ChatHandler struct {
	chat ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Post routes one chat message. Agent failures are part of the response
// envelope and still answer 200.
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req domain.QueryRequest
	if !bind(w, r, &req, false) {
		return
	}
	req.UserID = userID

	resp, err := h.chat.Chat(r.Context(), userID, req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Write(w, http.StatusOK, resp)
}
