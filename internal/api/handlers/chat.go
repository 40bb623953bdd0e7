package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kentandrian/vertexai-demos/internal/api/middleware"
	"github.com/kentandrian/vertexai-demos/internal/chat"
)

// ReplyFunc produces the next assistant turn for conv. Both the trip planner
// and the tax assistant fit this shape.
type ReplyFunc func(ctx context.Context, conv chat.Conversation, message string) (chat.Conversation, *chat.Reply, error)

// ChatHandler serves one conversational demo backed by a session store.
type ChatHandler struct {
	greeting string
	reply    ReplyFunc
	sessions *chat.SessionStore
}

// NewChatHandler creates a chat handler.
func NewChatHandler(greeting string, reply ReplyFunc, sessions *chat.SessionStore) *ChatHandler {
	return &ChatHandler{greeting: greeting, reply: reply, sessions: sessions}
}

// Start handles POST /api/{demo}
// It opens a session holding the greeting.
func (h *ChatHandler) Start(w http.ResponseWriter, r *http.Request) {
	conv := h.sessions.Start(r.Context(), h.greeting)
	middleware.WriteJSON(w, http.StatusCreated, conv)
}

// Get handles GET /api/{demo}/{id}
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	conv, err := h.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err, "Failed to get session")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, conv)
}

// Send handles POST /api/{demo}/{id}
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		badRequest(w, "message is required")
		return
	}

	var reply *chat.Reply
	next, err := h.sessions.Turn(r.Context(), chi.URLParam(r, "id"), func(conv chat.Conversation) (chat.Conversation, error) {
		updated, rep, err := h.reply(r.Context(), conv, req.Message)
		if err != nil {
			return chat.Conversation{}, err
		}
		reply = rep
		return updated, nil
	})
	if err != nil {
		writeErr(w, r, err, "Failed to get reply")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reply":        reply,
		"conversation": next,
	})
}

// End handles DELETE /api/{demo}/{id}
func (h *ChatHandler) End(w http.ResponseWriter, r *http.Request) {
	h.sessions.End(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
