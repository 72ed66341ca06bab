package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gwi.com/chart-bot/internal/store"
)

func (h *APIHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	conversations, err := h.chats.ListConversations(r.Context(), userID)
	if err != nil {
		h.handleError(w, r, err, "Failed to list conversations")
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

type CreateConversationRequest struct {
	Title string `json:"title"`
}

func (h *APIHandler) CreateConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	var req CreateConversationRequest
	if r.Body != http.NoBody && r.ContentLength != 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}

	conversation, err := h.chats.CreateConversation(r.Context(), userID, req.Title)
	if err != nil {
		h.handleError(w, r, err, "Failed to create conversation")
		return
	}
	writeJSON(w, http.StatusCreated, conversation)
}

func (h *APIHandler) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	conversationID := chi.URLParam(r, "conversationID")

	conversation, err := h.chats.GetConversation(r.Context(), conversationID, userID)
	if err != nil {
		h.handleError(w, r, err, "Failed to get conversation")
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}

func (h *APIHandler) UpdateConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	conversationID := chi.URLParam(r, "conversationID")

	var req store.ConversationUpdate
	if !decodeBody(w, r, &req) {
		return
	}

	conversation, err := h.chats.UpdateConversation(r.Context(), conversationID, userID, req)
	if err != nil {
		h.handleError(w, r, err, "Failed to update conversation")
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}

func (h *APIHandler) DeleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	conversationID := chi.URLParam(r, "conversationID")

	if err := h.chats.DeleteConversation(r.Context(), conversationID, userID); err != nil {
		h.handleError(w, r, err, "Failed to delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ToggleFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	conversationID := chi.URLParam(r, "conversationID")

	favorite, err := h.chats.ToggleFavorite(r.Context(), conversationID, userID)
	if err != nil {
		h.handleError(w, r, err, "Failed to toggle favorite")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isFavorite": favorite})
}

func (h *APIHandler) AddMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	conversationID := chi.URLParam(r, "conversationID")

	var msg store.Message
	if !decodeBody(w, r, &msg) {
		return
	}
	// Ids are server-assigned.
	msg.ID = ""

	if err := h.chats.AddMessage(r.Context(), conversationID, userID, &msg); err != nil {
		h.handleError(w, r, err, "Failed to add message")
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

type ChatPromptRequest struct {
	Message   string `json:"message"`
	ChartType string `json:"chartType,omitempty"`
}

type ChatPromptResponse struct {
	Message *store.Message `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func (h *APIHandler) PromptHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	conversationID := chi.URLParam(r, "conversationID")

	var req ChatPromptRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reply, err := h.chats.Prompt(r.Context(), conversationID, userID, req.Message, req.ChartType)
	if err != nil && reply == nil {
		h.handleError(w, r, err, "Failed to post message")
		return
	}
	if err != nil {
		// The failure was recorded as the reply; surface both.
		status := statusFor(err)
		if status == 0 {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, ChatPromptResponse{Message: reply, Error: errorMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, ChatPromptResponse{Message: reply})
}

func (h *APIHandler) DeleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	conversationID := chi.URLParam(r, "conversationID")
	messageID := chi.URLParam(r, "messageID")

	if err := h.chats.DeleteMessage(r.Context(), conversationID, messageID, userID); err != nil {
		h.handleError(w, r, err, "Failed to delete message")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type UpdateChartTitleRequest struct {
	Title string `json:"title"`
}

func (h *APIHandler) UpdateChartTitleHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	conversationID := chi.URLParam(r, "conversationID")
	messageID := chi.URLParam(r, "messageID")

	var req UpdateChartTitleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.chats.UpdateChartTitle(r.Context(), conversationID, messageID, userID, req.Title); err != nil {
		h.handleError(w, r, err, "Failed to update chart title")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
