package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

const maxUploadSize = 10 << 20

func (h *APIHandler) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	conversationID := chi.URLParam(r, "conversationID")

	if _, err := h.chats.GetConversation(r.Context(), conversationID, userID); err != nil {
		h.handleError(w, r, err, "Failed to upload file")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "A file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	result, err := h.files.Upload(r.Context(), conversationID, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		h.handleError(w, r, err, "Failed to upload file")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// ownedFilePath authorizes access to a stored object through the
// conversation that owns its folder.
func (h *APIHandler) ownedFilePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	objectPath := chi.URLParam(r, "*")
	conversationID, _, found := strings.Cut(objectPath, "/")
	if !found || conversationID == "" {
		writeError(w, http.StatusBadRequest, "Invalid file path")
		return "", false
	}
	if _, err := h.chats.GetConversation(r.Context(), conversationID, UserIDFromContext(r.Context())); err != nil {
		h.handleError(w, r, err, "Failed to access file")
		return "", false
	}
	return objectPath, true
}

func (h *APIHandler) GetFileHandler(w http.ResponseWriter, r *http.Request) {
	objectPath, ok := h.ownedFilePath(w, r)
	if !ok {
		return
	}

	result, err := h.files.Get(r.Context(), objectPath)
	if err != nil {
		h.handleError(w, r, err, "Failed to get file")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	objectPath, ok := h.ownedFilePath(w, r)
	if !ok {
		return
	}

	if err := h.files.Delete(r.Context(), objectPath); err != nil {
		h.handleError(w, r, err, "Failed to delete file")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
