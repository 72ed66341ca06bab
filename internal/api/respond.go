package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"gwi.com/chart-bot/internal/core"
	"gwi.com/chart-bot/internal/dataset"
	"gwi.com/chart-bot/internal/storage"
	"gwi.com/chart-bot/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

var badRequestErrors = []error{
	core.ErrMessageRequired,
	core.ErrPromptRequired,
	core.ErrInvalidChartType,
	core.ErrInvalidAnalysisInput,
	core.ErrUnsupportedFile,
	core.ErrConversationRequired,
	store.ErrInvalidMessage,
	storage.ErrInvalidPath,
	dataset.ErrEmpty,
	dataset.ErrInvalidJSON,
	dataset.ErrUnsupportedFile,
}

// statusFor maps service errors onto HTTP statuses; 0 means unrecognized.
func statusFor(err error) int {
	var userErr *core.UserError
	if errors.As(err, &userErr) {
		switch userErr.Kind {
		case core.KindUnavailable:
			return http.StatusServiceUnavailable
		case core.KindQuota:
			return http.StatusTooManyRequests
		case core.KindSafety:
			return http.StatusUnprocessableEntity
		default:
			return http.StatusBadGateway
		}
	}
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return 0
}

// handleError writes the mapped status with the error text, or logs the
// error and writes fallback as a 500.
func (h *APIHandler) handleError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if status := statusFor(err); status != 0 {
		writeError(w, status, errorMessage(err))
		return
	}
	h.logger.Error(fallback,
		zap.String("path", r.URL.Path),
		zap.String("userID", UserIDFromContext(r.Context())),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, fallback)
}

func errorMessage(err error) string {
	var userErr *core.UserError
	if errors.As(err, &userErr) {
		return userErr.Message
	}
	return err.Error()
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
