package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"gwi.com/chart-bot/internal/core"
	"gwi.com/chart-bot/internal/dataset"
)

type APIHandler struct {
	chats       *core.ChatService
	charts      *core.ChartService
	comparisons *core.ComparisonService
	analysis    *core.AnalysisService
	files       *core.FileService
	jwtSecret   string
	logger      *zap.Logger
}

// Services groups what the handlers call into.
type Services struct {
	Chats       *core.ChatService
	Charts      *core.ChartService
	Comparisons *core.ComparisonService
	Analysis    *core.AnalysisService
	Files       *core.FileService
}

func NewAPIHandler(svc Services, jwtSecret string, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		chats:       svc.Chats,
		charts:      svc.Charts,
		comparisons: svc.Comparisons,
		analysis:    svc.Analysis,
		files:       svc.Files,
		jwtSecret:   jwtSecret,
		logger:      logger,
	}
}

func (h *APIHandler) GeminiCheckHandler(w http.ResponseWriter, r *http.Request) {
	text, err := h.charts.Ping(r.Context())
	if err != nil {
		h.handleError(w, r, err, "Failed to connect to Gemini API")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "response": text})
}

type GenerateRequest struct {
	Message   string `json:"message"`
	ChartType string `json:"chartType,omitempty"`
}

func (h *APIHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.charts.Generate(r.Context(), req.Message, req.ChartType)
	if err != nil {
		h.handleError(w, r, err, "An unexpected error occurred. Please try again later.")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type PromptRequest struct {
	Prompt string `json:"prompt"`
}

func (h *APIHandler) GenerateScatterHandler(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.charts.GenerateScatter(r.Context(), req.Prompt)
	if err != nil {
		h.handleError(w, r, err, "Failed to generate scatter plot data")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) ComparisonHandler(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !decodeBody(w, r, &req) {
		return
	}

	comparison, err := h.comparisons.Generate(r.Context(), req.Prompt)
	if err != nil {
		h.handleError(w, r, err, "Failed to process request")
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}

type AnalyzeRequest struct {
	Data   json.RawMessage `json:"data"`
	Prompt string          `json:"prompt"`
}

func (h *APIHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	data := bytes.TrimSpace(req.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: data and prompt")
		return
	}
	if data[0] != '[' {
		writeError(w, http.StatusBadRequest, "Invalid or empty data array")
		return
	}
	ds, err := dataset.ParseJSON(data)
	if err != nil || len(ds.Records) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid or empty data array")
		return
	}

	html, err := h.analysis.Analyze(r.Context(), ds, req.Prompt)
	if err != nil {
		h.handleError(w, r, err, "Failed to analyze data")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"analysis": html})
}

type ParseDatasetRequest struct {
	Text string `json:"text"`
}

func (h *APIHandler) ParseDatasetHandler(w http.ResponseWriter, r *http.Request) {
	var req ParseDatasetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ds, err := dataset.Parse(req.Text)
	if err != nil {
		h.handleError(w, r, err, "Failed to parse data")
		return
	}
	writeJSON(w, http.StatusOK, ds)
}
