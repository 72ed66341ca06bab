package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the API under /api. publicFiles, when non-nil, serves
// stored objects without authentication under /api/public/files.
func NewRouter(apiHandler *APIHandler, publicFiles http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(apiHandler.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		if publicFiles != nil {
			r.Handle("/public/files/*", http.StripPrefix("/api/public/files", publicFiles))
		}

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			// Generation
			r.Get("/gemini/check", apiHandler.GeminiCheckHandler)
			r.Post("/generate", apiHandler.GenerateHandler)
			r.Post("/generate-scatter", apiHandler.GenerateScatterHandler)
			r.Post("/comparison", apiHandler.ComparisonHandler)
			r.Post("/analyze", apiHandler.AnalyzeHandler)
			r.Post("/datasets/parse", apiHandler.ParseDatasetHandler)

			// Conversations
			r.Get("/conversations", apiHandler.ListConversationsHandler)
			r.Post("/conversations", apiHandler.CreateConversationHandler)
			r.Route("/conversations/{conversationID}", func(r chi.Router) {
				r.Get("/", apiHandler.GetConversationHandler)
				r.Patch("/", apiHandler.UpdateConversationHandler)
				r.Delete("/", apiHandler.DeleteConversationHandler)
				r.Post("/favorite", apiHandler.ToggleFavoriteHandler)
				r.Post("/messages", apiHandler.AddMessageHandler)
				r.Post("/prompt", apiHandler.PromptHandler)
				r.Delete("/messages/{messageID}", apiHandler.DeleteMessageHandler)
				r.Patch("/messages/{messageID}/title", apiHandler.UpdateChartTitleHandler)
				r.Post("/files", apiHandler.UploadFileHandler)
			})

			// Stored files
			r.Get("/files/*", apiHandler.GetFileHandler)
			r.Delete("/files/*", apiHandler.DeleteFileHandler)
		})
	})

	return r
}
