package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gwi.com/chart-bot/internal/api"
	"gwi.com/chart-bot/internal/config"
	"gwi.com/chart-bot/internal/core"
	"gwi.com/chart-bot/internal/storage"
	"gwi.com/chart-bot/internal/store"
)

const publicFilesPrefix = "/api/public/files"

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// app holds the wired services shared by the subcommands.
type app struct {
	gemini   *core.GeminiService
	store    store.ConversationStore
	files    storage.FileStore
	public   http.Handler
	services api.Services
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}
	if a.gemini != nil {
		a.gemini.Close()
	}
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{}

	switch cfg.StoreBackend {
	case config.StoreBackendSupabase:
		a.store = store.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.LLMTimeout)
		a.files = storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseBucket, cfg.LLMTimeout)
	default:
		st, err := store.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.store = st
		local, err := storage.NewLocalStorage(cfg.FilesDir, publicFilesPrefix)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
		a.files = local
		a.public = local.Handler()
	}

	gemini, err := core.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiTitleModel, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	a.gemini = gemini

	// A nil interface, not a typed nil, selects the local fallbacks.
	var completer core.ChatCompleter
	if cfg.DeepSeekAPIKey != "" {
		deepseek, err := core.NewDeepSeekService(cfg.DeepSeekBaseURL, cfg.DeepSeekAPIKey, cfg.DeepSeekModel)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize DeepSeek client: %w", err)
		}
		completer = deepseek
	} else {
		logger.Warn("DEEPSEEK_API_KEY not set; comparison and analysis use local fallbacks")
	}

	charts := core.NewChartService(gemini, cfg.GeminiPrimaryModel, cfg.GeminiFallbackModel, logger)
	a.services = api.Services{
		Chats:       core.NewChatService(a.store, charts, gemini, cfg.LLMTimeout, logger),
		Charts:      charts,
		Comparisons: core.NewComparisonService(completer, nil, logger),
		Analysis:    core.NewAnalysisService(completer, logger),
		Files:       core.NewFileService(a.files, logger),
	}
	return a, nil
}

func runServe(ctx context.Context) error {
	cfg := config.AppConfig

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	apiHandler := api.NewAPIHandler(a.services, cfg.JWTSecret, logger)
	router := api.NewRouter(apiHandler, a.public)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.StoreBackend),
			zap.String("primaryModel", cfg.GeminiPrimaryModel))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		// Let in-flight title generations land before the store closes.
		a.services.Chats.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server exited gracefully")
	return nil
}
