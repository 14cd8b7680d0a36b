package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autoviz/internal/analysis"
	"autoviz/internal/api"
	"autoviz/internal/config"
	"autoviz/internal/llm"
	"autoviz/internal/logger"
	"autoviz/internal/service"
	"autoviz/internal/store"
	"autoviz/internal/viz"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	st, err := store.Open(store.DefaultConfig(),
		store.WithDriver(cfg.DatabaseDriver),
		store.WithDSN(cfg.DatabaseURL),
		store.WithMaxOpenConns(cfg.DatabaseMaxOpenConns),
	)
	if err != nil {
		return err
	}
	defer st.Close()

	llmService := newLLMService(cfg)
	analyzer := newAnalyzer(cfg, llmService, st)
	handler := api.NewHandler(analyzer, st, llmService, cfg.MaxUploadBytes)

	// Router Setup
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", api.UserHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("AutoViz backend is running"))
	})

	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"addr", "http://localhost:"+cfg.Port,
			"llm", llmService.Provider(),
			"model", llmService.Model(),
			"database", st.Driver(),
			"uploads", cfg.UploadDir,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newLLMService builds the configured provider. A provider that cannot be
// set up is replaced by the disabled one so the fallbacks take over.
func newLLMService(c *config.Config) *llm.Service {
	var provider llm.Provider = llm.Disabled{}

	switch c.LLMProvider {
	case "openai":
		p, err := llm.NewOpenAIProvider(llm.OpenAIParams{
			APIKey:  c.OpenAIAPIKey,
			BaseURL: c.OpenAIBaseURL,
			Model:   c.LLMModel,
		})
		if err != nil {
			logger.Warn("openai provider unavailable, using rule-based fallbacks", "error", err)
		} else {
			provider = p
		}
	case "ollama":
		p, err := llm.NewOllamaProvider(c.OllamaHost, c.OllamaModel)
		if err != nil {
			logger.Warn("ollama provider unavailable, using rule-based fallbacks", "error", err)
		} else {
			provider = p
		}
	}

	return llm.NewService(provider, llm.Config{
		Timeout:       c.LLMTimeout(),
		MaxConcurrent: c.LLMMaxConcurrent,
	})
}

func newAnalyzer(c *config.Config, llmService *llm.Service, st *store.Store) *service.Analyzer {
	suggestions := service.NewSuggestionEngine(llmService, c.SuggestionTemperature, c.SuggestionMaxTokens)
	suggestions.Model = c.SuggestionModel
	insights := service.NewInsightSummarizer(llmService, c.InsightTemperature, c.InsightMaxTokens)
	insights.Model = c.InsightModel

	return service.NewAnalyzer(
		analysis.NewCSVService(),
		suggestions,
		insights,
		viz.NewRenderer(c.EssentialMinRows),
		st,
		service.AnalyzerConfig{
			UploadDir:       c.UploadDir,
			ChartsPerUpload: c.ChartsPerUpload,
			EagerInsights:   c.EagerInsights,
		},
	)
}
