package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/sentio-ai/sentio/backend/internal/config"
	"github.com/sentio-ai/sentio/backend/internal/handler"
	"github.com/sentio-ai/sentio/backend/internal/history"
	"github.com/sentio-ai/sentio/backend/internal/service/ai"
	"github.com/sentio-ai/sentio/backend/internal/service/retrieval"
	"github.com/sentio-ai/sentio/backend/internal/service/speech"
	therapyservice "github.com/sentio-ai/sentio/backend/internal/service/therapy"
	"github.com/sentio-ai/sentio/backend/internal/service/vision"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})

	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file loaded, using system environment only", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	if !cfg.AI.Enabled() {
		logger.Fatal("language model credentials are required: set ARK_API_KEY and ARK_MODEL")
	}
	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		logger.Fatal("failed to create chat model", "error", err)
	}

	store, err := history.Load(cfg.History.Path, logger.With("component", "history"))
	if err != nil {
		logger.Fatal("failed to load conversation history", "error", err)
	}

	generator, err := ai.NewService(ctx, chatModel, logger.With("component", "ai"))
	if err != nil {
		logger.Fatal("failed to initialize response generator", "error", err)
	}

	retriever := retrieval.NewRetriever(
		chatModel,
		retrieval.NewDuckDuckGoSearcher(cfg.Search.Timeout),
		retrieval.NewPageFetcher(cfg.Search.Timeout),
		logger.With("component", "retrieval"),
	)

	analyzer := vision.NewAnalyzer(vision.Config{
		BaseURL:          cfg.Vision.BaseURL,
		Timeout:          cfg.Vision.Timeout,
		IncludeAgeGender: cfg.Vision.EnableAgeGender,
	}, logger.With("component", "vision"))
	if !cfg.Vision.Enabled() {
		logger.Info("vision service not configured, image turns will degrade to neutral")
	}

	audioDir := filepath.Join(cfg.Data.Dir, "audio")

	var transcriber therapyservice.Transcriber
	var synthesizer therapyservice.Synthesizer
	if cfg.Speech.Enabled() {
		deepgram := speech.NewClient(speech.Config{
			APIKey:    cfg.Speech.APIKey,
			BaseURL:   cfg.Speech.BaseURL,
			TTSModel:  cfg.Speech.TTSModel,
			STTModel:  cfg.Speech.STTModel,
			OutputDir: audioDir,
			Timeout:   cfg.Speech.Timeout,
		}, logger.With("component", "speech"))
		transcriber = deepgram
		synthesizer = deepgram
		logger.Info("speech service initialized")
	} else {
		logger.Info("speech credentials not configured, audio turns disabled and replies will be text-only")
	}

	orchestrator := therapyservice.NewOrchestrator(
		store,
		analyzer,
		retriever,
		generator,
		transcriber,
		synthesizer,
		therapyservice.Options{
			EnableSearch:         cfg.Search.Enabled,
			EnableAgeGender:      cfg.Vision.EnableAgeGender,
			EnableHistoryContext: cfg.History.ContextEnabled,
			HistoryWindow:        cfg.History.Window,
			SearchResults:        cfg.Search.MaxResults,
		},
		logger.With("component", "orchestrator"),
	)

	router := handler.NewRouter(
		orchestrator,
		cfg.Data.Dir,
		audioDir,
		filepath.Join(cfg.Data.Dir, "captures"),
		logger,
	)

	startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *log.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("backend listening", "addr", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", "error", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
