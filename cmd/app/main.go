package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dong881/audio-processor/internal/config"
	"github.com/dong881/audio-processor/internal/domain/ports/adapter"
	"github.com/dong881/audio-processor/internal/domain/ports/repository"
	aiAdapters "github.com/dong881/audio-processor/internal/infra/adapters/ai"
	"github.com/dong881/audio-processor/internal/infra/adapters/drive"
	"github.com/dong881/audio-processor/internal/infra/adapters/notionapi"
	"github.com/dong881/audio-processor/internal/infra/adapters/speech"
	"github.com/dong881/audio-processor/internal/infra/adapters/transcode"
	"github.com/dong881/audio-processor/internal/infra/jobstore"
	"github.com/dong881/audio-processor/internal/infra/logging"
	"github.com/dong881/audio-processor/internal/infra/metrics"
	"github.com/dong881/audio-processor/internal/infra/sched"
	"github.com/dong881/audio-processor/internal/infra/web"
	"github.com/dong881/audio-processor/internal/infra/worker"
	"github.com/dong881/audio-processor/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	// Secrets normally live in .env; absence is fine in container deploys.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}
	metrics.MustRegister()

	// ---- Job store (Redis when configured, in-memory otherwise) ----
	var repo repository.JobRepository
	if cfg.Redis.URL != "" {
		store, err := jobstore.NewRedisStore(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis job store")
		}
		defer store.Close()
		repo = store
		logger.Info().Msg("job store: redis")
	} else {
		repo = jobstore.NewMemoryStore()
		logger.Info().Msg("job store: in-memory")
	}

	// ---- External adapters ----
	storage, err := drive.NewClient(cfg.Drive.AccessToken, cfg.Drive.BaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("drive client")
	}
	extractor := drive.NewPDFExtractor()
	transcoder := transcode.NewFFmpeg(cfg.Speech.FFmpegPath)
	transcriber := speech.NewWhisperClient(cfg.Speech.WhisperURL, cfg.Speech.Timeout)
	diarizer := speech.NewDiarizerClient(cfg.Speech.DiarizerURL, cfg.Speech.Timeout)

	notionClient, err := notionapi.NewClient(cfg.Notion.Token, cfg.Notion.BaseURL, cfg.Notion.Version, cfg.Notion.Timeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("notion client")
	}
	publisher := notionapi.NewPublisher(notionClient, cfg.Notion.DatabaseID, cfg.Notion.MaxBlocks, logger)

	// ---- LLM providers and fallback chain ----
	providers := map[string]adapter.LLMAdapter{}
	if cfg.AI.GeminiKey != "" {
		gem, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		providers["gemini"] = aiAdapters.NewLimitedLLM(gem, cfg.AI.ConcurrentLimit)
	}
	if cfg.AI.OpenAIKey != "" {
		oa, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		providers["openai"] = aiAdapters.NewLimitedLLM(oa, cfg.AI.ConcurrentLimit)
	}
	invoker := aiAdapters.NewFallbackInvoker(providers, "gemini", cfg.AI.FallbackOnAnyError, logger)

	// ---- Use cases ----
	identity := usecase.NewIdentityResolver(invoker, cfg.AI.IdentityModels, logger)
	summarizer := usecase.NewSummarizer(invoker, cfg.AI.Models, cfg.AI.PromptTokenBudget, logger)

	pool := worker.NewPool(cfg.Pipeline.Workers)
	pool.Start(ctx)
	defer pool.Stop()

	pipeline := usecase.NewPipelineUC(
		repo, pool,
		storage, extractor, transcoder, transcriber, diarizer,
		identity, summarizer, publisher,
		cfg.Pipeline.ScratchDir, logger,
	)

	// ---- TTL janitor ----
	janitor := sched.NewJanitor(cfg.Pipeline.JanitorInterval, cfg.Pipeline.JobTTL, repo, logger)
	go func() { _ = janitor.Run(ctx) }()

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Server.APIKey, cfg.Server.JWTSecret, cfg.Server.SessionTTL)
	srv := web.NewServer(pipeline, auth, cfg.Server.Port, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	cancel()
	pool.Stop()
}
