// Command lisan is the main entry point for the Lisan Arabic tutoring server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/lisan-app/lisan/internal/config"
	"github.com/lisan-app/lisan/internal/curriculum"
	curriculumpg "github.com/lisan-app/lisan/internal/curriculum/postgres"
	"github.com/lisan-app/lisan/internal/httpapi"
	"github.com/lisan-app/lisan/internal/observe"
	"github.com/lisan-app/lisan/internal/resilience"
	"github.com/lisan-app/lisan/internal/speech"
	"github.com/lisan-app/lisan/internal/tutor"
	"github.com/lisan-app/lisan/pkg/pronounce"
	"github.com/lisan-app/lisan/pkg/provider/chat"
	"github.com/lisan-app/lisan/pkg/provider/chat/anyllm"
	oaichat "github.com/lisan-app/lisan/pkg/provider/chat/openai"
	"github.com/lisan-app/lisan/pkg/provider/transcribe"
	oaitranscribe "github.com/lisan-app/lisan/pkg/provider/transcribe/openai"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "lisan: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "lisan: %v\n", err)
		}
		return 1
	}
	applyEnvFallbacks(cfg)

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("lisan starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "lisan",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	metrics := observe.Default()

	// ── Chat providers ────────────────────────────────────────────────────────
	chatProvider, err := buildChatProvider(cfg)
	if err != nil {
		slog.Error("failed to build chat provider", "err", err)
		return 1
	}

	// ── Transcription (optional) ──────────────────────────────────────────────
	var transcriber transcribe.Provider
	if cfg.Providers.Transcribe.Name != "" {
		transcriber, err = buildTranscriber(cfg.Providers.Transcribe)
		if err != nil {
			slog.Error("failed to build transcription provider", "err", err)
			return 1
		}
	}

	language := cfg.Speech.Language
	if language == "" {
		language = "ar"
	}
	gateway := speech.NewGateway(pronounce.NewSimulator(nil), transcriber, language,
		speech.WithDefaultMode(cfg.Speech.DefaultMode))

	// ── Curriculum store (optional) ───────────────────────────────────────────
	var (
		lessons curriculum.Store
		pool    *pgxpool.Pool
		checks  []httpapi.Checker
	)
	if dsn := cfg.Curriculum.PostgresDSN; dsn != "" {
		pool, err = pgxpool.New(ctx, dsn)
		if err != nil {
			slog.Error("failed to open postgres pool", "err", err)
			return 1
		}
		defer pool.Close()

		store := curriculumpg.New(pool)
		if err := store.Migrate(ctx); err != nil {
			slog.Error("failed to migrate curriculum schema", "err", err)
			return 1
		}
		lessons = store
		checks = append(checks, httpapi.Checker{Name: "database", Check: pool.Ping})
		slog.Info("curriculum store connected")
	}
	checks = append(checks, httpapi.Checker{
		Name: "chat",
		Check: func(context.Context) error {
			if chatProvider == nil {
				return errors.New("no chat provider configured")
			}
			return nil
		},
	})

	// ── Sessions and API ──────────────────────────────────────────────────────
	sessions := tutor.NewSessionManager()
	agentCfg := cfg.Agent.TutorConfig()

	factory := func(c *tutor.ConversationContext) (*tutor.Agent, error) {
		opts := []tutor.Option{tutor.WithMetrics(metrics)}
		if lessons != nil {
			opts = append(opts, tutor.WithLessonFinder(lessons))
		}
		return tutor.NewAgent(chatProvider, gateway, agentCfg, c, opts...)
	}

	apiOpts := []httpapi.APIOption{
		httpapi.WithMetrics(metrics),
		httpapi.WithCORSOrigins(cfg.Server.CORSOrigins),
		httpapi.WithReadinessChecks(checks...),
	}
	if lessons != nil {
		apiOpts = append(apiOpts, httpapi.WithLessonStore(lessons))
	}
	api := httpapi.New(gateway, sessions, factory, apiOpts...)

	listenAddr := cfg.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	server := &http.Server{
		Addr:              listenAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Serve ─────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", listenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Prune sessions idle for over an hour.
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if n := sessions.PruneIdle(time.Now().Add(-time.Hour)); n > 0 {
					slog.Info("pruned idle sessions", "count", n)
				}
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := shutdownMetrics(shutdownCtx); err != nil {
		slog.Warn("metrics shutdown error", "err", err)
	}

	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildChatProvider constructs the primary chat backend, wraps it with
// bounded retry, and attaches the configured fallback backend.
func buildChatProvider(cfg *config.Config) (chat.Provider, error) {
	primary, err := newChatBackend(cfg.Providers.Chat)
	if err != nil {
		return nil, fmt.Errorf("primary chat provider %q: %w", cfg.Providers.Chat.Name, err)
	}

	retryCfg := cfg.Retry.RetrierConfig()
	failover := resilience.NewChatFailover(
		resilience.NewRetryingChat(primary, retryCfg),
		cfg.Providers.Chat.Name,
	)

	if entry := cfg.Providers.ChatFallback; entry.Name != "" {
		fallback, err := newChatBackend(entry)
		if err != nil {
			return nil, fmt.Errorf("fallback chat provider %q: %w", entry.Name, err)
		}
		failover.AddFallback(entry.Name, resilience.NewRetryingChat(fallback, retryCfg))
	}

	return failover, nil
}

// newChatBackend constructs a single chat backend. "openai" uses the native
// client for JSON response mode; every other name goes through any-llm.
func newChatBackend(entry config.ProviderEntry) (chat.Provider, error) {
	if entry.Name == "openai" {
		var opts []oaichat.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaichat.WithBaseURL(entry.BaseURL))
		}
		return oaichat.New(entry.APIKey, entry.Model, opts...)
	}

	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return anyllm.New(entry.Name, entry.Model, opts...)
}

func buildTranscriber(entry config.ProviderEntry) (transcribe.Provider, error) {
	var opts []oaitranscribe.Option
	if entry.BaseURL != "" {
		opts = append(opts, oaitranscribe.WithBaseURL(entry.BaseURL))
	}
	return oaitranscribe.New(entry.APIKey, entry.Model, opts...)
}

// applyEnvFallbacks fills provider API keys from the environment when the
// config file leaves them empty, so keys can stay out of YAML files.
func applyEnvFallbacks(cfg *config.Config) {
	if cfg.Providers.Chat.APIKey == "" {
		cfg.Providers.Chat.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Providers.Transcribe.APIKey == "" {
		cfg.Providers.Transcribe.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// newLogger builds a text slog.Logger honouring the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
