package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sselimkoc/feedTune-sub004/internal/config"
	"github.com/Sselimkoc/feedTune-sub004/internal/database"
	"github.com/Sselimkoc/feedTune-sub004/internal/feed"
	"github.com/Sselimkoc/feedTune-sub004/internal/notify"
	"github.com/Sselimkoc/feedTune-sub004/internal/ratelimiter"
	"github.com/Sselimkoc/feedTune-sub004/internal/scheduler"
	"github.com/Sselimkoc/feedTune-sub004/internal/server"
	"github.com/Sselimkoc/feedTune-sub004/internal/sitemeta"
	"github.com/Sselimkoc/feedTune-sub004/internal/summarizer"
)

const (
	shutdownTimeout   = 10 * time.Second
	perHostFetchDelay = 500 * time.Millisecond
	perHostFetchBurst = 2
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize db",
			"error", err,
			"dbPath", cfg.DBPath)

		return
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	if err = bootstrapUser(ctx, db, cfg.BootstrapToken, log); err != nil {
		log.ErrorContext(ctx, "Failed to bootstrap user",
			"error", err)

		return
	}

	limiter := ratelimiter.New(perHostFetchDelay, perHostFetchBurst, log)
	fetcher := feed.NewFetcher(&http.Client{Timeout: feed.DefaultFetchTimeout}, limiter, log)
	parser := feed.NewParser(log)
	youtube := feed.NewYouTubeClient(cfg.YouTubeAPIKey, nil, log)
	meta := sitemeta.NewScraper(nil, log)

	svc := feed.NewService(db, fetcher, parser, youtube, meta, initSummarizer(ctx, cfg, log), log)

	var notifier scheduler.Notifier
	if cfg.TelegramBotToken != "" {
		tn, notifyErr := notify.NewTelegramNotifier(cfg.TelegramBotToken, log)
		if notifyErr != nil {
			log.ErrorContext(ctx, "Failed to create Telegram notifier so notifications are disabled",
				"error", notifyErr)
		} else {
			notifier = tn
			log.InfoContext(ctx, "Telegram notifier is initialized")
		}
	}

	sched := scheduler.New(ctx, db, svc, notifier, cfg.RefreshCronSpec, log)
	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", cfg.RefreshCronSpec)

		return
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", cfg.RefreshCronSpec)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.New(db, svc, cfg.CronSecret, log).Handler(),
	}

	go func() {
		if serveErr := srv.ListenAndServe(); serveErr != nil &&
			!errors.Is(serveErr, http.ErrServerClosed) {
			log.ErrorContext(ctx, "HTTP server stopped",
				"error", serveErr,
				"addr", cfg.Addr)
			cancel()
		}
	}()
	log.InfoContext(ctx, "HTTP server is started",
		"addr", cfg.Addr)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-c:
		log.InfoContext(ctx, "Shutdown signal is received",
			"signal", sig.String())
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.ErrorContext(shutdownCtx, "Failed to shut down HTTP server",
			"error", err)
	}

	log.InfoContext(ctx, "Exiting...",
		"uptimeSeconds", time.Since(start).Seconds())
}

// bootstrapUser provisions the first user from BOOTSTRAP_TOKEN so a fresh
// deployment is usable without touching the database by hand. Existing
// installations are left alone.
func bootstrapUser(ctx context.Context, db *database.Database, token string, log *slog.Logger) error {
	if token == "" {
		return nil
	}

	count, err := db.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	userID, err := db.CreateUser(ctx, token)
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "Bootstrap user is created",
		"userID", userID)

	return nil
}

func initSummarizer(ctx context.Context, cfg config.Config, log *slog.Logger) summarizer.Summarizer {
	if cfg.OpenAIAPIKey == "" {
		log.WarnContext(ctx, "OPENAI_API_KEY is missing so digest fallback will be used",
			"envVar", "OPENAI_API_KEY")

		return nil
	}

	s, err := summarizer.NewOpenAISummarizer(cfg.OpenAIAPIKey)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create OpenAI summarizer so digest fallback will be used",
			"error", err)

		return nil
	}

	log.InfoContext(ctx, "OpenAI summarizer is initialized",
		"provider", "openai")

	return s
}
