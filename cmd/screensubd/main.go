// Subtitle daemon - captures a screen region, recognizes and corrects its
// text, translates it, and streams subtitle events to clients
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/screensub/platform/internal/config"
	apperrors "github.com/screensub/platform/internal/errors"
	"github.com/screensub/platform/internal/ocr"
	"github.com/screensub/platform/internal/pipeline"
	"github.com/screensub/platform/internal/profile"
	"github.com/screensub/platform/internal/scheduler"
	"github.com/screensub/platform/internal/screen"
	"github.com/screensub/platform/internal/server"
	"github.com/screensub/platform/internal/textfix"
	"github.com/screensub/platform/internal/translate"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	cfg := config.Load()

	// Recognition engine
	engine := ocr.NewTesseract(cfg.TesseractLanguages)
	if !engine.IsAvailable() {
		slog.Error("tesseract is not available, recognition will fail")
	}

	// Text correction
	fixer := textfix.NewEngine()

	// Translation backend with caching; degrades to original text when no
	// API key is configured
	backend := translate.NewGoogleBackend(cfg.TranslateEndpoint, cfg.TranslateAPIKey)
	cache := translate.NewCache(backend, fixer, cfg.CacheTTL, cfg.CacheSweepPeriod)
	defer cache.Close()

	// Per-region recognition profiles
	profiles := profile.NewStore(cfg.ProfilePath, cfg.SmallAreaThreshold, cfg.LargeAreaThreshold)

	// Pipeline and schedule
	langs := pipeline.LanguagePair{
		Source: translate.NormalizeTag(cfg.SourceLanguage),
		Target: translate.NormalizeTag(cfg.TargetLanguage),
	}

	var srv *server.Server
	orch := pipeline.New(screen.NewCapturer(), engine, fixer, cache, profiles, langs,
		func(stage apperrors.Stage, err error) {
			if srv != nil {
				srv.NotifyError(stage, err)
			}
		})
	sched := scheduler.New(orch.RunCycle, nil, cfg.StopTimeout)

	// HTTP/WebSocket server
	srv = server.New(sched, orch, profiles, cfg.CaptureInterval)

	httpServer := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     srv.Handler(),
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("subtitle daemon starting",
			"http", cfg.HTTPAddr,
			"displays", screen.NumDisplays(),
			"source", langs.Source,
			"target", langs.Target)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	sched.Stop()
	slog.Info("shutdown complete")
}
