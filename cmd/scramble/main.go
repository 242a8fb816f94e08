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
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/scramble-ai/scramble/internal/adapter"
	"github.com/scramble-ai/scramble/internal/config"
	"github.com/scramble-ai/scramble/internal/dispatch"
	"github.com/scramble-ai/scramble/internal/prompt"
	"github.com/scramble-ai/scramble/internal/queue"
	"github.com/scramble-ai/scramble/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	useMock := flag.Bool("mock", false, "use mock adapter instead of real LLM backends")
	port := flag.Int("port", 0, "override listen port")
	flag.Parse()

	// Flags are applied as environment overrides so watcher reloads keep them.
	if *useMock {
		os.Setenv("SCRAMBLE_PROVIDER", string(adapter.Mock))
	}
	if *port > 0 {
		os.Setenv("SCRAMBLE_PORT", strconv.Itoa(*port))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	store := config.NewStore(cfg)
	prompts := prompt.NewRegistry(cfg.CustomPrompts)
	store.Subscribe(func(ch config.Change, next config.Config) {
		if ch.Has("custom_prompts") {
			prompts.Refresh(next.CustomPrompts)
		}
		logger.Info("config reloaded", "changed", ch.Keys, "provider", next.Provider, "model", next.Model)
		for _, key := range []string{"port", "http_rate_limit", "rate_limit"} {
			if ch.Has(key) {
				logger.Warn("setting changed on disk, restart to apply", "key", key)
			}
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *configPath != "" {
		go func() {
			if err := config.Watch(ctx, *configPath, store); err != nil {
				logger.Error("config watcher stopped", "error", err)
			}
		}()
	}

	// No client timeout: each call is bounded by the request_timeout current
	// when it is dispatched.
	adapters := adapter.NewRegistry(&http.Client{}, *useMock)
	q := queue.New(queue.Options{MaxRequests: cfg.RateLimit.MaxRequests, Window: cfg.RateLimit.Window})
	enhancer := &dispatch.Queued{Dispatcher: dispatch.New(store, adapters, logger), Queue: q}

	handler := server.SetupMux(server.Deps{
		Store:    store,
		Adapters: adapters,
		Enhancer: enhancer,
		Prompts:  prompts,
		Logger:   logger,
	})

	if cfg.APIKey != "" {
		logger.Info("auth: API key required (X-API-Key header)")
	} else {
		logger.Info("auth: disabled (no api_key configured)")
	}
	if *useMock {
		logger.Info("mode: mock adapter enabled")
	}
	logger.Info("provider",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"queue", fmt.Sprintf("%d per %s", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window),
	)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("scramble api listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
