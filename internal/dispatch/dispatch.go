// Package dispatch turns (prompt id, text) into a provider call: it resolves
// the prompt, composes the full prompt, picks the adapter for the configured
// provider and runs it under the request deadline.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scramble-ai/scramble/internal/adapter"
	"github.com/scramble-ai/scramble/internal/apperr"
	"github.com/scramble-ai/scramble/internal/config"
	"github.com/scramble-ai/scramble/internal/metrics"
	"github.com/scramble-ai/scramble/internal/prompt"
	"github.com/scramble-ai/scramble/internal/queue"
)

// Result is a generation result plus what produced it.
type Result struct {
	adapter.GenerationResult
	PromptID string
	Provider adapter.ProviderKind
	Model    string
	Elapsed  time.Duration
}

// Enhancer is the single entry point used by every trigger: HTTP handler,
// engine and CLI.
type Enhancer interface {
	Enhance(ctx context.Context, promptID, text string) (Result, error)
}

// Settings supplies the configuration snapshot read on every call.
type Settings interface {
	Current() config.Config
}

// Dispatcher performs one enhancement with no retries.
type Dispatcher struct {
	settings Settings
	adapters adapter.Registry
	logger   *slog.Logger
}

func New(settings Settings, adapters adapter.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{settings: settings, adapters: adapters, logger: logger}
}

func (d *Dispatcher) Enhance(ctx context.Context, promptID, text string) (Result, error) {
	cfg := d.settings.Current()

	tmpl, ok := prompt.Find(prompt.All(cfg.CustomPrompts), promptID)
	if !ok {
		return Result{}, apperr.InvalidPrompt(promptID)
	}

	a, ok := d.adapters.Lookup(cfg.Provider)
	if !ok {
		return Result{}, apperr.UnsupportedProvider(string(cfg.Provider))
	}

	req := cfg.Request(tmpl.Compose(text))
	res := Result{PromptID: promptID, Provider: cfg.Provider, Model: req.Model}

	callCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	gen, err := a.Invoke(callCtx, req)
	res.Elapsed = time.Since(start)
	metrics.EnhanceDuration.WithLabelValues(string(cfg.Provider)).Observe(res.Elapsed.Seconds())

	if err != nil {
		err = classify(ctx, callCtx, a.Name(), err)
		metrics.EnhanceFailures.WithLabelValues(string(cfg.Provider), apperr.KindOf(err).String()).Inc()
		d.logger.Warn("enhance failed",
			"provider", cfg.Provider,
			"prompt_id", promptID,
			"elapsed_ms", res.Elapsed.Milliseconds(),
			"error", err,
		)
		return res, err
	}

	d.logger.Info("enhance",
		"provider", cfg.Provider,
		"model", req.Model,
		"prompt_id", promptID,
		"input_chars", len(text),
		"elapsed_ms", res.Elapsed.Milliseconds(),
	)
	res.GenerationResult = gen
	return res, nil
}

// classify turns an unclassified failure caused by our own deadline into a
// Timeout. A caller cancellation is passed through as is.
func classify(parent, call context.Context, provider string, err error) error {
	if apperr.KindOf(err) != apperr.KindUnknown {
		return err
	}
	if parent.Err() == nil && errors.Is(call.Err(), context.DeadlineExceeded) {
		return apperr.Timeout(provider, err)
	}
	return fmt.Errorf("dispatch: %w", err)
}

// Queued routes every enhancement through the shared rate-limited queue.
type Queued struct {
	Dispatcher *Dispatcher
	Queue      *queue.Queue
}

func (q *Queued) Enhance(ctx context.Context, promptID, text string) (Result, error) {
	var out Result
	ticket := q.Queue.Enqueue(ctx, func(ctx context.Context) (adapter.GenerationResult, error) {
		res, err := q.Dispatcher.Enhance(ctx, promptID, text)
		out = res
		return res.GenerationResult, err
	})
	_, err := ticket.Wait(ctx)
	select {
	case <-ticket.Done():
		return out, err
	default:
		// The caller gave up while the task was still queued or running.
		return Result{PromptID: promptID}, err
	}
}
