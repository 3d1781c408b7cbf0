// Package llm extracts a structured intent from a transcript using a
// generative text service, falling back to keyword matching.
package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"chaos-car/internal/domain"
	"chaos-car/internal/infra"
	"chaos-car/internal/intent"
)

type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Extraction is the result of GetIntent. Err carries the last service error
// when the fallback was used after every attempt failed.
type Extraction struct {
	Intent   domain.Intent
	Source   Source
	Attempts int
	Err      error
}

type Extractor struct {
	completer      Completer
	retry          infra.RetryConfig
	attemptTimeout time.Duration
	logger         *slog.Logger
}

type ExtractorOption func(*Extractor)

// WithAttemptTimeout bounds each call to the service separately, so one hung
// request still leaves room for the remaining attempts.
func WithAttemptTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) { e.attemptTimeout = d }
}

// NewExtractor builds an extractor. A nil completer means no credential is
// configured and every call goes straight to the keyword fallback.
func NewExtractor(completer Completer, retry infra.RetryConfig, logger *slog.Logger, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		completer: completer,
		retry:     retry,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) Provider() string {
	if e.completer == nil {
		return "keywords"
	}
	return e.completer.Name()
}

// GetIntent never fails: service errors are retried and then absorbed by the
// keyword fallback, and model text is always resolved by intent.Parse.
func (e *Extractor) GetIntent(ctx context.Context, text string) Extraction {
	if e.completer == nil {
		e.logger.Debug("no intent service configured, using keyword fallback")
		return Extraction{Intent: FallbackIntent(text), Source: SourceFallback}
	}

	user := BuildUserPrompt(text)
	retry := e.retry
	retry.OnRetry = func(attempt int, err error, delay time.Duration) {
		e.logger.Warn("intent service attempt failed",
			"provider", e.completer.Name(),
			"attempt", attempt,
			"retry_in", delay,
			"error", err,
		)
	}

	var (
		parsed   domain.Intent
		attempts int
	)
	err := infra.WithRetry(ctx, retry, func() error {
		attempts++
		content, err := e.complete(ctx, user)
		if err != nil {
			return err
		}
		content = strings.TrimSpace(content)
		if content == "" {
			return ErrEmptyCompletion
		}
		e.logger.Debug("intent service replied", "provider", e.completer.Name(), "content", content)
		parsed = intent.Parse(intent.StripFences(content))
		return nil
	})
	if err == nil {
		return Extraction{Intent: parsed, Source: SourceModel, Attempts: attempts}
	}

	level := slog.LevelError
	if errors.Is(err, context.Canceled) {
		level = slog.LevelWarn
	}
	e.logger.Log(ctx, level, "intent service exhausted, using keyword fallback",
		"provider", e.completer.Name(),
		"attempts", attempts,
		"error", err,
	)

	return Extraction{
		Intent:   FallbackIntent(text),
		Source:   SourceFallback,
		Attempts: attempts,
		Err:      err,
	}
}

func (e *Extractor) complete(ctx context.Context, user string) (string, error) {
	if e.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.attemptTimeout)
		defer cancel()
	}
	return e.completer.Complete(ctx, SystemPrompt, user)
}
