// Package enrich implements the single-lot enrichment call: request
// construction, per-call timeout, and transparent rate-limit recovery.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lotsmith/internal/model"
	"github.com/sells-group/lotsmith/pkg/anthropic"
)

// Result is the enriched title/description pair for one lot.
type Result struct {
	Title       string `json:"enrichedTitle"`
	Description string `json:"enrichedDescription"`
}

// Config controls the enrichment call.
type Config struct {
	Model     string
	MaxTokens int64
	WebSearch bool

	// Timeout bounds a single attempt. A rate-limited attempt that retries
	// gets a fresh timeout per attempt.
	Timeout time.Duration

	// RateLimitWait is the wait used when a 429 carries no advisory duration;
	// RateLimitCap bounds any advisory wait.
	RateLimitWait time.Duration
	RateLimitCap  time.Duration
}

// DefaultConfig returns the reference tuning: 120s per attempt, 60s fallback
// wait capped at 120s.
func DefaultConfig(apiModel string) Config {
	return Config{
		Model:         apiModel,
		MaxTokens:     1024,
		WebSearch:     true,
		Timeout:       120 * time.Second,
		RateLimitWait: 60 * time.Second,
		RateLimitCap:  120 * time.Second,
	}
}

// Enricher drives enrichment calls against an anthropic.Client.
type Enricher struct {
	client anthropic.Client
	cfg    Config

	// waitFor performs the rate-limit wait; injected so tests run without
	// wall-clock sleeps.
	waitFor func(ctx context.Context, d time.Duration) error
}

// New creates an Enricher. Zero config durations fall back to the defaults.
func New(client anthropic.Client, cfg Config) *Enricher {
	def := DefaultConfig(cfg.Model)
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RateLimitWait <= 0 {
		cfg.RateLimitWait = def.RateLimitWait
	}
	if cfg.RateLimitCap <= 0 {
		cfg.RateLimitCap = def.RateLimitCap
	}
	return &Enricher{client: client, cfg: cfg, waitFor: sleepContext}
}

// Enrich performs one logical enrichment call for a lot. Rate-limit
// rejections are absorbed by waiting the advisory duration and retrying the
// same request; the caller observes a single outcome. Attempt count is
// unbounded; each wait is capped and cancellable through ctx.
func (e *Enricher) Enrich(ctx context.Context, lot model.Lot) (*Result, error) {
	req := anthropic.MessageRequest{
		Model:     e.cfg.Model,
		MaxTokens: e.cfg.MaxTokens,
		System:    systemPrompt,
		Blocks:    buildBlocks(lot),
		WebSearch: e.cfg.WebSearch,
	}
	log := zap.L().With(zap.String("lot", lot.LotNumber))

	for {
		resp, err := e.attempt(ctx, req)
		if err == nil {
			return parseResult(resp.Text)
		}

		var rl *anthropic.RateLimitError
		if !errors.As(err, &rl) {
			return nil, err
		}

		wait := rl.RetryAfter
		if wait <= 0 {
			wait = e.cfg.RateLimitWait
		}
		if wait > e.cfg.RateLimitCap {
			wait = e.cfg.RateLimitCap
		}

		log.Warn("enrich: rate limited, waiting before retry", zap.Duration("wait", wait))
		if waitErr := e.waitFor(ctx, wait); waitErr != nil {
			return nil, waitErr
		}
	}
}

// attempt issues one bounded call and maps its failure modes.
func (e *Enricher) attempt(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	resp, err := e.client.CreateMessage(callCtx, req)
	if err == nil {
		return resp, nil
	}

	// The per-attempt deadline is a terminal failure for the attempt, never
	// a retry trigger. A cancelled parent context stays a plain ctx error.
	if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return nil, &TimeoutError{Elapsed: e.cfg.Timeout}
	}

	var rl *anthropic.RateLimitError
	if errors.As(err, &rl) {
		return nil, err
	}

	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return nil, &EnrichmentError{StatusCode: apiErr.StatusCode, Message: apiErr.Message}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, &EnrichmentError{Message: err.Error()}
}

// parseResult extracts the JSON object from the model's text. The model is
// asked for bare JSON but may wrap it in prose; the first-to-last brace span
// is what gets parsed.
func parseResult(text string) (*Result, error) {
	if text == "" {
		return nil, &EnrichmentError{Message: "no text response from model"}
	}

	payload := text
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			payload = text[start : end+1]
		}
	}

	var res Result
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, &EnrichmentError{Message: "failed to parse model JSON response"}
	}
	return &res, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
