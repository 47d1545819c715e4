package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sells-group/lotsmith/internal/model"
	"github.com/sells-group/lotsmith/pkg/anthropic"
)

// scriptedClient returns one queued response or error per call.
type scriptedClient struct {
	calls     int
	responses []func(ctx context.Context) (*anthropic.MessageResponse, error)
	requests  []anthropic.MessageRequest
}

func (c *scriptedClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	c.requests = append(c.requests, req)
	if c.calls >= len(c.responses) {
		return nil, errors.New("unexpected extra call")
	}
	fn := c.responses[c.calls]
	c.calls++
	return fn(ctx)
}

func ok(text string) func(context.Context) (*anthropic.MessageResponse, error) {
	return func(context.Context) (*anthropic.MessageResponse, error) {
		return &anthropic.MessageResponse{Text: text, StopReason: "end_turn"}, nil
	}
}

func fail(err error) func(context.Context) (*anthropic.MessageResponse, error) {
	return func(context.Context) (*anthropic.MessageResponse, error) {
		return nil, err
	}
}

func newTestEnricher(client anthropic.Client) (*Enricher, *[]time.Duration) {
	e := New(client, DefaultConfig("claude-sonnet-4-20250514"))
	var waits []time.Duration
	e.waitFor = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return e, &waits
}

func TestEnrich_Success(t *testing.T) {
	client := &scriptedClient{responses: []func(context.Context) (*anthropic.MessageResponse, error){
		ok(`Here is the result: {"enrichedTitle":"Roseville Pottery Vase","enrichedDescription":"A 1940s art pottery vase."} Hope that helps.`),
	}}
	e, _ := newTestEnricher(client)

	res, err := e.Enrich(context.Background(), model.Lot{LotNumber: "4", Title: "Vase"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Title != "Roseville Pottery Vase" || res.Description != "A 1940s art pottery vase." {
		t.Errorf("parsed wrong: %+v", res)
	}
}

func TestEnrich_RequestConstruction(t *testing.T) {
	client := &scriptedClient{responses: []func(context.Context) (*anthropic.MessageResponse, error){
		ok(`{"enrichedTitle":"t","enrichedDescription":"d"}`),
	}}
	e, _ := newTestEnricher(client)

	lot := model.Lot{
		LotNumber: "9",
		Title:     "Mystery Box",
		Image:     &model.Image{Data: []byte("img"), MimeType: "image/png"},
	}
	if _, err := e.Enrich(context.Background(), lot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := client.requests[0]
	if len(req.Blocks) != 2 || req.Blocks[0].Type != "image" || req.Blocks[1].Type != "text" {
		t.Fatalf("expected image then text block, got %+v", req.Blocks)
	}
	text := req.Blocks[1].Text
	if want := `Auction lot #9`; !contains(text, want) {
		t.Errorf("text block missing lot number: %q", text)
	}
	if !contains(text, "No description provided.") {
		t.Errorf("empty description needs the explicit marker: %q", text)
	}
	if req.System == "" || req.Model != "claude-sonnet-4-20250514" {
		t.Errorf("system prompt or model not set: model=%q", req.Model)
	}
}

func TestEnrich_RateLimitAbsorbedTransparently(t *testing.T) {
	client := &scriptedClient{responses: []func(context.Context) (*anthropic.MessageResponse, error){
		fail(&anthropic.RateLimitError{RetryAfter: 1 * time.Second}),
		ok(`{"enrichedTitle":"t","enrichedDescription":"d"}`),
	}}
	e, waits := newTestEnricher(client)

	res, err := e.Enrich(context.Background(), model.Lot{LotNumber: "1", Title: "a"})
	if err != nil {
		t.Fatalf("single rate limit must be absorbed, got error: %v", err)
	}
	if res.Title != "t" {
		t.Errorf("unexpected result: %+v", res)
	}
	if client.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", client.calls)
	}
	if len(*waits) != 1 || (*waits)[0] != 1*time.Second {
		t.Errorf("expected one 1s advisory wait, got %v", *waits)
	}
}

func TestEnrich_RateLimitWaitDefaultsAndCap(t *testing.T) {
	client := &scriptedClient{responses: []func(context.Context) (*anthropic.MessageResponse, error){
		fail(&anthropic.RateLimitError{}),
		fail(&anthropic.RateLimitError{RetryAfter: 10 * time.Minute}),
		ok(`{"enrichedTitle":"t","enrichedDescription":"d"}`),
	}}
	e, waits := newTestEnricher(client)

	if _, err := e.Enrich(context.Background(), model.Lot{LotNumber: "1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*waits) != 2 {
		t.Fatalf("expected 2 waits, got %v", *waits)
	}
	if (*waits)[0] != 60*time.Second {
		t.Errorf("missing advisory should use 60s default, got %s", (*waits)[0])
	}
	if (*waits)[1] != 120*time.Second {
		t.Errorf("advisory wait should cap at 120s, got %s", (*waits)[1])
	}
}

func TestEnrich_RateLimitWaitCancellable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &scriptedClient{responses: []func(context.Context) (*anthropic.MessageResponse, error){
		fail(&anthropic.RateLimitError{}),
	}}
	e := New(client, DefaultConfig("m"))
	e.waitFor = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := e.Enrich(ctx, model.Lot{LotNumber: "1"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if client.calls != 1 {
		t.Errorf("no further attempts after cancellation, got %d", client.calls)
	}
}

func TestEnrich_TimeoutIsTerminal(t *testing.T) {
	client := &scriptedClient{responses: []func(context.Context) (*anthropic.MessageResponse, error){
		func(ctx context.Context) (*anthropic.MessageResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}}
	e, waits := newTestEnricher(client)
	e.cfg.Timeout = 10 * time.Millisecond

	_, err := e.Enrich(context.Background(), model.Lot{LotNumber: "2"})
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if !contains(te.Error(), "re-run") {
		t.Errorf("timeout message should point at re-run: %q", te.Error())
	}
	if len(*waits) != 0 || client.calls != 1 {
		t.Error("timeout must not trigger a retry")
	}
}

func TestEnrich_BackendErrorCarriesMessage(t *testing.T) {
	client := &scriptedClient{responses: []func(context.Context) (*anthropic.MessageResponse, error){
		fail(&anthropic.APIError{StatusCode: 500, Message: "model overloaded"}),
	}}
	e, _ := newTestEnricher(client)

	_, err := e.Enrich(context.Background(), model.Lot{LotNumber: "2"})
	var ee *EnrichmentError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EnrichmentError, got %v", err)
	}
	if ee.Message != "model overloaded" {
		t.Errorf("backend message lost: %q", ee.Message)
	}
}

func TestEnrich_UnparseableResponse(t *testing.T) {
	client := &scriptedClient{responses: []func(context.Context) (*anthropic.MessageResponse, error){
		ok("I could not produce JSON for this one."),
	}}
	e, _ := newTestEnricher(client)

	_, err := e.Enrich(context.Background(), model.Lot{LotNumber: "2"})
	var ee *EnrichmentError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EnrichmentError, got %v", err)
	}
}

func TestParseResult_MissingFieldsAllowed(t *testing.T) {
	res, err := parseResult(`{"enrichedTitle":"only a title"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Title != "only a title" || res.Description != "" {
		t.Errorf("partial payload should pass through: %+v", res)
	}
}

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}
