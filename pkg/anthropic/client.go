// Package anthropic wraps the official SDK behind the narrow interface the
// enrichment workflow needs: one vision-capable message call whose tool use
// is resolved internally before the response is returned.
package anthropic

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// Client defines the Anthropic API operations used by the enrichment workflow.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

// MessageRequest is our own request type for CreateMessage.
type MessageRequest struct {
	Model     string
	MaxTokens int64
	System    string
	Blocks    []ContentBlock
	WebSearch bool
}

// ContentBlock is a single block of user content: text, or a base64 image.
type ContentBlock struct {
	Type      string // "text" or "image"
	Text      string
	ImageData []byte
	ImageMime string
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// ImageBlock builds an image content block.
func ImageBlock(data []byte, mimeType string) ContentBlock {
	return ContentBlock{Type: "image", ImageData: data, ImageMime: mimeType}
}

// MessageResponse is our own response type from CreateMessage. Text holds the
// concatenated text blocks of the final message.
type MessageResponse struct {
	ID         string
	Model      string
	Text       string
	StopReason string
	Usage      TokenUsage
}

// TokenUsage tracks token consumption across all internal iterations.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// RateLimitError reports that the API rejected a request with HTTP 429.
// RetryAfter carries the server's advisory wait, zero when absent.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("anthropic: rate limited, retry after %s", e.RetryAfter)
	}
	return "anthropic: rate limited"
}

// APIError reports any other non-success API response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("anthropic: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("anthropic: status %d", e.StatusCode)
}

// maxToolIterations caps the internal tool-use continuation loop.
const maxToolIterations = 10

// sdkClient implements Client using the official anthropic-sdk-go. SDK-level
// retries are disabled; rate-limit recovery belongs to the caller, which needs
// to observe the 429 and its advisory wait.
type sdkClient struct {
	client sdk.Client
}

// NewClient creates a new Anthropic client backed by the SDK.
func NewClient(apiKey string) Client {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
		),
	}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(toSDKBlocks(req.Blocks)...),
		},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.WebSearch {
		params.Tools = []sdk.ToolUnionParam{
			{OfWebSearchTool20250305: &sdk.WebSearchTool20250305Param{}},
		}
	}

	var usage TokenUsage
	var msg *sdk.Message
	for iter := 0; iter < maxToolIterations; iter++ {
		var err error
		msg, err = c.client.Messages.New(ctx, params)
		if err != nil {
			return nil, mapSDKError(err)
		}

		usage.InputTokens += msg.Usage.InputTokens
		usage.OutputTokens += msg.Usage.OutputTokens

		switch string(msg.StopReason) {
		case "tool_use":
			// Client-side tool requests are acknowledged without execution;
			// the model is asked to finish from what it already has. Server
			// tools (web search) resolve before the response returns.
			results := toolAcknowledgements(msg)
			if len(results) == 0 {
				return fromSDKMessage(msg, usage), nil
			}
			params.Messages = append(params.Messages, msg.ToParam(), sdk.NewUserMessage(results...))
		case "pause_turn":
			// Server tool work was split across turns; resend to continue.
			params.Messages = append(params.Messages, msg.ToParam())
		default:
			return fromSDKMessage(msg, usage), nil
		}
	}

	return fromSDKMessage(msg, usage), nil
}

func toSDKBlocks(blocks []ContentBlock) []sdk.ContentBlockParamUnion {
	out := make([]sdk.ContentBlockParamUnion, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case "image":
			encoded := base64.StdEncoding.EncodeToString(b.ImageData)
			out = append(out, sdk.NewImageBlockBase64(b.ImageMime, encoded))
		default:
			out = append(out, sdk.NewTextBlock(b.Text))
		}
	}
	return out
}

func toolAcknowledgements(msg *sdk.Message) []sdk.ContentBlockParamUnion {
	var results []sdk.ContentBlockParamUnion
	for _, block := range msg.Content {
		if block.Type == "tool_use" {
			results = append(results, sdk.NewToolResultBlock(block.ID,
				"Search completed. Please continue with your analysis and return the final JSON.", false))
		}
	}
	return results
}

func fromSDKMessage(msg *sdk.Message, usage TokenUsage) *MessageResponse {
	var sb strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}

	return &MessageResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Text:       strings.TrimSpace(sb.String()),
		StopReason: string(msg.StopReason),
		Usage:      usage,
	}
}

// mapSDKError converts SDK failures into the package's typed errors so
// callers can branch on rate limits without importing the SDK.
func mapSDKError(err error) error {
	var apierr *sdk.Error
	if !errors.As(err, &apierr) {
		return eris.Wrap(err, "anthropic: create message")
	}

	if apierr.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: retryAfterHeader(apierr.Response)}
	}

	return &APIError{StatusCode: apierr.StatusCode, Message: apierr.Error()}
}

// retryAfterHeader parses a Retry-After header as delta seconds or HTTP-date.
func retryAfterHeader(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
