package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// DefaultModel is used when the config names none.
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout bounds a single generation call.
	DefaultTimeout = 60 * time.Second

	// MaxRetries is the retry budget for rate-limit errors.
	MaxRetries = 3

	// BaseBackoff and MaxBackoff bound the exponential backoff window.
	BaseBackoff = 2 * time.Second
	MaxBackoff  = 32 * time.Second
)

// ErrAPIKeyNotSet is returned when no API key is configured.
var ErrAPIKeyNotSet = errors.New("OpenAI API key not set")

// OpenAIClient is the openai-go backed Generator.
type OpenAIClient struct {
	client  openai.Client
	model   string
	pricing Pricing
	timeout time.Duration
	logger  *slog.Logger
}

// OpenAIConfig holds client settings.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	Pricing Pricing
}

// NewOpenAIClient creates a Generator over the OpenAI chat completions API.
func NewOpenAIClient(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &OpenAIClient{
		client:  openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:   model,
		pricing: cfg.Pricing,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Generate runs one chat completion with rate-limit retry and backoff.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Temperature: openai.Float(req.Temperature),
	}

	if req.System != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(req.System))
	}
	params.Messages = append(params.Messages, openai.UserMessage(req.Prompt))

	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSONResponse {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		}
	}

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * BaseBackoff
			if backoff > MaxBackoff {
				backoff = MaxBackoff
			}

			c.logger.Warn("Retrying model call after rate limit",
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return nil, fmt.Errorf("model call failed: %w", err)
		}

		if len(completion.Choices) == 0 {
			return nil, fmt.Errorf("model returned no choices")
		}

		inputTokens := int(completion.Usage.PromptTokens)
		outputTokens := int(completion.Usage.CompletionTokens)

		return &Response{
			Content:      completion.Choices[0].Message.Content,
			Model:        string(completion.Model),
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			CostEstimate: c.pricing.Cost(inputTokens, outputTokens),
		}, nil
	}

	return nil, fmt.Errorf("model call retries exhausted: %w", lastErr)
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
