package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"kiosk-architect/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	DefaultModel   = openai.GPT4oMini
	DefaultBackoff = 2 * time.Second
)

// ChatCompleter is the part of the OpenAI client used for generation.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// CompleterFactory builds a ChatCompleter authenticated with key.
type CompleterFactory func(key string) ChatCompleter

// OpenAICompleters returns a factory for real OpenAI clients. An empty
// baseURL keeps the library default.
func OpenAICompleters(baseURL string) CompleterFactory {
	return func(key string) ChatCompleter {
		cfg := openai.DefaultConfig(key)
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		return openai.NewClientWithConfig(cfg)
	}
}

// Client turns raw product text into a ProductRecord. Keys are tried in
// order: a rejected key moves on to the next one immediately, an overloaded
// service waits for the backoff first.
type Client struct {
	keys         []string
	model        string
	backoff      time.Duration
	newCompleter CompleterFactory
	sleep        func(ctx context.Context, d time.Duration) error
	attempts     *prometheus.CounterVec
	logger       *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.backoff = d
	}
}

func WithCompleterFactory(f CompleterFactory) Option {
	return func(c *Client) {
		c.newCompleter = f
	}
}

// WithSleep replaces the wait between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// WithAttemptCounter counts attempts by outcome label.
func WithAttemptCounter(v *prometheus.CounterVec) Option {
	return func(c *Client) {
		c.attempts = v
	}
}

// NewClient creates a Client for the given keys. Blank and repeated keys are
// dropped; the remaining order is the failover order.
func NewClient(keys []string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		keys:         uniqueKeys(keys),
		model:        DefaultModel,
		backoff:      DefaultBackoff,
		newCompleter: OpenAICompleters(""),
		sleep:        sleepContext,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Keys returns the number of usable keys.
func (c *Client) Keys() int {
	return len(c.keys)
}

// Generate sends text to the service and decodes the structured answer.
func (c *Client) Generate(ctx context.Context, text string) (domain.ProductRecord, error) {
	input := PlainText(text)
	if input == "" {
		return domain.ProductRecord{}, ErrEmptyInput
	}
	if len(c.keys) == 0 {
		return domain.ProductRecord{}, ErrNoCredentials
	}

	req := c.request(input)
	var lastErr *Error

	for i, key := range c.keys {
		if lastErr != nil && errors.Is(lastErr.Kind, ErrServiceOverloaded) {
			if err := c.sleep(ctx, c.backoff); err != nil {
				return domain.ProductRecord{}, err
			}
		}

		resp, err := c.newCompleter(key).CreateChatCompletion(ctx, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.ProductRecord{}, ctxErr
			}
			kind := classify(err)
			c.count(outcomeLabel(kind))
			c.logger.Warn("Generation attempt failed",
				zap.Int("key", i+1),
				zap.Int("keys", len(c.keys)),
				zap.Error(err),
			)
			lastErr = &Error{Kind: kind, Attempts: i + 1, Err: err}
			continue
		}

		record, err := decodeRecord(resp)
		if err != nil {
			c.count("malformed")
			c.logger.Warn("Generation returned a malformed record",
				zap.Int("key", i+1),
				zap.Error(err),
			)
			return domain.ProductRecord{}, &Error{Kind: ErrMalformedResponse, Attempts: i + 1, Err: err}
		}

		c.count("success")
		return record, nil
	}

	c.logger.Error("All API keys failed", zap.Int("keys", len(c.keys)), zap.Error(lastErr))
	return domain.ProductRecord{}, lastErr
}

func (c *Client) request(input string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: input},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: productSchema,
				Strict: true,
			},
		},
	}
}

func (c *Client) count(outcome string) {
	if c.attempts != nil {
		c.attempts.WithLabelValues(outcome).Inc()
	}
}

// classify maps a transport error to a failure class. Rate limiting, server
// errors and network failures are treated as overload.
func classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return ErrServiceOverloaded
	}

	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return ErrServiceOverloaded
	}
	return ErrCredentialsExhausted
}

func outcomeLabel(kind error) string {
	if errors.Is(kind, ErrServiceOverloaded) {
		return "overloaded"
	}
	return "rejected"
}

func decodeRecord(resp openai.ChatCompletionResponse) (domain.ProductRecord, error) {
	if len(resp.Choices) == 0 {
		return domain.ProductRecord{}, errors.New("response has no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)
	if content == "" || content == "null" {
		return domain.ProductRecord{}, errors.New("response is empty")
	}

	record := domain.NewProductRecord()
	if err := json.Unmarshal([]byte(content), &record); err != nil {
		return domain.ProductRecord{}, err
	}
	record.Normalize()
	return record, nil
}

func uniqueKeys(keys []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
