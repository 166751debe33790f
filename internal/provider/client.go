// Package provider implements ProviderClient (spec §4.4): a single
// asynchronous client over OpenAI's transcription and chat completion APIs,
// polymorphic over {transcribe, complete, stream_complete, review} and over
// the {primary_remote, fallback_remote, local} tier a call is routed to.
package provider

import (
	"context"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/subtitlepipe/core/internal/apierr"
)

// Tier names the variant a call is routed to (spec §4.4).
type Tier string

const (
	TierPrimaryRemote  Tier = "primary_remote"
	TierFallbackRemote Tier = "fallback_remote"
	TierLocal          Tier = "local"
)

// Retry policy per spec §4.4: base delay 2s, cap 10s, max 3 attempts.
var defaultRetryConfig = apierr.RetryConfig{
	MaxRetries: 2, // 3 attempts in all: the first call plus 2 retries
	BaseDelay:  2 * time.Second,
	MaxDelay:   10 * time.Second,
}

// Client is the ProviderClient (C4). It wraps one go-openai client per
// remote tier; TierLocal has no backing client in this implementation
// (see DESIGN.md's Open Question decisions).
type Client struct {
	clients     map[Tier]*openai.Client
	retryConfig apierr.RetryConfig
}

// Option configures a Client.
type Option func(*Client)

// WithRetryConfig overrides the default retry policy (for testing).
func WithRetryConfig(cfg apierr.RetryConfig) Option {
	return func(c *Client) { c.retryConfig = cfg }
}

// New builds a Client from an API key for the primary tier, and optionally a
// second key/base-URL for the fallback tier. The Idempotency-Key header (spec
// §4.4) is injected per-call by idempotencyTransport, keyed off the context
// value set by WithIdempotencyKey.
func New(primaryAPIKey string, opts ...Option) *Client {
	c := &Client{
		clients:     map[Tier]*openai.Client{},
		retryConfig: defaultRetryConfig,
	}
	c.clients[TierPrimaryRemote] = newOpenAIClient(primaryAPIKey, "")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithFallback registers a fallback_remote tier backed by a second API key
// (and, optionally, a compatible base URL for an alternate provider).
func (c *Client) WithFallback(apiKey, baseURL string) *Client {
	c.clients[TierFallbackRemote] = newOpenAIClient(apiKey, baseURL)
	return c
}

func newOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{
		Transport: idempotencyTransport{base: http.DefaultTransport},
		Timeout:   10 * time.Minute,
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

func (c *Client) clientFor(tier Tier) (*openai.Client, error) {
	cl, ok := c.clients[tier]
	if !ok || cl == nil {
		return nil, apierr.ErrProviderUnavailable
	}
	return cl, nil
}

type idempotencyKeyCtx struct{}

// WithIdempotencyKey attaches an idempotency key (the operation id, reused
// across retries of the same logical call) so the server does not double
// bill retried requests (spec §4.4).
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

// idempotencyTransport injects the Idempotency-Key header from context.
type idempotencyTransport struct {
	base http.RoundTripper
}

func (t idempotencyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if key, ok := req.Context().Value(idempotencyKeyCtx{}).(string); ok && key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return t.base.RoundTrip(req)
}
