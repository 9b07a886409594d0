// Package interpret provides the natural-language interpretation backend
// used by the capture pipeline. It supports Anthropic and OpenAI providers
// over plain HTTP with rate limiting and retries, and a Client wrapper
// that applies the per-call timeout and JSON decoding every pipeline stage
// shares. Any error out of this package means "backend failure": the
// calling stage substitutes its deterministic fallback.
package interpret

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Request is a single interpretation call.
type Request struct {
	// System is the system prompt fixing the response schema.
	System string

	// User is the user-turn content.
	User string
}

// Provider completes an interpretation request and returns the raw model
// text, expected to be a JSON document.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)

	// Available returns true if the provider is configured and ready.
	Available() bool
}

// Config holds provider configuration.
type Config struct {
	Provider  string // "disabled", "anthropic", "openai"
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// NewProvider creates a provider based on configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", "disabled":
		return &disabledProvider{}, nil
	case "anthropic":
		return newAnthropicProvider(cfg)
	case "openai":
		return newOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// disabledProvider always fails, forcing every stage onto its fallback.
type disabledProvider struct{}

func (d *disabledProvider) Complete(ctx context.Context, req Request) (string, error) {
	return "", fmt.Errorf("interpretation backend disabled")
}

func (d *disabledProvider) Available() bool { return false }

// Client wraps a provider with the timeout-then-fallback calling
// convention shared by the extraction, classification and context stages.
type Client struct {
	provider Provider
	timeout  time.Duration
}

// NewClient creates a client around the provider. A zero timeout defaults
// to 20 seconds.
func NewClient(provider Provider, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{provider: provider, timeout: timeout}
}

// Available reports whether the underlying provider is configured.
func (c *Client) Available() bool {
	return c.provider != nil && c.provider.Available()
}

// Interpret calls the provider under the client timeout and unmarshals the
// JSON response into out. A timeout, transport error, rate-limit exhaustion
// or malformed response all surface as an error; callers treat every error
// identically and fall back.
func (c *Client) Interpret(ctx context.Context, req Request, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.provider.Complete(ctx, req)
	if err != nil {
		return fmt.Errorf("interpretation call failed: %w", err)
	}

	cleaned := cleanJSON(raw)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("malformed interpretation response: %w", err)
	}
	return nil
}

// cleanJSON strips markdown code fences models sometimes wrap JSON in.
func cleanJSON(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// retryableError wraps an error to indicate it can be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryableError checks if an error should be retried.
func isRetryableError(err error) bool {
	for e := err; e != nil; {
		if _, ok := e.(*retryableError); ok {
			return true
		}
		if unwrapper, ok := e.(interface{ Unwrap() error }); ok {
			e = unwrapper.Unwrap()
		} else {
			break
		}
	}
	return false
}
