package interpret

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns a canned response or error.
type fakeProvider struct {
	response string
	err      error
	delay    time.Duration
	calls    int
}

func (f *fakeProvider) Complete(ctx context.Context, req Request) (string, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.response, f.err
}

func (f *fakeProvider) Available() bool { return true }

func TestClient_Interpret(t *testing.T) {
	provider := &fakeProvider{response: `{"tone":"ok"}`}
	client := NewClient(provider, time.Second)

	var out struct {
		Tone string `json:"tone"`
	}
	require.NoError(t, client.Interpret(context.Background(), Request{User: "hi"}, &out))
	assert.Equal(t, "ok", out.Tone)
}

func TestClient_Interpret_StripsCodeFences(t *testing.T) {
	provider := &fakeProvider{response: "```json\n{\"tone\":\"stressed\"}\n```"}
	client := NewClient(provider, time.Second)

	var out struct {
		Tone string `json:"tone"`
	}
	require.NoError(t, client.Interpret(context.Background(), Request{User: "hi"}, &out))
	assert.Equal(t, "stressed", out.Tone)
}

func TestClient_Interpret_MalformedResponse(t *testing.T) {
	provider := &fakeProvider{response: "I could not produce JSON, sorry"}
	client := NewClient(provider, time.Second)

	var out map[string]any
	err := client.Interpret(context.Background(), Request{User: "hi"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}

func TestClient_Interpret_Timeout(t *testing.T) {
	provider := &fakeProvider{response: `{}`, delay: 200 * time.Millisecond}
	client := NewClient(provider, 20*time.Millisecond)

	var out map[string]any
	err := client.Interpret(context.Background(), Request{User: "hi"}, &out)
	assert.Error(t, err)
}

func TestClient_Interpret_ProviderError(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("rate limited (429)")}
	client := NewClient(provider, time.Second)

	var out map[string]any
	assert.Error(t, client.Interpret(context.Background(), Request{User: "hi"}, &out))
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		available bool
	}{
		{"disabled by default", Config{}, false, false},
		{"disabled explicit", Config{Provider: "disabled"}, false, false},
		{"anthropic with key", Config{Provider: "anthropic", APIKey: "k"}, false, true},
		{"anthropic without key", Config{Provider: "anthropic"}, true, false},
		{"openai with key", Config{Provider: "openai", APIKey: "k"}, false, true},
		{"unknown", Config{Provider: "oracle"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.available, p.Available())
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(fmt.Errorf("plain error")))
	assert.True(t, isRetryableError(&retryableError{err: fmt.Errorf("boom")}))
	assert.True(t, isRetryableError(fmt.Errorf("wrapped: %w", &retryableError{err: fmt.Errorf("boom")})))
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSON(`  {"a":1}  `))
}
