package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"json info", "info", "json", false},
		{"console debug", "debug", "console", false},
		{"bad level", "loud", "json", true},
		{"bad format", "info", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ContextFields(ctx))

	ctx = WithUserID(ctx, "user-1")
	ctx = WithRequestID(ctx, "req-42")

	fields := ContextFields(ctx)
	require.Len(t, fields, 2)
	assert.Equal(t, "user.id", fields[0].Key)
	assert.Equal(t, "request.id", fields[1].Key)
}

func TestLogger_ContextCorrelation(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithUserID(context.Background(), "user-1")

	tl.Info(ctx, "capture complete")

	tl.AssertLogged(t, zapcore.InfoLevel, "capture complete")
	entries := tl.All()
	require.Len(t, entries, 1)
	require.Len(t, entries[0].Context, 1)
	assert.Equal(t, "user-1", entries[0].Context[0].String)
}
