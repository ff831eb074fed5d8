package logger

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framefoundry/thumbgen-api/internal/config"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
	}{
		{"debug level", "debug"},
		{"info level", "info"},
		{"warn level", "warn"},
		{"error level", "error"},
		{"invalid level falls back to info", "verbose"},
		{"case insensitive", "DEBUG"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := Setup(config.ServerConfig{Port: 8080, LogLevel: tc.logLevel})
			require.NoError(t, err)
			require.NotNil(t, logger)
		})
	}
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	// Without a stored logger, FromContext falls back to the default.
	assert.NotNil(t, FromContext(context.Background()))

	stored := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := WithLogger(context.Background(), stored)
	assert.Same(t, stored, FromContext(ctx))
}

func TestFromContextOrDefault(t *testing.T) {
	t.Parallel()

	def := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Empty context yields the provided default.
	assert.Same(t, def, FromContextOrDefault(context.Background(), def))

	// A stored logger wins over the provided default.
	stored := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := WithLogger(context.Background(), stored)
	assert.Same(t, stored, FromContextOrDefault(ctx, def))

	// Nil default falls back to slog.Default().
	assert.NotNil(t, FromContextOrDefault(context.Background(), nil))
}
