package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/sweep/pkg/log"
)

func TestGetLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		"debug": {input: "debug", want: slog.LevelDebug},
		"info":  {input: "info", want: slog.LevelInfo},
		"warn":  {input: "warn", want: slog.LevelWarn},
		"warn alias": {
			input: "warning",
			want:  slog.LevelWarn,
		},
		"error":      {input: "error", want: slog.LevelError},
		"mixed case": {input: "INFO", want: slog.LevelInfo},
		"unknown": {
			input:   "verbose",
			wantErr: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := log.GetLevel(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, log.ErrUnknownLogLevel)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetFormat(t *testing.T) {
	t.Parallel()

	got, err := log.GetFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, log.FormatJSON, got)

	_, err = log.GetFormat("xml")
	require.ErrorIs(t, err, log.ErrUnknownLogFormat)
}

func TestCreateHandlerWithStrings(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	h, err := log.CreateHandlerWithStrings(&buf, "info", "logfmt")
	require.NoError(t, err)

	logger := slog.New(h)
	logger.Info("hello", slog.String("key", "value"))
	logger.Debug("filtered")

	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "key=value")
	assert.NotContains(t, out, "filtered")
}

func TestCreateHandlerWithStrings_Invalid(t *testing.T) {
	t.Parallel()

	_, err := log.CreateHandlerWithStrings(&bytes.Buffer{}, "nope", "text")
	require.ErrorIs(t, err, log.ErrInvalidArgument)

	_, err = log.CreateHandlerWithStrings(&bytes.Buffer{}, "info", "nope")
	require.ErrorIs(t, err, log.ErrInvalidArgument)
}

func TestWithContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	// No span, no stored logger: the default logger.
	assert.Equal(t, slog.Default(), log.WithContext(ctx))

	// A stored logger wins.
	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx = log.ContextWithLogger(ctx, logger)

	assert.Equal(t, logger, log.WithContext(ctx))
}
