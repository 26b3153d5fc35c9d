package logger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "bookflow", func(context.Context) string { return "abc123" })

	log.Info(context.Background(), "listening", "addr", ":8000")

	got := lines(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "info", got[0]["level"])
	assert.Equal(t, "listening", got[0]["msg"])
	assert.Equal(t, "bookflow", got[0]["service"])
	assert.Equal(t, ":8000", got[0]["addr"])
	assert.Equal(t, "abc123", got[0]["trace_id"])
	assert.Contains(t, got[0], "time")
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "bookflow", nil)
	ctx := context.Background()

	log.Debug(ctx, "debug")
	log.Info(ctx, "info")
	log.Warn(ctx, "warn")
	log.Error(ctx, "error", "error", "boom")

	got := lines(t, &buf)
	require.Len(t, got, 2)
	assert.Equal(t, "warn", got[0]["msg"])
	assert.Equal(t, "error", got[1]["level"])
	assert.Equal(t, "boom", got[1]["error"])
	assert.NotContains(t, got[1], "trace_id")
}

func TestLoggerOmitsEmptyTraceID(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "bookflow", func(context.Context) string { return "" })
	log.Info(context.Background(), "no span")

	got := lines(t, &buf)
	require.Len(t, got, 1)
	assert.NotContains(t, got[0], "trace_id")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "", want: LevelInfo},
		{in: "debug", want: LevelDebug},
		{in: "INFO", want: LevelInfo},
		{in: "warn", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "verbose", want: LevelInfo, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLevel(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}
