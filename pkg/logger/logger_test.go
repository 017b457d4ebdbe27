package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var m map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &m))
	return m
}

func sampledSpan(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("b7ad6b7169203331")
	require.NoError(t, err)
	return trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))
}

func TestNewWithWriter_Levels(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
		infoSeen  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"WARN", false, false},
		{"bogus", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewWithWriter("review-service", tt.level, &buf)

			l.Debug("d")
			assert.Equal(t, tt.debugSeen, bytes.Contains(buf.Bytes(), []byte(`"msg":"d"`)))
			l.Info("i")
			assert.Equal(t, tt.infoSeen, bytes.Contains(buf.Bytes(), []byte(`"msg":"i"`)))
		})
	}
}

func TestNewWithWriter_ServiceAndPhoneMasking(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("review-service", "info", &buf)

	l.Info("raw", slog.String("phone", "0912345678"))
	entry := lastEntry(t, &buf)
	assert.Equal(t, "review-service", entry["service"])
	assert.Equal(t, "*******678", entry["phone"])

	l.Info("helper", Phone("0912345678"))
	assert.Equal(t, "*******678", lastEntry(t, &buf)["phone"])
}

func TestWithContext(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		wantCorr  any
		wantTrace any
	}{
		{"empty", context.Background(), nil, nil},
		{"correlation only", WithCorrelationID(context.Background(), "corr-1"), "corr-1", nil},
		{"span and correlation", WithCorrelationID(sampledSpan(t), "corr-2"), "corr-2", "0af7651916cd43dd8448eb211c80319c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			WithContext(tt.ctx, NewWithWriter("svc", "info", &buf)).Info("x")

			entry := lastEntry(t, &buf)
			assert.Equal(t, tt.wantCorr, entry["correlation_id"])
			assert.Equal(t, tt.wantTrace, entry["trace_id"])
		})
	}
}

func TestFromContext(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))

	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, l, FromContext(NewContext(context.Background(), l)))
}

func TestDetach(t *testing.T) {
	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	req, cancel := context.WithTimeout(NewContext(WithCorrelationID(context.Background(), "corr-d"), l), time.Millisecond)
	cancel()

	detached := Detach(context.Background(), req)

	assert.NoError(t, detached.Err())
	assert.Equal(t, "corr-d", CorrelationIDFromContext(detached))
	assert.Same(t, l, FromContext(detached))
}

func TestMaskPhone(t *testing.T) {
	tests := map[string]string{
		"0901234567":   "*******567",
		" 0901234567 ": "*******567",
		"*******567":   "*******567",
		"1234":         "*234",
		"123":          "***",
		"":             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, MaskPhone(in), "MaskPhone(%q)", in)
	}
}
