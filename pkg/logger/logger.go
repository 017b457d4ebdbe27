package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	correlationIDKey ctxKey = iota
	loggerKey
)

// PhoneKey is masked wherever it appears in a log record.
const PhoneKey = "phone"

// New returns a JSON logger on stdout tagged with the service name.
func New(service, level string) *slog.Logger {
	return NewWithWriter(service, level, os.Stdout)
}

// NewWithWriter is New writing to w. Unknown levels fall back to info;
// debug also records the source location.
func NewWithWriter(service, level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   lvl <= slog.LevelDebug,
		ReplaceAttr: maskPhoneAttr,
	})
	return slog.New(h).With(slog.String("service", service))
}

func maskPhoneAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == PhoneKey && a.Value.Kind() == slog.KindString {
		a.Value = slog.StringValue(MaskPhone(a.Value.String()))
	}
	return a
}

// WithCorrelationID stores the request's correlation id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the stored correlation id, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// NewContext stores a request-scoped logger.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the request-scoped logger, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithContext adds the correlation id and the active span ids of ctx to l.
func WithContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	var attrs []any
	if id := CorrelationIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}

// Detach carries the correlation id and request logger of ctx onto base,
// leaving behind ctx's deadline and cancellation. Work that outlives the
// response runs on the result.
func Detach(base, ctx context.Context) context.Context {
	if id := CorrelationIDFromContext(ctx); id != "" {
		base = WithCorrelationID(base, id)
	}
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		base = NewContext(base, l)
	}
	return base
}

// MaskPhone keeps only the last three characters of a phone number.
func MaskPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	keep := min(3, len(phone))
	if len(phone) <= 3 {
		keep = 0
	}
	return strings.Repeat("*", len(phone)-keep) + phone[len(phone)-keep:]
}

// Phone is a log attribute for a phone number.
func Phone(phone string) slog.Attr {
	return slog.String(PhoneKey, MaskPhone(phone))
}
