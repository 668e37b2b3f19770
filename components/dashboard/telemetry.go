package dashboard

import (
	"context"
	"log/slog"
	"sort"
)

// Telemetry records dashboard events for observability.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

// NopTelemetry discards every event.
var NopTelemetry Telemetry = noopTelemetry{}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return NopTelemetry
	}
	return t
}

// SlogTelemetry writes events as debug log lines.
type SlogTelemetry struct {
	Logger *slog.Logger
	Level  slog.Level
}

// Record satisfies Telemetry.
func (t SlogTelemetry) Record(ctx context.Context, event string, payload map[string]any) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, payload[k]))
	}
	logger.LogAttrs(ctx, t.Level, event, attrs...)
}
