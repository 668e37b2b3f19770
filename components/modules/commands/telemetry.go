package commands

import "context"

// Telemetry receives an event after every successful command.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

// TelemetryFunc adapts a plain function to Telemetry.
type TelemetryFunc func(ctx context.Context, event string, payload map[string]any)

// Record calls f.
func (f TelemetryFunc) Record(ctx context.Context, event string, payload map[string]any) {
	f(ctx, event, payload)
}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return TelemetryFunc(func(context.Context, string, map[string]any) {})
	}
	return t
}
