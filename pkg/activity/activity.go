// Package activity turns record and export events from the admin commands
// into go-users activity records.
package activity

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// DefaultChannel tags records written by the admin.
const DefaultChannel = "admin"

// Telemetry matches the event hook the admin commands call.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

// Actor identifies who triggered an event.
type Actor struct {
	ID    string
	Email string
}

// ActorFunc resolves the actor carried by ctx.
type ActorFunc func(ctx context.Context) (Actor, bool)

var verbs = map[string]string{
	"modules.record.create":  "create",
	"modules.record.update":  "update",
	"modules.record.delete":  "delete",
	"modules.export.request": "export",
}

// Verb returns the activity verb for event, or "" when the event is not
// an auditable action.
func Verb(event string) string {
	return verbs[event]
}

// Hook forwards every event to Next and logs auditable ones to Sink.
// Sink failures are logged, never returned to the caller.
type Hook struct {
	Sink    types.ActivitySink
	Next    Telemetry
	Actor   ActorFunc
	Channel string
	Now     func() time.Time
	Logger  *slog.Logger
}

// Record satisfies Telemetry.
func (h Hook) Record(ctx context.Context, event string, payload map[string]any) {
	if h.Next != nil {
		h.Next.Record(ctx, event, payload)
	}
	if h.Sink == nil {
		return
	}
	record, ok := h.build(ctx, event, payload)
	if !ok {
		return
	}
	if err := h.Sink.Log(ctx, record); err != nil {
		h.logger().Warn("activity sink failed", "verb", record.Verb, "object_type", record.ObjectType, "error", err)
	}
}

func (h Hook) build(ctx context.Context, event string, payload map[string]any) (types.ActivityRecord, bool) {
	verb := Verb(event)
	if verb == "" {
		return types.ActivityRecord{}, false
	}
	data := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		data[k] = v
	}
	data["event"] = event

	record := types.ActivityRecord{
		ID:         uuid.New(),
		Verb:       verb,
		ObjectType: stringValue(payload["module"]),
		ObjectID:   stringValue(payload["id"]),
		Channel:    h.Channel,
		Data:       data,
		OccurredAt: h.now(),
	}
	if record.Channel == "" {
		record.Channel = DefaultChannel
	}
	if h.Actor != nil {
		if actor, ok := h.Actor(ctx); ok && actor.ID != "" {
			record.ActorID = ActorUUID(actor.ID)
			record.UserID = record.ActorID
			data["actor"] = actor.ID
			if actor.Email != "" {
				data["actor_email"] = actor.Email
			}
		}
	}
	return record, true
}

// ActorUUID maps a backend user id to a UUID. Ids that already are UUIDs
// are kept; anything else gets a stable name-based UUID.
func ActorUUID(id string) uuid.UUID {
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("backend-user:"+id))
}

func (h Hook) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h Hook) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// LogSink writes activity records as structured log lines.
type LogSink struct {
	Logger *slog.Logger
	Level  slog.Level
}

var _ types.ActivitySink = LogSink{}

// Log satisfies types.ActivitySink.
func (s LogSink) Log(ctx context.Context, record types.ActivityRecord) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []slog.Attr{
		slog.String("verb", record.Verb),
		slog.String("object_type", record.ObjectType),
		slog.String("object_id", record.ObjectID),
		slog.String("channel", record.Channel),
		slog.String("actor_id", record.ActorID.String()),
		slog.Time("occurred_at", record.OccurredAt),
	}
	keys := make([]string, 0, len(record.Data))
	for k := range record.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any("data."+k, record.Data[k]))
	}
	logger.LogAttrs(ctx, s.Level, "activity", attrs...)
	return nil
}
