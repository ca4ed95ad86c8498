package events

import "time"

// Type identifies what an event describes.
type Type string

const (
	// Per-cycle decision record.
	TypeCycle Type = "cycle"

	// Lifecycle.
	TypeBackendSelected Type = "backend_selected"
	TypeBotStarted      Type = "bot_started"
	TypeBotStopped      Type = "bot_stopped"

	// Absorbed failures. The loop keeps running through all of these.
	TypeCaptureError     Type = "capture_error"
	TypeTemplateWarning  Type = "template_warning"
	TypeActuationClamped Type = "actuation_clamped"
	TypeCooldownBlocked  Type = "cooldown_blocked"
	TypeStateFault       Type = "state_fault"
	TypeStateChanged     Type = "state_changed"
)

// Event is a single record handed to the sink. Fields carries
// type-specific details; consumers decide on formatting and persistence.
type Event struct {
	Type   Type
	Source string
	Time   time.Time
	Fields map[string]interface{}
}

// Sink receives events. Implementations must not block for long; the
// producing loop treats Emit as fire-and-forget.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) {
	f(e)
}

// Discard is a sink that drops everything.
var Discard Sink = SinkFunc(func(Event) {})

// New builds an event stamped with the current time.
func New(t Type, source string, fields map[string]interface{}) Event {
	return Event{Type: t, Source: source, Time: time.Now(), Fields: fields}
}
