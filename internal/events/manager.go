package events

import (
	"time"

	"github.com/rs/zerolog"
)

// Manager wraps a Bus to log every emission, mirroring the teacher's
// events.Manager which never lets an event escape without a log line.
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a Manager over bus.
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{bus: bus, log: log.With().Str("service", "events").Logger()}
}

// Bus returns the underlying Bus, for code that needs to Subscribe.
func (m *Manager) Bus() *Bus { return m.bus }

// Emit builds an Event with the current time and publishes it.
func (m *Manager) Emit(eventType Type, aggregate, aggregateID, tenantID, correlationID string, payload map[string]any) {
	event := Event{
		Type:          eventType,
		Aggregate:     aggregate,
		AggregateID:   aggregateID,
		Payload:       payload,
		TenantID:      tenantID,
		CorrelationID: correlationID,
		OccurredAt:    time.Now(),
	}

	m.log.Info().
		Str("event_type", string(eventType)).
		Str("aggregate", aggregate).
		Str("aggregate_id", aggregateID).
		Str("tenant_id", tenantID).
		Msg("event emitted")

	m.bus.Publish(event)
}
