package optimization

import (
	"context"

	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/events"
	"github.com/cutflow/core/internal/tenant"
	"github.com/rs/zerolog"
)

// Consumer subscribes to OPTIMIZATION_RUN_REQUESTED and binds the event's
// tenant into the context it hands the engine; the engine publishes the
// outcome event itself. It must never crash the bus's dispatch goroutine:
// the engine converts every error it returns into an OPTIMIZATION_FAILED
// event, and a panic raised inside the engine is recovered here and
// converted into one as well rather than propagated.
type Consumer struct {
	engine *Engine
	bus    *events.Bus
	log    zerolog.Logger
}

func NewConsumer(engine *Engine, bus *events.Bus, log zerolog.Logger) *Consumer {
	return &Consumer{engine: engine, bus: bus, log: log.With().Str("module", "optimization_consumer").Logger()}
}

// Start registers the subscription. Re-calling Start is idempotent (the
// bus dedupes by handler id).
func (c *Consumer) Start() {
	c.bus.Subscribe(events.OptimizationRunRequested, "optimization_consumer", c.handle)
}

func (c *Consumer) handle(event events.Event) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Str("aggregate_id", event.AggregateID).Msg("optimization consumer recovered from panic")
			scenarioID, _ := event.Payload["scenarioId"].(string)
			c.engine.events.Emit(events.OptimizationFailed, "optimization_scenario", scenarioID, event.TenantID, "", map[string]any{
				"scenarioId": scenarioID,
				"reason":     string(errs.Internal),
			})
		}
	}()

	payload, ok := decodePayload(event.Payload)
	if !ok {
		c.log.Error().Str("aggregate_id", event.AggregateID).Msg("malformed OPTIMIZATION_RUN_REQUESTED payload")
		return
	}

	ctx := tenant.Bind(context.Background(), event.TenantID)
	c.engine.Run(ctx, Input{
		CuttingJobID:  payload.CuttingJobID,
		ScenarioID:    payload.ScenarioID,
		Algorithm:     payload.Algorithm,
		KerfMM:        payload.KerfMM,
		AllowRotation: payload.AllowRotation,
	})
}

func decodePayload(raw map[string]any) (events.OptimizationRunRequestedPayload, bool) {
	var p events.OptimizationRunRequestedPayload
	cuttingJobID, ok := raw["cuttingJobId"].(string)
	if !ok || cuttingJobID == "" {
		return p, false
	}
	scenarioID, _ := raw["scenarioId"].(string)
	algorithm, _ := raw["algorithm"].(string)
	allowRotation, _ := raw["allowRotation"].(bool)
	kerf := 0
	switch v := raw["kerf"].(type) {
	case int:
		kerf = v
	case float64:
		kerf = int(v)
	}

	p.CuttingJobID = cuttingJobID
	p.ScenarioID = scenarioID
	p.Algorithm = algorithm
	p.KerfMM = kerf
	p.AllowRotation = allowRotation
	return p, true
}
