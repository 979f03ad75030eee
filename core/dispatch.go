package orchestration

import (
	"context"

	"github.com/vidmarko/voicelink/core/command"
	"github.com/vidmarko/voicelink/core/events"
)

// CommandDispatcher hands a resolved payload to the downstream actuation
// layer. The core guarantees at-most-once dispatch per resolved turn;
// delivery guarantees beyond that belong to the implementation.
type CommandDispatcher interface {
	Dispatch(ctx context.Context, payload *command.TurnPayload) error
}

// dispatcher is the nil-safe facade over the configured dispatcher client.
// Dispatcher errors are logged and reported, never retried and never
// propagated; the turn is already resolved by the time dispatch runs.
type dispatcher struct {
	client CommandDispatcher

	emitEvent eventEmitter
}

func newDispatcher(client CommandDispatcher) *dispatcher {
	return &dispatcher{
		client:    client,
		emitEvent: noopEventEmitter,
	}
}

func (d *dispatcher) set(client CommandDispatcher) {
	if d != nil {
		d.client = client
	}
}

func (d *dispatcher) setEventEmitter(emitEvent eventEmitter) {
	if d != nil {
		if emitEvent != nil {
			d.emitEvent = emitEvent
		} else {
			d.emitEvent = noopEventEmitter
		}
	}
}

func (d *dispatcher) isConfigured() bool {
	return d != nil && d.client != nil
}

func (d *dispatcher) Dispatch(ctx context.Context, turnID string, payload *command.TurnPayload) {
	if !d.isConfigured() || payload == nil || payload.Command == nil {
		return
	}

	if err := d.client.Dispatch(ctx, payload); err != nil {
		logger.Warn("Failed to dispatch command", "turn_id", turnID, "error", err)
		d.emitEvent(events.NewDispatchFailed(turnID, err))
		return
	}

	d.emitEvent(events.NewCommandDispatched(turnID, *payload.Command))
}
