package orchestration

import (
	"time"

	"github.com/vidmarko/voicelink/core/events"
)

type OrchestratorOption func(*Orchestrator)

func WithRealtimeClient(client RealtimeClient) OrchestratorOption {
	return func(o *Orchestrator) {
		o.client = client
	}
}

func WithAudioInput(client AudioInput) OrchestratorOption {
	return func(o *Orchestrator) {
		o.audioClient = client
	}
}

func WithPlayback(client Playback) OrchestratorOption {
	return func(o *Orchestrator) {
		o.playback = client
	}
}

func WithDispatcher(client CommandDispatcher) OrchestratorOption {
	return func(o *Orchestrator) {
		o.dispatcher.set(client)
	}
}

// WithFallbackRepairer installs a custom repair implementation.
func WithFallbackRepairer(repairer Repairer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.repairer = repairer
	}
}

// WithFallbackModel wires the default repairer on top of a structured model
// call.
func WithFallbackModel(llm StructuredLLM) OrchestratorOption {
	return func(o *Orchestrator) {
		o.repairer = newFallbackRepairer(llm)
	}
}

// WithEventHandler registers a handler for the typed observability events.
// The handler runs on the consumer goroutine and should return quickly.
func WithEventHandler(handler func(events.Event)) OrchestratorOption {
	return func(o *Orchestrator) {
		if handler != nil {
			o.emitEvent = handler
		}
	}
}

// WithTurnTimeout bounds how long a turn may stay open without a
// turn-complete before it is discarded as stalled.
func WithTurnTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.turnTimeout = timeout
		}
	}
}
