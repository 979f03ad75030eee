package orchestration

import (
	"context"
	"fmt"
	"sync/atomic"
)

const captureQueueCapacity = 256

// AudioInput is a capture device client. Stream blocks until the context
// ends, invoking onAudio from the device's own execution context.
type AudioInput interface {
	Stream(ctx context.Context, onAudio func(audio []byte)) error
	Close()
}

// audioInput bridges the device callback onto a channel the uplink can
// drain. The callback must never block, so a full queue drops the chunk
// rather than stalling the device thread.
type audioInput struct {
	client AudioInput
	chunks chan []byte

	dropped atomic.Uint64
}

func newAudioInput(client AudioInput) *audioInput {
	return &audioInput{
		client: client,
		chunks: make(chan []byte, captureQueueCapacity),
	}
}

func (a *audioInput) isConfigured() bool {
	return a != nil && a.client != nil
}

func (a *audioInput) run(ctx context.Context) error {
	if !a.isConfigured() {
		// Nothing to capture; audio may still arrive through SendAudio-style
		// external feeds in tests, so leave the queue open until shutdown.
		<-ctx.Done()
		return nil
	}

	defer close(a.chunks)

	if err := a.client.Stream(ctx, a.enqueue); err != nil {
		return fmt.Errorf("audio capture failed: %w", err)
	}
	return nil
}

func (a *audioInput) enqueue(audio []byte) {
	// The device reuses its buffer between callbacks.
	chunk := make([]byte, len(audio))
	copy(chunk, audio)

	select {
	case a.chunks <- chunk:
	default:
		if dropped := a.dropped.Add(1); dropped%100 == 1 {
			logger.Warn("Capture queue full, dropping audio", "dropped_total", dropped)
		}
	}
}

func (a *audioInput) Close() {
	if a.isConfigured() {
		a.client.Close()
	}
}
