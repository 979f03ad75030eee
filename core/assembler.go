package orchestration

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vidmarko/voicelink/core/command"
	"github.com/vidmarko/voicelink/core/events"
	"github.com/vidmarko/voicelink/core/realtime"
)

const defaultTurnTimeout = 30 * time.Second

type assemblerState int

const (
	stateIdle assemblerState = iota
	stateAccumulating
	stateResolving
)

func (s assemblerState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAccumulating:
		return "accumulating"
	case stateResolving:
		return "resolving"
	}
	return "unknown"
}

// responseAssembler reconstructs one JSON payload per turn from the
// fragmented server event stream, validates it, routes failures through the
// fallback repairer and hands at most one command per turn to the
// dispatcher. It consumes events strictly in arrival order on a single
// goroutine; the buffer is reset before the next fragment can be applied,
// so fragments can never leak across turns.
type responseAssembler struct {
	state  assemblerState
	buffer *turnBuffer
	turnID string

	lastTranscript string

	turnTimeout time.Duration

	repairer   Repairer
	dispatcher *dispatcher
	playback   Playback
	history    *turnHistory

	emitEvent eventEmitter
}

func newResponseAssembler(
	repairer Repairer,
	dispatcher *dispatcher,
	playback Playback,
	history *turnHistory,
	turnTimeout time.Duration,
	emitEvent eventEmitter,
) *responseAssembler {
	if turnTimeout <= 0 {
		turnTimeout = defaultTurnTimeout
	}
	if emitEvent == nil {
		emitEvent = noopEventEmitter
	}

	return &responseAssembler{
		state:       stateIdle,
		buffer:      newTurnBuffer(),
		turnTimeout: turnTimeout,
		repairer:    repairer,
		dispatcher:  dispatcher,
		playback:    playback,
		history:     history,
		emitEvent:   emitEvent,
	}
}

// consume runs until the context is cancelled or the event stream closes.
// A closed stream with a session error is a transport failure; a clean
// close ends the consumer without error.
func (a *responseAssembler) consume(ctx context.Context, serverEvents <-chan realtime.ServerEvent, sessionErr func() error) error {
	var stallTimer *time.Timer
	var stallC <-chan time.Time
	defer func() {
		if stallTimer != nil {
			stallTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-stallC:
			a.dropStalledTurn()
			stallTimer, stallC = nil, nil

		case event, ok := <-serverEvents:
			if !ok {
				if err := sessionErr(); err != nil {
					return fmt.Errorf("transport closed: %w", err)
				}
				return nil
			}

			a.apply(ctx, event)

			// The watchdog covers exactly one open turn: armed when a turn
			// opens, disarmed once it resolves.
			switch {
			case a.state == stateAccumulating && stallTimer == nil:
				stallTimer = time.NewTimer(a.turnTimeout)
				stallC = stallTimer.C
			case a.state == stateIdle && stallTimer != nil:
				stallTimer.Stop()
				stallTimer, stallC = nil, nil
			}
		}
	}
}

func (a *responseAssembler) apply(ctx context.Context, event realtime.ServerEvent) {
	switch event.Type {
	case realtime.ServerEventContentDelta, realtime.ServerEventContentDone:
		a.appendFragment(event.Content)

	case realtime.ServerEventResponseDone:
		a.resolveTurn(ctx)

	case realtime.ServerEventAudioDelta:
		a.playAudio(event.Audio)

	case realtime.ServerEventInputTranscript:
		a.lastTranscript = event.Transcript

	default:
		// Pings, rate-limit notices, transcription deltas and the rest of
		// the protocol surface are not ours to handle.
	}
}

func (a *responseAssembler) appendFragment(fragment string) {
	if a.state == stateIdle {
		a.turnID = uuid.NewString()
		a.state = stateAccumulating
	}

	a.buffer.Append(fragment)
}

func (a *responseAssembler) resolveTurn(ctx context.Context) {
	a.state = stateResolving
	defer func() {
		a.buffer.Reset()
		a.turnID = ""
		a.state = stateIdle
	}()

	ctx, span := tracer.Start(ctx, "resolve turn")
	defer span.End()
	span.SetAttributes(attribute.String("turn.id", a.turnID))

	if a.buffer.IsEmpty() {
		logger.Warn("Turn completed with an empty buffer", "turn_id", a.turnID)
		span.SetAttributes(attribute.Bool("turn.empty", true))
		a.emitEvent(events.NewTurnEmpty(a.turnID))
		return
	}

	raw := a.buffer.String()

	repaired := false
	payload, err := command.Validate(raw)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("turn.repair_attempted", true))

		payload, err = a.repair(ctx, a.lastTranscript, raw)
		if err != nil {
			// One bad turn never terminates the session; report it and move
			// on with a clean buffer.
			logger.Warn("Dropping unrecoverable turn",
				"turn_id", a.turnID,
				"transcript", a.lastTranscript,
				"raw_response", raw,
				"error", err,
			)
			span.SetStatus(codes.Error, err.Error())
			a.emitEvent(events.NewTurnDropped(a.turnID, a.lastTranscript, raw, err))
			return
		}
		repaired = true
	}

	a.history.add(ResolvedTurn{
		ID:         a.turnID,
		Transcript: a.lastTranscript,
		Payload:    *payload,
		Repaired:   repaired,
		ResolvedAt: time.Now(),
	})
	a.emitEvent(events.NewTurnResolved(a.turnID, *payload, repaired))

	if payload.Command != nil {
		a.dispatcher.Dispatch(ctx, a.turnID, payload)
	}
}

func (a *responseAssembler) repair(ctx context.Context, transcript, raw string) (*command.TurnPayload, error) {
	if a.repairer == nil {
		return nil, &RepairError{cause: fmt.Errorf("no repairer configured")}
	}

	return a.repairer.Repair(ctx, transcript, raw)
}

func (a *responseAssembler) dropStalledTurn() {
	logger.Warn("Discarding stalled turn", "turn_id", a.turnID, "state", a.state.String())
	a.emitEvent(events.NewTurnStalled(a.turnID, a.buffer.String()))

	a.buffer.Reset()
	a.turnID = ""
	a.state = stateIdle
}

func (a *responseAssembler) playAudio(encoded string) {
	if a.playback == nil || encoded == "" {
		return
	}

	chunk, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		logger.Warn("Failed to decode audio delta", "error", err)
		return
	}

	if err := a.playback.SendAudio(chunk); err != nil {
		logger.Warn("Failed to play audio delta", "error", err)
	}
}
