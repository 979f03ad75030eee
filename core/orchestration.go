// Package orchestration runs the voice-command relay session: a concurrent
// audio uplink and response consumer over one realtime transport session,
// with validation, fallback repair and bus dispatch per turn.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vidmarko/voicelink/core/realtime"
)

// RealtimeClient negotiates and opens a realtime transport session.
type RealtimeClient interface {
	OpenSession(ctx context.Context) (realtime.Session, error)
}

// Playback receives decoded assistant speech chunks.
type Playback interface {
	SendAudio(audio []byte) error
}

// SessionError is fatal: the transport could not be opened or broke
// underneath the session. Turn-level failures are never wrapped in it.
type SessionError struct {
	Cause error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session failed: %v", e.Cause)
}

func (e *SessionError) Unwrap() error { return e.Cause }

type Orchestrator struct {
	client      RealtimeClient
	audioClient AudioInput
	audioInput  *audioInput
	dispatcher  *dispatcher
	repairer    Repairer
	playback    Playback

	turnTimeout time.Duration
	history     *turnHistory
	emitEvent   eventEmitter

	baseContext context.Context

	sessionMu sync.Mutex
	session   realtime.Session
	cancelRun context.CancelFunc

	closeOnce sync.Once
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		dispatcher:  newDispatcher(nil),
		turnTimeout: defaultTurnTimeout,
		history:     newTurnHistory(),
		emitEvent:   noopEventEmitter,
		baseContext: context.Background(),
	}

	for _, opt := range opts {
		opt(o)
	}

	o.audioInput = newAudioInput(o.audioClient)
	o.dispatcher.setEventEmitter(o.emitEvent)

	return o
}

// Run opens the transport session and drives the uplink and the response
// consumer until the context ends, Close is called, or one of them fails.
// A failure in either task cancels the other; the joined failure is
// returned as a *SessionError.
//
// Contract: call Run at most once per orchestrator instance.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "run relay session")
	defer span.End()
	o.baseContext = ctx

	if o.client == nil {
		err := &SessionError{Cause: fmt.Errorf("no realtime client configured")}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	session, err := o.client.OpenSession(ctx)
	if err != nil {
		err := &SessionError{Cause: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.sessionMu.Lock()
	o.session = session
	o.cancelRun = cancel
	o.sessionMu.Unlock()

	assembler := newResponseAssembler(
		o.repairer,
		o.dispatcher,
		o.playback,
		o.history,
		o.turnTimeout,
		o.emitEvent,
	)
	uplink := newAudioUplink(session, o.audioInput.chunks)

	var workerErr error
	workerErrMu := sync.Mutex{}
	addWorkerErr := func(err error) {
		if err == nil {
			return
		}
		workerErrMu.Lock()
		workerErr = errors.Join(workerErr, err)
		workerErrMu.Unlock()
	}

	run := func(worker workerRun) {
		if err := worker(ctx); err != nil {
			addWorkerErr(err)
			cancel()
		}
	}

	wg := &sync.WaitGroup{}
	wg.Add(3)
	go func() {
		defer wg.Done()
		run(panicSafeNamedWorker("audio capture", o.audioInput.run))
	}()
	go func() {
		defer wg.Done()
		run(panicSafeNamedWorker("audio uplink", uplink.run))
	}()
	go func() {
		defer wg.Done()
		run(panicSafeNamedWorker("response consumer", func(ctx context.Context) error {
			return assembler.consume(ctx, session.Events(), session.Err)
		}))
	}()

	wg.Wait()

	if err := session.Close(); err != nil {
		logger.Warn("Failed to close realtime session", "error", err)
	}

	if workerErr != nil {
		err := &SessionError{Cause: workerErr}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

// Close cancels a running session and releases the audio device. Safe to
// call more than once and before Run.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.sessionMu.Lock()
		cancel := o.cancelRun
		session := o.session
		o.sessionMu.Unlock()

		if cancel != nil {
			cancel()
		}

		if session != nil {
			if err := session.Close(); err != nil {
				recordedErr := fmt.Errorf("failed to close realtime session: %w", err)
				span := trace.SpanFromContext(o.baseContext)
				span.RecordError(recordedErr)
				span.SetStatus(codes.Error, recordedErr.Error())
			}
		}

		o.audioInput.Close()
	})
}

// Turns returns a snapshot of every turn resolved so far this session.
func (o *Orchestrator) Turns() []ResolvedTurn {
	return o.history.Snapshot()
}
