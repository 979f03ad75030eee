package orchestration

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vidmarko/voicelink/core/events"
	"github.com/vidmarko/voicelink/core/realtime"
)

type stubRealtimeClient struct {
	session realtime.Session
	err     error
}

func (c *stubRealtimeClient) OpenSession(_ context.Context) (realtime.Session, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.session, nil
}

func TestRunFailsWithoutRealtimeClient(t *testing.T) {
	orchestrator := NewOrchestrator()

	err := orchestrator.Run(context.Background())

	var sessionErr *SessionError
	if !errors.As(err, &sessionErr) {
		t.Fatalf("expected a SessionError, got %v", err)
	}
}

func TestRunWrapsOpenSessionFailure(t *testing.T) {
	openErr := fmt.Errorf("401 unauthorized")
	orchestrator := NewOrchestrator(
		WithRealtimeClient(&stubRealtimeClient{err: openErr}),
	)

	err := orchestrator.Run(context.Background())

	var sessionErr *SessionError
	if !errors.As(err, &sessionErr) {
		t.Fatalf("expected a SessionError, got %v", err)
	}
	if !errors.Is(err, openErr) {
		t.Fatalf("expected the open failure as cause, got %v", err)
	}
}

func TestRunReportsTransportFailure(t *testing.T) {
	session := newFakeSession()
	session.readErr = fmt.Errorf("unexpected EOF")
	session.Close()

	orchestrator := NewOrchestrator(
		WithRealtimeClient(&stubRealtimeClient{session: session}),
	)

	err := orchestrator.Run(context.Background())

	var sessionErr *SessionError
	if !errors.As(err, &sessionErr) {
		t.Fatalf("expected a SessionError, got %v", err)
	}
	if !errors.Is(err, session.readErr) {
		t.Fatalf("expected the read failure as cause, got %v", err)
	}
}

func TestRunEndsCleanlyOnCancel(t *testing.T) {
	session := newFakeSession()
	orchestrator := NewOrchestrator(
		WithRealtimeClient(&stubRealtimeClient{session: session}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- orchestrator.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected a cancelled session to end cleanly, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected Run to return after cancellation")
	}

	if !session.closed {
		t.Fatalf("expected the session to be closed on shutdown")
	}
}

func TestRunResolvesTurnsEndToEnd(t *testing.T) {
	session := newFakeSession()
	dispatched := &recordingDispatcher{}

	resolved := make(chan events.Event, 4)
	orchestrator := NewOrchestrator(
		WithRealtimeClient(&stubRealtimeClient{session: session}),
		WithDispatcher(dispatched),
		WithEventHandler(func(event events.Event) {
			if event.Kind() == events.KindTurnResolved {
				resolved <- event
			}
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- orchestrator.Run(ctx) }()

	session.serverEvents <- realtime.ServerEvent{
		Type:    realtime.ServerEventContentDelta,
		Content: `{"speak":"on it","command":{"action":"turn_on","device":"fan","target":"green"}}`,
	}
	session.serverEvents <- realtime.ServerEvent{Type: realtime.ServerEventResponseDone}

	select {
	case event := <-resolved:
		if event.(events.TurnResolved).Payload.Speak != "on it" {
			t.Fatalf("expected the assembled payload, got %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected the turn to resolve")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("expected the session to end cleanly, got %v", err)
	}

	turns := orchestrator.Turns()
	if len(turns) != 1 || turns[0].Payload.Command == nil {
		t.Fatalf("expected one recorded turn with a command, got %+v", turns)
	}
	if len(dispatched.payloads) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(dispatched.payloads))
	}
}

func TestCloseIsSafeBeforeRunAndIdempotent(t *testing.T) {
	orchestrator := NewOrchestrator()

	orchestrator.Close()
	orchestrator.Close()
}
