package orchestration

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/vidmarko/voicelink/core/realtime"
)

type fakeSession struct {
	sentAudio    []string
	commits      int
	sendErr      error
	serverEvents chan realtime.ServerEvent
	readErr      error
	closed       bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{serverEvents: make(chan realtime.ServerEvent, 16)}
}

func (s *fakeSession) ID() string { return "sess-test" }

func (s *fakeSession) SendAudio(audio string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sentAudio = append(s.sentAudio, audio)
	return nil
}

func (s *fakeSession) Commit() error {
	s.commits++
	return nil
}

func (s *fakeSession) Events() <-chan realtime.ServerEvent { return s.serverEvents }

func (s *fakeSession) Err() error { return s.readErr }

func (s *fakeSession) Close() error {
	if !s.closed {
		s.closed = true
		close(s.serverEvents)
	}
	return nil
}

func TestUplinkEncodesChunksInOrder(t *testing.T) {
	session := newFakeSession()
	chunks := make(chan []byte, 8)
	uplink := newAudioUplink(session, chunks)

	sent := [][]byte{{0x01, 0x02}, {0x03, 0x04, 0x05}, {0xff}}
	for _, chunk := range sent {
		chunks <- chunk
	}
	close(chunks)

	if err := uplink.run(context.Background()); err != nil {
		t.Fatalf("expected uplink to drain cleanly, got %v", err)
	}

	if len(session.sentAudio) != len(sent) {
		t.Fatalf("expected %d frames, got %d", len(sent), len(session.sentAudio))
	}
	for i, chunk := range sent {
		if expected := base64.StdEncoding.EncodeToString(chunk); session.sentAudio[i] != expected {
			t.Fatalf("expected frame %d to be %q, got %q", i, expected, session.sentAudio[i])
		}
	}
}

func TestUplinkCommitsOnceOnShutdown(t *testing.T) {
	session := newFakeSession()
	chunks := make(chan []byte)
	close(chunks)

	if err := newAudioUplink(session, chunks).run(context.Background()); err != nil {
		t.Fatalf("expected uplink to end cleanly, got %v", err)
	}

	if session.commits != 1 {
		t.Fatalf("expected exactly one commit, got %d", session.commits)
	}
}

func TestUplinkSkipsEmptyChunks(t *testing.T) {
	session := newFakeSession()
	chunks := make(chan []byte, 4)
	chunks <- []byte{}
	chunks <- []byte{0x01}
	close(chunks)

	if err := newAudioUplink(session, chunks).run(context.Background()); err != nil {
		t.Fatalf("expected uplink to drain cleanly, got %v", err)
	}

	if len(session.sentAudio) != 1 {
		t.Fatalf("expected empty chunks to be skipped, got %d frames", len(session.sentAudio))
	}
}

func TestUplinkStopsOnSendError(t *testing.T) {
	session := newFakeSession()
	session.sendErr = fmt.Errorf("connection reset")
	chunks := make(chan []byte, 2)
	chunks <- []byte{0x01}

	err := newAudioUplink(session, chunks).run(context.Background())
	if err == nil {
		t.Fatalf("expected a send failure to end the uplink")
	}
	if session.commits != 1 {
		t.Fatalf("expected the commit to run even on failure, got %d", session.commits)
	}
}

func TestUplinkStopsOnContextCancel(t *testing.T) {
	session := newFakeSession()
	chunks := make(chan []byte)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := newAudioUplink(session, chunks).run(ctx); err != nil {
		t.Fatalf("expected cancellation to end the uplink cleanly, got %v", err)
	}
}
