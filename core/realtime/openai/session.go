package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vidmarko/voicelink/core/realtime"
)

const serverEventQueueCapacity = 64

// Session is an open realtime websocket. Writes are serialized behind a
// mutex; reads happen on a single internal goroutine that feeds Events.
type Session struct {
	id string

	ws      *websocket.Conn
	writeMu sync.Mutex

	events chan realtime.ServerEvent

	errMu   sync.Mutex
	readErr error

	closeOnce sync.Once
}

func connectWebsocket(ctx context.Context, websocketURL string, credentials sessionCredentials) (*Session, error) {
	socketURL, err := url.Parse(websocketURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket url: %w", err)
	}
	queryParams := socketURL.Query()
	queryParams.Set("session_id", credentials.id)
	socketURL.RawQuery = queryParams.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, socketURL.String(), http.Header{
		"Authorization": {"Bearer " + credentials.clientSecret},
		"OpenAI-Beta":   {"realtime=v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to openai: %w", err)
	}

	session := &Session{
		id:     credentials.id,
		ws:     conn,
		events: make(chan realtime.ServerEvent, serverEventQueueCapacity),
	}
	go session.processIncomingMessages(ctx)

	return session, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) processIncomingMessages(ctx context.Context) {
	defer close(s.events)

	for {
		msgType, msg, err := s.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.setErr(fmt.Errorf("websocket read failed: %w", err))
			}
			return
		}

		if msgType != websocket.TextMessage {
			continue
		}

		event, err := realtime.ParseServerEvent(msg)
		if err != nil {
			logger.Warn("Dropping undecodable server event", "error", err)
			continue
		}

		select {
		case s.events <- event:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) SendAudio(audio string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.ws.WriteJSON(struct {
		Type  string `json:"type"`
		Audio string `json:"audio"`
	}{Type: "input_audio_buffer.append", Audio: audio}); err != nil {
		return fmt.Errorf("failed to write audio frame: %w", err)
	}
	return nil
}

func (s *Session) Commit() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.ws.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: "input_audio_buffer.commit"}); err != nil {
		return fmt.Errorf("failed to write commit frame: %w", err)
	}
	return nil
}

func (s *Session) Events() <-chan realtime.ServerEvent { return s.events }

func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.readErr
}

func (s *Session) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.readErr == nil {
		s.readErr = err
	}
}

func (s *Session) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		_ = s.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()

		closeErr = s.ws.Close()
	})
	return closeErr
}
