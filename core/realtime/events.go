// Package realtime defines the wire contract shared by the realtime
// transport implementations and the relay core: the tagged server event
// union read off the socket and the session interface the core drives.
package realtime

import (
	"encoding/json"
	"fmt"
)

type ServerEventType string

const (
	// ServerEventContentDelta carries a partial fragment of the streamed
	// JSON reply.
	ServerEventContentDelta ServerEventType = "response.content_part.delta"
	// ServerEventContentDone carries the final fragment of the streamed
	// JSON reply; some sessions deliver the only fragment here.
	ServerEventContentDone ServerEventType = "response.content_part.done"
	// ServerEventResponseDone marks the end of a turn.
	ServerEventResponseDone ServerEventType = "response.done"
	// ServerEventAudioDelta carries a base64 chunk of synthesized speech.
	ServerEventAudioDelta ServerEventType = "response.audio.delta"
	// ServerEventInputTranscript carries the finalized transcript of the
	// user's utterance.
	ServerEventInputTranscript ServerEventType = "conversation.item.input_audio_transcription.completed"
)

// ServerEvent is one inbound protocol event. Types outside the known set
// are delivered as-is and ignored by the consumer.
type ServerEvent struct {
	Type       ServerEventType
	Content    string
	Audio      string
	Transcript string
}

func ParseServerEvent(raw []byte) (ServerEvent, error) {
	var parsed struct {
		Type       ServerEventType `json:"type"`
		Content    string          `json:"content"`
		Delta      string          `json:"delta"`
		Audio      string          `json:"audio"`
		Transcript string          `json:"transcript"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ServerEvent{}, fmt.Errorf("failed to decode server event: %w", err)
	}

	event := ServerEvent{
		Type:       parsed.Type,
		Content:    parsed.Content,
		Audio:      parsed.Audio,
		Transcript: parsed.Transcript,
	}

	// Some server builds stream fragments under "delta" instead of
	// "content"; audio deltas likewise.
	switch event.Type {
	case ServerEventContentDelta, ServerEventContentDone:
		if event.Content == "" {
			event.Content = parsed.Delta
		}
	case ServerEventAudioDelta:
		if event.Audio == "" {
			event.Audio = parsed.Delta
		}
	}

	return event, nil
}
