package realtime

// Session is one open bidirectional realtime connection. The uplink task is
// the only writer (SendAudio/Commit) and the response consumer is the only
// reader (Events); the split keeps the shared socket free of any further
// locking between the two tasks.
type Session interface {
	// ID returns the negotiated session identifier.
	ID() string
	// SendAudio transmits one base64-encoded PCM16 chunk as an append frame.
	SendAudio(audio string) error
	// Commit flushes the input audio buffer, signaling end-of-utterance.
	Commit() error
	// Events yields inbound server events in arrival order. The channel is
	// closed when the connection ends; Err reports why.
	Events() <-chan ServerEvent
	// Err returns the terminal read error, or nil after a clean close. Only
	// valid once Events is closed.
	Err() error
	Close() error
}
