package orchestration

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/vidmarko/voicelink/core/realtime"
)

// audioUplink drains captured PCM16 chunks and transmits them as base64
// append frames. It is the only writer on the session; the response
// assembler is the only reader. The two share nothing else.
type audioUplink struct {
	session realtime.Session
	chunks  <-chan []byte
}

func newAudioUplink(session realtime.Session, chunks <-chan []byte) *audioUplink {
	return &audioUplink{session: session, chunks: chunks}
}

func (u *audioUplink) run(ctx context.Context) error {
	// Whatever ends the uplink, flush the input buffer so the server can
	// finalize the utterance.
	defer func() {
		if err := u.session.Commit(); err != nil {
			logger.Warn("Failed to commit audio buffer", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case chunk, ok := <-u.chunks:
			if !ok {
				return nil
			}
			if len(chunk) == 0 {
				continue
			}

			encoded := base64.StdEncoding.EncodeToString(chunk)
			if err := u.session.SendAudio(encoded); err != nil {
				return fmt.Errorf("failed to send audio frame: %w", err)
			}
		}
	}
}
