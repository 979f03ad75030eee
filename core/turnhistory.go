package orchestration

import (
	"sync"
	"time"

	"github.com/jinzhu/copier"

	"github.com/vidmarko/voicelink/core/command"
)

// ResolvedTurn is the record kept for every turn that produced a payload.
type ResolvedTurn struct {
	ID         string
	Transcript string
	Payload    command.TurnPayload
	Repaired   bool
	ResolvedAt time.Time
}

type turnHistory struct {
	mu    sync.Mutex
	turns []ResolvedTurn
}

func newTurnHistory() *turnHistory {
	return &turnHistory{}
}

func (h *turnHistory) add(turn ResolvedTurn) {
	if h == nil {
		return
	}

	h.mu.Lock()
	h.turns = append(h.turns, turn)
	h.mu.Unlock()
}

// Snapshot returns a point-in-time deep copy of the resolved turns.
func (h *turnHistory) Snapshot() []ResolvedTurn {
	if h == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	snapshot := []ResolvedTurn{}
	_ = copier.Copy(&snapshot, h.turns)
	return snapshot
}
