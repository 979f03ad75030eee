package orchestration

import "strings"

// turnBuffer accumulates the streamed JSON fragments of exactly one turn.
// It is owned by the response assembler and only ever touched from its
// single consumer goroutine, so it needs no locking; Reset runs at every
// turn boundary, successful or not, before the next fragment can arrive.
type turnBuffer struct {
	fragments []string
}

func newTurnBuffer() *turnBuffer {
	return &turnBuffer{}
}

func (b *turnBuffer) Append(fragment string) {
	b.fragments = append(b.fragments, fragment)
}

func (b *turnBuffer) IsEmpty() bool {
	for _, fragment := range b.fragments {
		if fragment != "" {
			return false
		}
	}
	return true
}

func (b *turnBuffer) String() string {
	return strings.Join(b.fragments, "")
}

func (b *turnBuffer) Reset() {
	b.fragments = nil
}
