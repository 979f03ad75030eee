package orchestration

import "github.com/vidmarko/voicelink/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}
