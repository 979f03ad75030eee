package events

import (
	"github.com/vidmarko/voicelink/core/command"
)

const (
	KindTurnResolved      Kind = "turn.resolved"
	KindTurnDropped       Kind = "turn.dropped"
	KindTurnStalled       Kind = "turn.stalled"
	KindTurnEmpty         Kind = "turn.empty"
	KindCommandDispatched Kind = "dispatch.sent"
	KindDispatchFailed    Kind = "dispatch.failed"
)

type TurnResolved struct {
	Base
	TurnID   string
	Payload  command.TurnPayload
	Repaired bool
}

func NewTurnResolved(turnID string, payload command.TurnPayload, repaired bool) TurnResolved {
	return TurnResolved{Base: NewBase(KindTurnResolved), TurnID: turnID, Payload: payload, Repaired: repaired}
}

type TurnDropped struct {
	Base
	TurnID      string
	Transcript  string
	RawResponse string
	Cause       error
}

func NewTurnDropped(turnID, transcript, rawResponse string, cause error) TurnDropped {
	return TurnDropped{
		Base:        NewBase(KindTurnDropped),
		TurnID:      turnID,
		Transcript:  transcript,
		RawResponse: rawResponse,
		Cause:       cause,
	}
}

type TurnStalled struct {
	Base
	TurnID      string
	RawResponse string
}

func NewTurnStalled(turnID, rawResponse string) TurnStalled {
	return TurnStalled{Base: NewBase(KindTurnStalled), TurnID: turnID, RawResponse: rawResponse}
}

type TurnEmpty struct {
	Base
	TurnID string
}

func NewTurnEmpty(turnID string) TurnEmpty {
	return TurnEmpty{Base: NewBase(KindTurnEmpty), TurnID: turnID}
}

type CommandDispatched struct {
	Base
	TurnID  string
	Command command.Command
}

func NewCommandDispatched(turnID string, cmd command.Command) CommandDispatched {
	return CommandDispatched{Base: NewBase(KindCommandDispatched), TurnID: turnID, Command: cmd}
}

type DispatchFailed struct {
	Base
	TurnID string
	Cause  error
}

func NewDispatchFailed(turnID string, cause error) DispatchFailed {
	return DispatchFailed{Base: NewBase(KindDispatchFailed), TurnID: turnID, Cause: cause}
}
