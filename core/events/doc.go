// Package events defines the typed observability event contract emitted by
// the relay core.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - turn.*
//   - dispatch.*
//
// turn events
//
//   - TurnResolved (turn.resolved): a turn produced a valid payload,
//     directly or through fallback repair.
//   - TurnDropped (turn.dropped): validation and repair both failed; the
//     turn was discarded and the session continues.
//   - TurnStalled (turn.stalled): no turn-complete arrived within the
//     configured window; the open turn was discarded.
//   - TurnEmpty (turn.empty): turn-complete arrived with an empty buffer.
//
// dispatch events
//
//   - CommandDispatched (dispatch.sent): the resolved command was handed to
//     the dispatcher.
//   - DispatchFailed (dispatch.failed): the dispatcher reported an error;
//     the turn still counts as resolved.
package events
