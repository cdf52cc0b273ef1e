package chat

import (
	"fmt"

	"novelchat/pkg/wire"
	"novelchat/services/transport"
)

type EventKind int

const (
	EventHistorySeeded EventKind = iota
	EventHistoryFailed
	EventMessage
	EventStateChanged
	EventDecodeDropped
)

func (k EventKind) String() string {
	switch k {
	case EventHistorySeeded:
		return "history_seeded"
	case EventHistoryFailed:
		return "history_failed"
	case EventMessage:
		return "message"
	case EventStateChanged:
		return "state_changed"
	case EventDecodeDropped:
		return "decode_dropped"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event tells the UI that the view changed. Only the fields relevant to Kind
// are set.
type Event struct {
	Kind EventKind

	// EventMessage
	Message wire.ChatMessage

	// EventHistorySeeded: the list right after the seed. Later EventMessage
	// events only carry messages appended after this snapshot.
	Messages []wire.ChatMessage
	Count    int

	// EventStateChanged
	State transport.State

	// EventHistoryFailed, EventDecodeDropped
	Err error
}
