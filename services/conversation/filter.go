package conversation

import "novelchat/pkg/wire"

// Accept reports whether m belongs to scope.
//
// Group scope takes every message without a receiver. A private scope takes
// a message only when {sender, receiver} equals {self, peer} as an unordered
// pair, so a group message never leaks into a private thread.
func Accept(m wire.ChatMessage, scope Scope) bool {
	if scope.IsGroup() {
		return m.ReceiverID == 0
	}
	if m.ReceiverID == 0 {
		return false
	}
	return (m.SenderID == scope.self && m.ReceiverID == scope.peer) ||
		(m.SenderID == scope.peer && m.ReceiverID == scope.self)
}

// Filter returns the messages of ms that scope accepts, in order.
func Filter(ms []wire.ChatMessage, scope Scope) []wire.ChatMessage {
	out := make([]wire.ChatMessage, 0, len(ms))
	for _, m := range ms {
		if Accept(m, scope) {
			out = append(out, m)
		}
	}
	return out
}
