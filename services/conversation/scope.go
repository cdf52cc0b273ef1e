// Package conversation decides which messages belong to which chat.
package conversation

import (
	"fmt"

	"novelchat/pkg/wire"
)

// Scope identifies one conversation: the shared group room or the private
// thread between two users. The zero value is the group scope.
type Scope struct {
	self wire.ID
	peer wire.ID
}

func Group() Scope {
	return Scope{}
}

// Private returns the scope of the unordered pair {self, peer}.
func Private(self, peer wire.ID) Scope {
	return Scope{self: self, peer: peer}
}

func (s Scope) IsGroup() bool {
	return s.peer == 0
}

func (s Scope) Self() wire.ID { return s.self }
func (s Scope) Peer() wire.ID { return s.peer }

// Receiver is the receiverId outbound messages of this scope carry.
func (s Scope) Receiver() wire.ID {
	return s.peer
}

// Address stamps m with the receiver of this scope.
func (s Scope) Address(m *wire.ChatMessage) {
	m.ReceiverID = s.Receiver()
}

// Key returns a stable name for the conversation. Both participants of a
// private scope get the same key.
func (s Scope) Key() string {
	if s.IsGroup() {
		return "chat:group"
	}
	lo, hi := s.self, s.peer
	if lo > hi {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("chat:conv:%d:%d", lo, hi)
}

func (s Scope) String() string {
	if s.IsGroup() {
		return "group"
	}
	return fmt.Sprintf("private(%d<->%d)", s.self, s.peer)
}

// Label is used for metric and log labels.
func (s Scope) Label() string {
	if s.IsGroup() {
		return "group"
	}
	return "private"
}
