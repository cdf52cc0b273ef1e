// Package wire defines the chat frame record and its binary codec.
//
// One websocket binary frame carries exactly one ChatMessage encoded with the
// server's protobuf schema:
//
//	1 senderId       int64
//	2 receiverId     int64   (0 = group)
//	3 content        string
//	4 type           int32   (Kind)
//	5 timestamp      string  (ISO-8601, set by the sender)
//	6 fileUrl        string
//	7 fileName       string
//	8 fileSize       int64
//	9 senderNickname string
//	10 senderAvatar  string
package wire

import "fmt"

// Kind is the message type enum (field 4).
type Kind int32

const (
	KindText  Kind = 0
	KindImage Kind = 1
	KindEmoji Kind = 2
	KindFile  Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "TEXT"
	case KindImage:
		return "IMAGE"
	case KindEmoji:
		return "EMOJI"
	case KindFile:
		return "FILE"
	default:
		return fmt.Sprintf("Kind(%d)", int32(k))
	}
}

func (k Kind) Valid() bool {
	return k >= KindText && k <= KindFile
}

// HasAttachment reports whether messages of this kind carry fileUrl/fileName/fileSize.
func (k Kind) HasAttachment() bool {
	return k == KindImage || k == KindFile
}

// ChatMessage is the in-memory form of one frame.
type ChatMessage struct {
	SenderID       ID
	ReceiverID     ID
	Content        string
	Kind           Kind
	Timestamp      string
	FileURL        string
	FileName       string
	FileSize       Size
	SenderNickname string
	SenderAvatar   string

	// MessageID is assigned by the backend and only known for messages that
	// came from a history fetch. It is never part of a frame.
	MessageID ID
}

// IsGroup reports whether m is addressed to the group scope.
func (m ChatMessage) IsGroup() bool {
	return m.ReceiverID == 0
}

// Frame returns a copy of m without the fields a frame cannot carry.
func (m ChatMessage) Frame() ChatMessage {
	m.MessageID = 0
	return m
}
