package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"novelchat/pkg/wire"
)

// User is a chat participant as listed by the backend.
type User struct {
	ID            wire.ID `json:"id"`
	Username      string  `json:"username"`
	Nickname      string  `json:"nickname"`
	Avatar        string  `json:"avatar,omitempty"`
	Token         string  `json:"token,omitempty"`
	Online        bool    `json:"online,omitempty"`
	CreateTime    Time    `json:"createTime"`
	LastLoginTime Time    `json:"lastLoginTime"`
}

// DisplayName prefers the nickname.
func (u User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}

// Conversation summarizes one private thread from the caller's side.
type Conversation struct {
	ID                 wire.ID   `json:"id"`
	TargetUserID       wire.ID   `json:"targetUserId"`
	TargetNickname     string    `json:"targetNickname,omitempty"`
	TargetAvatar       string    `json:"targetAvatar,omitempty"`
	TargetOnline       bool      `json:"targetOnline,omitempty"`
	LastMessageContent string    `json:"lastMessageContent,omitempty"`
	LastMessageType    wire.Kind `json:"lastMessageType,omitempty"`
	LastMessageTime    Time      `json:"lastMessageTime"`
	UnreadCount        int       `json:"unreadCount,omitempty"`
}

// Message is a stored chat message as returned by the history endpoints.
type Message struct {
	ID             wire.ID   `json:"id"`
	SenderID       wire.ID   `json:"senderId"`
	SenderNickname string    `json:"senderNickname,omitempty"`
	SenderAvatar   string    `json:"senderAvatar,omitempty"`
	ReceiverID     wire.ID   `json:"receiverId,omitempty"`
	ConversationID wire.ID   `json:"conversationId,omitempty"`
	Content        string    `json:"content"`
	Type           wire.Kind `json:"type"`
	FileURL        string    `json:"fileUrl,omitempty"`
	FileName       string    `json:"fileName,omitempty"`
	FileSize       wire.Size `json:"fileSize,omitempty"`
	IsRead         bool      `json:"isRead,omitempty"`
	CreateTime     Time      `json:"createTime"`
	Timestamp      string    `json:"timestamp,omitempty"`
}

// ChatMessage converts m to the frame record. The server's createTime stands
// in for a missing client timestamp.
func (m Message) ChatMessage() wire.ChatMessage {
	ts := m.Timestamp
	if ts == "" && !m.CreateTime.IsZero() {
		ts = m.CreateTime.Format(TimestampLayout)
	}
	return wire.ChatMessage{
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Content:        m.Content,
		Kind:           m.Type,
		Timestamp:      ts,
		FileURL:        m.FileURL,
		FileName:       m.FileName,
		FileSize:       m.FileSize,
		SenderNickname: m.SenderNickname,
		SenderAvatar:   m.SenderAvatar,
		MessageID:      m.ID,
	}
}

// ChatMessages converts a history page in order.
func ChatMessages(ms []Message) []wire.ChatMessage {
	out := make([]wire.ChatMessage, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ChatMessage())
	}
	return out
}

// FileUploadResult describes a stored attachment.
type FileUploadResult struct {
	FileName       string    `json:"fileName"`
	StoredFileName string    `json:"storedFileName,omitempty"`
	FileURL        string    `json:"fileUrl"`
	FileKey        string    `json:"fileKey,omitempty"`
	FileSize       wire.Size `json:"fileSize"`
	ContentType    string    `json:"contentType,omitempty"`
	StorageType    string    `json:"storageType,omitempty"`
	BucketName     string    `json:"bucketName,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname,omitempty"`
}

type ReadRequest struct {
	UserID   wire.ID `json:"userId"`
	SenderID wire.ID `json:"senderId"`
}

// TimestampLayout is the ISO-8601 form used for message timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Time accepts the backend's dates either as epoch milliseconds or as a
// formatted string.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *Time) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] != '"' {
		ms, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return err
		}
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}

	var lastErr error
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(TimestampLayout))
}
