package wire

import (
	"fmt"
	"math"
	"unicode/utf8"

	"novelchat/apperrors"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	fieldSenderID       protowire.Number = 1
	fieldReceiverID     protowire.Number = 2
	fieldContent        protowire.Number = 3
	fieldKind           protowire.Number = 4
	fieldTimestamp      protowire.Number = 5
	fieldFileURL        protowire.Number = 6
	fieldFileName       protowire.Number = 7
	fieldFileSize       protowire.Number = 8
	fieldSenderNickname protowire.Number = 9
	fieldSenderAvatar   protowire.Number = 10
)

// Validate checks m against the schema rules for its kind.
func Validate(m ChatMessage) error {
	if m.SenderID == 0 {
		return apperrors.NewSchemaError("senderId", "required")
	}
	if !m.Kind.Valid() {
		return apperrors.NewSchemaError("type", fmt.Sprintf("unknown kind %d", int32(m.Kind)))
	}

	if m.Kind.HasAttachment() {
		if m.FileURL == "" {
			return apperrors.NewSchemaError("fileUrl", "required for "+m.Kind.String())
		}
		if m.FileSize < 0 {
			return apperrors.NewSchemaError("fileSize", "must not be negative")
		}
	} else {
		if m.Content == "" {
			return apperrors.NewSchemaError("content", "required for "+m.Kind.String())
		}
		if m.FileURL != "" || m.FileName != "" || m.FileSize != 0 {
			return apperrors.NewSchemaError("fileUrl", "only allowed for IMAGE and FILE")
		}
	}

	for name, s := range map[string]string{
		"content":        m.Content,
		"timestamp":      m.Timestamp,
		"fileUrl":        m.FileURL,
		"fileName":       m.FileName,
		"senderNickname": m.SenderNickname,
		"senderAvatar":   m.SenderAvatar,
	} {
		if !utf8.ValidString(s) {
			return apperrors.NewSchemaError(name, "not valid UTF-8")
		}
	}
	return nil
}

// Encode serializes m into one frame. Invalid records fail with a
// SCHEMA_INVALID error before anything is written.
func Encode(m ChatMessage) ([]byte, error) {
	if err := Validate(m); err != nil {
		return nil, err
	}

	size := 32 + len(m.Content) + len(m.Timestamp) + len(m.FileURL) + len(m.FileName) +
		len(m.SenderNickname) + len(m.SenderAvatar)
	b := make([]byte, 0, size)

	b = appendVarint(b, fieldSenderID, uint64(m.SenderID))
	b = appendVarint(b, fieldReceiverID, uint64(m.ReceiverID))
	b = appendString(b, fieldContent, m.Content)
	b = appendVarint(b, fieldKind, uint64(int64(m.Kind)))
	b = appendString(b, fieldTimestamp, m.Timestamp)
	b = appendString(b, fieldFileURL, m.FileURL)
	b = appendString(b, fieldFileName, m.FileName)
	b = appendVarint(b, fieldFileSize, uint64(m.FileSize))
	b = appendString(b, fieldSenderNickname, m.SenderNickname)
	b = appendString(b, fieldSenderAvatar, m.SenderAvatar)
	return b, nil
}

// proto3 omits zero values.
func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// Decode parses one frame. Any deviation from the schema fails with a
// DECODE_FAILED error and a zero ChatMessage.
func Decode(b []byte) (ChatMessage, error) {
	var m ChatMessage

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return ChatMessage{}, apperrors.NewDecodeError("bad tag", protowire.ParseError(n))
		}
		b = b[n:]

		want, known := fieldTypes[num]
		if !known {
			return ChatMessage{}, apperrors.NewDecodeError(fmt.Sprintf("unknown field %d", num), nil)
		}
		if typ != want {
			return ChatMessage{}, apperrors.NewDecodeError(fmt.Sprintf("field %d has wire type %d", num, typ), nil)
		}

		if typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return ChatMessage{}, apperrors.NewDecodeError(fmt.Sprintf("field %d truncated", num), protowire.ParseError(n))
			}
			b = b[n:]
			if err := m.setVarint(num, v); err != nil {
				return ChatMessage{}, err
			}
			continue
		}

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return ChatMessage{}, apperrors.NewDecodeError(fmt.Sprintf("field %d truncated", num), protowire.ParseError(n))
		}
		b = b[n:]
		if !utf8.Valid(v) {
			return ChatMessage{}, apperrors.NewDecodeError(fmt.Sprintf("field %d is not valid UTF-8", num), nil)
		}
		m.setString(num, string(v))
	}

	if err := Validate(m); err != nil {
		return ChatMessage{}, apperrors.NewDecodeError("record violates schema", err)
	}
	return m, nil
}

var fieldTypes = map[protowire.Number]protowire.Type{
	fieldSenderID:       protowire.VarintType,
	fieldReceiverID:     protowire.VarintType,
	fieldContent:        protowire.BytesType,
	fieldKind:           protowire.VarintType,
	fieldTimestamp:      protowire.BytesType,
	fieldFileURL:        protowire.BytesType,
	fieldFileName:       protowire.BytesType,
	fieldFileSize:       protowire.VarintType,
	fieldSenderNickname: protowire.BytesType,
	fieldSenderAvatar:   protowire.BytesType,
}

func (m *ChatMessage) setVarint(num protowire.Number, v uint64) error {
	switch num {
	case fieldSenderID:
		m.SenderID = ID(int64(v))
	case fieldReceiverID:
		m.ReceiverID = ID(int64(v))
	case fieldFileSize:
		m.FileSize = Size(int64(v))
	case fieldKind:
		k := int64(v)
		if k < math.MinInt32 || k > math.MaxInt32 || !Kind(k).Valid() {
			return apperrors.NewDecodeError(fmt.Sprintf("invalid kind %d", k), nil)
		}
		m.Kind = Kind(k)
	}
	return nil
}

func (m *ChatMessage) setString(num protowire.Number, s string) {
	switch num {
	case fieldContent:
		m.Content = s
	case fieldTimestamp:
		m.Timestamp = s
	case fieldFileURL:
		m.FileURL = s
	case fieldFileName:
		m.FileName = s
	case fieldSenderNickname:
		m.SenderNickname = s
	case fieldSenderAvatar:
		m.SenderAvatar = s
	}
}
