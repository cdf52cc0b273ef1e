package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a 64-bit user identifier. It travels as a decimal string in JSON so
// peers whose numbers are IEEE doubles do not lose precision above 2^53.
type ID int64

// Size is a byte count (fileSize) with the same string-on-the-wire rule as ID.
type Size int64

// ParseID converts the decimal string form to an ID. It is the only place a
// string becomes an identifier.
func ParseID(s string) (ID, error) {
	v, err := parseInt64(s)
	return ID(v), err
}

// String returns the decimal string form of id.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func (id ID) IsZero() bool {
	return id == 0
}

func (id ID) MarshalJSON() ([]byte, error) {
	return marshalInt64(int64(id))
}

func (id *ID) UnmarshalJSON(b []byte) error {
	v, err := unmarshalInt64(b)
	if err != nil {
		return fmt.Errorf("wire: invalid id %s: %w", b, err)
	}
	*id = ID(v)
	return nil
}

func ParseSize(s string) (Size, error) {
	v, err := parseInt64(s)
	return Size(v), err
}

func (s Size) String() string {
	return strconv.FormatInt(int64(s), 10)
}

func (s Size) MarshalJSON() ([]byte, error) {
	return marshalInt64(int64(s))
}

func (s *Size) UnmarshalJSON(b []byte) error {
	v, err := unmarshalInt64(b)
	if err != nil {
		return fmt.Errorf("wire: invalid size %s: %w", b, err)
	}
	*s = Size(v)
	return nil
}

func parseInt64(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func marshalInt64(v int64) ([]byte, error) {
	return json.Marshal(strconv.FormatInt(v, 10))
}

// unmarshalInt64 accepts "123", 123 and null. Numbers are parsed from their
// literal text, never through float64.
func unmarshalInt64(b []byte) (int64, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return 0, nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, err
		}
		return parseInt64(s)
	}
	return parseInt64(string(b))
}
