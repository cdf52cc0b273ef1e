package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCodeThroughWrapping(t *testing.T) {
	base := NewNotConnectedError("CLOSED")
	wrapped := fmt.Errorf("send text: %w", base)

	assert.True(t, HasCode(wrapped, ErrCodeNotConnected))
	assert.False(t, HasCode(wrapped, ErrCodeSchema))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeNotConnected))
	assert.True(t, errors.Is(wrapped, New(ErrCodeNotConnected, "", 0)))
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	assert.Nil(t, FromError(nil))

	plain := errors.New("boom")
	appErr := FromError(plain)
	assert.Equal(t, ErrCodeInternal, appErr.Code)
	assert.ErrorIs(t, appErr, plain)

	schema := NewSchemaError("content", "required")
	assert.Same(t, schema, FromError(schema))
}

func TestLogFields(t *testing.T) {
	err := NewDecodeError("truncated", errors.New("unexpected EOF"))
	fields := err.LogFields()

	assert.Equal(t, "DECODE_FAILED", fields["error_code"])
	assert.Equal(t, "decode", fields["operation"])
	assert.Equal(t, "truncated", fields["reason"])
	assert.Equal(t, "wire", fields["ctx_subsystem"])
	assert.Equal(t, "unexpected EOF", fields["internal_error"])
}

func TestNotice(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not connected", NewNotConnectedError("CONNECTING"), "Not connected to the chat server, message was not sent. Try again once reconnected."},
		{"schema field", NewSchemaError("content", "required for TEXT"), "Message not sent: content is missing or invalid."},
		{"api message", NewAPIError("/chat/history", 500, "server busy"), "server busy"},
		{"internal hidden", errors.New("secret stack"), "Something went wrong."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Notice(tt.err))
		})
	}
}
