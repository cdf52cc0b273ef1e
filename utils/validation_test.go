package utils

import (
	"strings"
	"testing"

	"novelchat/apperrors"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{name: "Valid username", username: "reader_01-x", wantErr: false},
		{name: "Minimum length", username: "ann", wantErr: false},
		{name: "Too short", username: "ab", wantErr: true},
		{name: "Too long", username: strings.Repeat("n", 31), wantErr: true},
		{name: "Invalid characters", username: "user@name", wantErr: true},
		{name: "Space not allowed", username: "user name", wantErr: true},
		{name: "Non-ASCII letters", username: "读者读者", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.NotNil(t, err)
				assert.Equal(t, apperrors.ErrCodeValidationFailed, err.Code)
			} else {
				assert.Nil(t, err)
			}
		})
	}
}

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "Plain text", content: "hello", wantErr: false},
		{name: "Emoji", content: "😀", wantErr: false},
		{name: "Surrounding whitespace kept", content: "  hi  ", wantErr: false},
		{name: "Empty", content: "", wantErr: true},
		{name: "Only whitespace", content: " \t\n", wantErr: true},
		{name: "Invalid UTF-8", content: "a\xffb", wantErr: true},
		{name: "Exactly at limit", content: strings.Repeat("字", MaxContentLength), wantErr: false},
		{name: "Over limit", content: strings.Repeat("a", MaxContentLength+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContent(tt.content)
			if tt.wantErr {
				assert.NotNil(t, err)
			} else {
				assert.Nil(t, err)
			}
		})
	}
}
