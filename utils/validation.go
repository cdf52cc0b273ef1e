package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"novelchat/apperrors"
)

// MaxContentLength caps one text message, in characters.
const MaxContentLength = 2000

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateUsername checks if the username meets security requirements
func ValidateUsername(username string) *apperrors.AppError {
	if len(username) < 3 {
		return apperrors.NewValidationError("Username must be at least 3 characters long")
	}

	if len(username) > 30 {
		return apperrors.NewValidationError("Username cannot exceed 30 characters")
	}

	if !usernameRegex.MatchString(username) {
		return apperrors.NewValidationError("Username can only contain letters, numbers, underscores, and hyphens")
	}

	return nil
}

// ValidateContent checks a message typed by the user before it is sent.
func ValidateContent(content string) *apperrors.AppError {
	if strings.TrimSpace(content) == "" {
		return apperrors.NewValidationError("Message cannot be empty")
	}

	if !utf8.ValidString(content) {
		return apperrors.NewValidationError("Message contains invalid characters")
	}

	if utf8.RuneCountInString(content) > MaxContentLength {
		return apperrors.NewValidationErrorf("Message cannot exceed %d characters", MaxContentLength)
	}

	return nil
}
