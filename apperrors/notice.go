package apperrors

import "fmt"

// Notice renders err as a short line suitable for showing to the person
// using the chat. Internal error text is never included.
func Notice(err error) string {
	if err == nil {
		return ""
	}

	appErr := FromError(err)
	switch appErr.Code {
	case ErrCodeNotConnected:
		return "Not connected to the chat server, message was not sent. Try again once reconnected."
	case ErrCodeSchema:
		if field, ok := appErr.Details["field"].(string); ok && field != "" {
			return fmt.Sprintf("Message not sent: %s is missing or invalid.", field)
		}
		return "Message not sent: it is incomplete."
	case ErrCodeNetwork:
		return "Connection lost, reconnecting..."
	case ErrCodeServiceUnavail:
		return "The chat backend is temporarily unavailable."
	case ErrCodeAPI, ErrCodeValidationFailed, ErrCodeInvalidCreds,
		ErrCodeInvalidFileType, ErrCodeFileTooLarge, ErrCodeUploadFailed,
		ErrCodeSessionNotFound, ErrCodeInvalidFilename:
		return appErr.Message
	default:
		return "Something went wrong."
	}
}
