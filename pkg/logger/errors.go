package logger

import (
	"novelchat/apperrors"
)

// LogAppError logs err on l. AppErrors contribute their structured fields;
// anything else is logged as an unstructured error.
func (l *Logger) LogAppError(err error, level Level) {
	if err == nil {
		return
	}
	if appErr := apperrors.FromError(err); apperrors.IsAppError(err) {
		l.WithFields(appErr.LogFields()).log(level, "%s", appErr.Message)
		return
	}
	l.WithError(err).log(level, "%s", "Unstructured error occurred")
}

// LogAppError logs err on the default logger
func LogAppError(err error, level Level) {
	GetDefault().LogAppError(err, level)
}
