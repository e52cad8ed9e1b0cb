package host

import (
	"fmt"

	"go.uber.org/zap"
)

// Messages is the host's message sink. Every line is prefixed with the
// plugin name ("lua: ...") and carries structured fields for log processors.
type Messages struct {
	logger *zap.Logger
	prefix string
}

// NewMessages creates a message sink writing to logger.
// A nil logger discards everything.
func NewMessages(logger *zap.Logger, prefix string) *Messages {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Messages{logger: logger, prefix: prefix}
}

// Logger returns the underlying logger.
func (m *Messages) Logger() *zap.Logger {
	return m.logger
}

// Prefix returns the line prefix.
func (m *Messages) Prefix() string {
	return m.prefix
}

// Info writes an informational line.
func (m *Messages) Info(msg string, fields ...zap.Field) {
	m.logger.Info(m.line(msg), fields...)
}

// Error writes an error line.
func (m *Messages) Error(msg string, fields ...zap.Field) {
	m.logger.Error(m.line(msg), fields...)
}

// Debug writes a debug line.
func (m *Messages) Debug(msg string, fields ...zap.Field) {
	m.logger.Debug(m.line(msg), fields...)
}

// Printf writes a formatted informational line.
func (m *Messages) Printf(format string, args ...any) {
	m.Info(fmt.Sprintf(format, args...))
}

// Errorf writes a formatted error line.
func (m *Messages) Errorf(format string, args ...any) {
	m.Error(fmt.Sprintf(format, args...))
}

func (m *Messages) line(msg string) string {
	if m.prefix == "" {
		return msg
	}
	return m.prefix + ": " + msg
}
