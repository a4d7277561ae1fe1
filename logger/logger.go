// Package logger wraps zerolog with the service-wide conventions: a
// service field on every line and a human-readable console writer in
// development.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger.
type Logger struct {
	zerolog.Logger
}

// New creates a logger for the given service and environment.
func New(serviceName, environment string) *Logger {
	var output io.Writer = os.Stdout
	if environment == "development" {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(output).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	return &Logger{Logger: l}
}

// Nop returns a logger that discards everything. For tests.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// WithComponent returns a logger with the component name attached.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With().Str("component", component).Logger()}
}

// WithItem returns a logger with the item id attached.
func (l *Logger) WithItem(itemID string) *Logger {
	return &Logger{Logger: l.Logger.With().Str("item_id", itemID).Logger()}
}
