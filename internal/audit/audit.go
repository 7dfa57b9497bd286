// Package audit appends one durable line per granted position query.
package audit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Sink receives one line per granted query.
type Sink interface {
	Append(line string)
}

// Logger writes audit lines to an append-only file through zerolog.
type Logger struct {
	log  zerolog.Logger
	file *os.File
}

// NewLogger opens (or creates) the audit file in append mode.
func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("error creating audit directory: %v", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening audit file: %v", err)
	}

	return &Logger{
		log:  zerolog.New(file).With().Timestamp().Logger(),
		file: file,
	}, nil
}

// Append writes one audit line.
func (l *Logger) Append(line string) {
	l.log.Info().Msg(line)
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	return l.file.Close()
}

// Nop discards audit lines, for tests.
type Nop struct{}

// Append implements Sink.
func (Nop) Append(string) {}
