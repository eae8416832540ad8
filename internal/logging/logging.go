// Package logging builds the zerolog logger used by the command line tool.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log formats.
const (
	FormatPlain = "plain"
	FormatText  = "text"
	FormatJSON  = "json"
)

// NewConsoleWriter wraps w for the given format. Plain and text produce
// human readable lines, json passes records through unchanged.
func NewConsoleWriter(w io.Writer, format string) (io.Writer, error) {
	switch strings.ToLower(format) {
	case "", FormatPlain, FormatText:
		return &zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    true,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					return strings.ToUpper(ll)
				}
				return "????"
			},
		}, nil

	case FormatJSON:
		return w, nil

	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}

// New returns a timestamped logger writing to w.
func New(w io.Writer, format, level string) (zerolog.Logger, error) {
	writer, err := NewConsoleWriter(w, format)
	if err != nil {
		return zerolog.Nop(), err
	}
	if level == "" {
		level = zerolog.LevelInfoValue
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("failed to parse log level: %v", err)
	}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger(), nil
}
