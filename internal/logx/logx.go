// Package logx builds the zerolog loggers used by the binaries.
package logx

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog logger configured for console output.
func NewLogger() zerolog.Logger {
	return newConsole(os.Stdout)
}

func newConsole(w io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	zerolog.CallerMarshalFunc = shortCaller
	return zerolog.New(output).With().Timestamp().Caller().Logger()
}

// NewJSONLogger writes one JSON object per line, for log collectors.
func NewJSONLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// New picks the format by name ("json" or console).
func New(format string, level string) zerolog.Logger {
	var l zerolog.Logger
	if format == "json" {
		l = NewJSONLogger(os.Stdout)
	} else {
		l = NewLogger()
	}
	if lvl, err := zerolog.ParseLevel(level); err == nil && level != "" {
		l = l.Level(lvl)
	}
	return l
}

// shortCaller trims the path to the file name and pads to 28 characters for alignment.
func shortCaller(pc uintptr, file string, line int) string {
	short := file
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			short = file[i+1:]
			break
		}
	}
	return fmt.Sprintf("%-28s", fmt.Sprintf("%s:%d", short, line))
}
