package logging

import (
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Logging level. Higher values indicate more verbosity.
type Level int

const (
	Error Level = iota - 2
	Warn
	Info
	Debug

	// Allow numeric logging levels up to 9.
	MaxLevel Level = 9

	// Marks a logger that follows the default level.
	unset Level = MaxLevel + 1
)

// ParseLevel accepts a level name, its first letter, or a number from -2 to 9.
func ParseLevel(s string) (level Level, err error) {
	// First check for well-known level names or abbreviations.
	switch strings.ToUpper(s) {
	case "E", "ERROR":
		return Error, nil
	case "W", "WARN":
		return Warn, nil
	case "I", "INFO":
		return Info, nil
	case "D", "DEBUG":
		return Debug, nil
	case "T", "TRACE":
		return MaxLevel, nil
	}

	// Otherwise expect an explicit numeric level.
	if n, ierr := strconv.Atoi(s); ierr != nil {
		err = errors.New("Invalid logging level: " + s)
	} else {
		level = Level(n)
		if level < Error || level > MaxLevel {
			err = errors.New("Numeric level out of range: " + s)
		}
	}
	return
}

func (l Level) String() string {
	switch l {
	case Error:
		return "Error"
	case Warn:
		return "Warn"
	case Info:
		return "Info"
	case Debug:
		return "Debug"
	default:
		return strconv.Itoa(int(l))
	}
}

// Everything above Debug is rendered as zerolog's trace level; the numeric
// level is kept in the "v" field.
func (l Level) zerolog() zerolog.Level {
	switch {
	case l <= Error:
		return zerolog.ErrorLevel
	case l == Warn:
		return zerolog.WarnLevel
	case l == Info:
		return zerolog.InfoLevel
	case l == Debug:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}
