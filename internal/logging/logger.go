package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// Output format of a logger's sink.
type Format int

const (
	FormatConsole Format = iota
	FormatJSON
)

// sink is the zerolog backend shared by a logger and every logger derived from it.
type sink struct {
	// Prevents messages from different goroutines from interleaving.
	mu sync.Mutex

	out    io.Writer
	format Format
	zl     zerolog.Logger
}

func newSink(out io.Writer, format Format) *sink {
	s := new(sink)
	s.reset(out, format)
	return s
}

func (s *sink) reset(out io.Writer, format Format) {
	s.out = out
	s.format = format

	w := out
	if format == FormatConsole {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: timestampFormat,
			NoColor:    !isTerminal(out),
		}
	}
	// Filtering happens in Logger.Log; zerolog must let everything through.
	s.zl = zerolog.New(w).Level(zerolog.TraceLevel).With().Timestamp().Logger()
}

type Logger struct {
	// Tag used to filter and classify log messages.
	Tag string

	// Level used when no directive matches the tag. Follows the default level
	// unless set with WithDefaultLevel.
	fallback Level

	sink *sink
}

// Write to stderr by default.
var DefaultLogger = &Logger{fallback: unset, sink: newSink(os.Stderr, FormatConsole)}

// Override the destination for this logger and all loggers derived from it.
func (log *Logger) SetDestination(out io.Writer) {
	log.sink.mu.Lock()
	defer log.sink.mu.Unlock()
	log.sink.reset(out, log.sink.format)
}

// Switch between console and JSON output for this logger and all loggers
// derived from it.
func (log *Logger) SetFormat(format Format) {
	log.sink.mu.Lock()
	defer log.sink.mu.Unlock()
	log.sink.reset(log.sink.out, format)
}

// Derive a new logger with the given tag. The level is looked up based on the
// tag each time a message is logged, so directives applied later still take
// effect.
func (log *Logger) WithTag(tag string) *Logger {
	return &Logger{tag, log.fallback, log.sink}
}

// Derive a new logger with the given default level. This can still be overridden at
// runtime.
func (log *Logger) WithDefaultLevel(level Level) *Logger {
	return &Logger{log.Tag, level, log.sink}
}

// Level returns the level currently in effect for this logger.
func (log *Logger) Level() Level {
	return determineLevel(log.Tag, log.fallback)
}

// Enabled reports whether a message at the given level would be written.
func (log *Logger) Enabled(level Level) bool {
	return level <= log.Level()
}

// Log a message at the given level. Include the file and line number from
// 'calldepth' steps up the call stack.
func (log *Logger) Log(level Level, calldepth int, format string, a ...interface{}) {
	if !log.Enabled(level) {
		// Message is too verbose for this logger.
		return
	}

	// Get the caller of Error()/Warn()/Info()/etc.
	_, file, line, ok := runtime.Caller(calldepth + 1)
	if !ok {
		file = "?"
	}

	msg := strings.TrimSuffix(fmt.Sprintf(format, a...), "\n")

	log.sink.mu.Lock()
	defer log.sink.mu.Unlock()

	ev := log.sink.zl.WithLevel(level.zerolog())
	if log.Tag != "" {
		ev = ev.Str("tag", log.Tag)
	}
	if level > Debug {
		ev = ev.Int("v", int(level))
	}
	ev.Str("caller", fmt.Sprintf("%s:%d", filepath.Base(file), line)).Msg(msg)
}

func (log *Logger) Error(format string, a ...interface{}) {
	log.Log(Error, 1, format, a...)
}

func (log *Logger) Warn(format string, a ...interface{}) {
	log.Log(Warn, 1, format, a...)
}

func (log *Logger) Info(format string, a ...interface{}) {
	log.Log(Info, 1, format, a...)
}

func (log *Logger) Debug(format string, a ...interface{}) {
	log.Log(Debug, 1, format, a...)
}

func (log *Logger) Trace(n int, format string, a ...interface{}) {
	log.Log(Level(n), 1, format, a...)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
