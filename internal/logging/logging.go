// Package logging provides leveled, printf-style logging with text and
// JSON output formats. The default level is info and the default output
// is stderr, keeping stdout free for machine-readable results.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is a log severity level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the uppercase name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name to a Level. It accepts any casing but
// no surrounding whitespace; "warning" is accepted as an alias for warn.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

var (
	mu     sync.Mutex
	level  = LevelInfo
	format = "text"
)

var out io.Writer = os.Stderr

// SetLevel sets the minimum level that will be logged.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return level
}

// IsDebug reports whether debug logging is enabled.
func IsDebug() bool {
	return GetLevel() == LevelDebug
}

// SetFormat selects the output format: "text" or "json".
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	format = f
}

// SetOutput redirects log output. Passing nil restores stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		out = os.Stderr
		return
	}
	out = w
}

// Debug logs a message at debug level.
func Debug(msg string, args ...interface{}) { logf(LevelDebug, msg, args...) }

// Info logs a message at info level.
func Info(msg string, args ...interface{}) { logf(LevelInfo, msg, args...) }

// Warn logs a message at warn level.
func Warn(msg string, args ...interface{}) { logf(LevelWarn, msg, args...) }

// Error logs a message at error level.
func Error(msg string, args ...interface{}) { logf(LevelError, msg, args...) }

type jsonEntry struct {
	TS    string `json:"ts"`
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

func logf(l Level, msg string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if l < level {
		return
	}

	rendered := msg
	if len(args) > 0 {
		rendered = fmt.Sprintf(msg, args...)
	}

	if format == "json" {
		b, err := json.Marshal(jsonEntry{
			TS:    time.Now().Format(time.RFC3339),
			Level: strings.ToLower(l.String()),
			Msg:   rendered,
		})
		if err != nil {
			return
		}
		fmt.Fprintln(out, string(b))
		return
	}

	fmt.Fprintf(out, "[%s] %s\n", l, rendered)
}
