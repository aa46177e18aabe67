// Package logger provides leveled logging for the scan pipeline.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level represents a logging level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var (
	level = InfoLevel
	std   = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
)

func parseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Init configures the package logger. Format "text" adds caller locations,
// anything else stays timestamp-only.
func Init(lvl string, format string) {
	level = parseLevel(lvl)
	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}
	std = log.New(os.Stderr, "", flags)
}

// SetOutput redirects log output; tests use this to capture lines.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

func emit(l Level, tag, format string, args ...any) {
	if level > l {
		return
	}
	_ = std.Output(3, fmt.Sprintf(tag+" "+format, args...))
}

func Debug(format string, args ...any) { emit(DebugLevel, "[DEBUG]", format, args...) }
func Info(format string, args ...any)  { emit(InfoLevel, "[INFO]", format, args...) }
func Warn(format string, args ...any)  { emit(WarnLevel, "[WARN]", format, args...) }
func Error(format string, args ...any) { emit(ErrorLevel, "[ERROR]", format, args...) }

// Fatal logs the message and terminates the process.
func Fatal(format string, args ...any) {
	_ = std.Output(3, fmt.Sprintf("[FATAL] "+format, args...))
	os.Exit(1)
}
