/*
DESCRIPTION
  alog.go is the minimal logger used by this module's cmd/ tools. The
  core codec/h264 and codec/h264/h264dec packages take no logger
  dependency at all; logging is strictly an outer-collaborator concern.

AUTHORS
  Dan Kereama <dan@streamhdr.io>
*/

// Package alog provides a small leveled logger with a lumberjack-backed
// rotating file sink, for use by this module's command-line tools.
package alog

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity levels, most to least verbose.
const (
	Debug int8 = iota
	Info
	Warning
	Error
	Fatal
)

func levelString(level int8) string {
	switch level {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger is the logging interface used throughout this module's cmd/
// tools.
type Logger interface {
	SetLevel(int8)
	Log(level int8, message string, params ...interface{})
}

// FileLogger writes leveled, timestamped log lines to w, filtering out
// anything below the configured level. It also exits the process on a
// Fatal call, after the line has been written.
type FileLogger struct {
	level int8
	w     io.Writer
}

// NewFileLogger returns a FileLogger that rotates path via lumberjack,
// keeping at most maxBackups old files no older than maxAgeDays days,
// each capped at maxSizeMB megabytes. If suppress is true, log lines
// are written only to the file; otherwise they are also duplicated to
// stderr.
func NewFileLogger(path string, maxSizeMB, maxBackups, maxAgeDays int, level int8, suppress bool) *FileLogger {
	fileSink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}

	var w io.Writer = fileSink
	if !suppress {
		w = io.MultiWriter(fileSink, os.Stderr)
	}

	return &FileLogger{level: level, w: w}
}

// SetLevel changes the minimum severity that Log will write.
func (l *FileLogger) SetLevel(level int8) {
	l.level = level
}

// Log writes message at level, followed by any params formatted as
// alternating key/value pairs, if level meets the logger's configured
// minimum. A Fatal-level call terminates the process after writing.
func (l *FileLogger) Log(level int8, message string, params ...interface{}) {
	if level < l.level {
		return
	}

	line := fmt.Sprintf("%s %s: %s", time.Now().Format(time.RFC3339), levelString(level), message)
	for i := 0; i+1 < len(params); i += 2 {
		line += fmt.Sprintf(" %v=%v", params[i], params[i+1])
	}
	fmt.Fprintln(l.w, line)

	if level == Fatal {
		os.Exit(1)
	}
}
