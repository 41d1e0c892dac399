package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Init initializes the global logger. Logs go to out, os.Stderr when nil, so
// that stdout stays free for the promotion report. If logFilePath is
// non-empty, logs are also appended to that file as JSON. level can be
// "debug", "info", "warn", "error"; format is "json" (default) or "console".
func Init(out io.Writer, logFilePath, level, format string) (func(), error) {
	if out == nil {
		out = os.Stderr
	}
	l := zerolog.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		l = zerolog.DebugLevel
	case "info":
		l = zerolog.InfoLevel
	case "warn":
		l = zerolog.WarnLevel
	case "error":
		l = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(l)

	console := out
	if strings.EqualFold(format, "console") {
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05", NoColor: out != os.Stderr}
	}

	writers := []io.Writer{console}
	var f *os.File
	if logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		var err error
		f, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, err
		}
		writers = append(writers, f)
	}
	Log = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()
	return func() {
		if f != nil {
			_ = f.Close()
		}
	}, nil
}

// Log is the package-global logger configured by Init. Until Init runs it
// discards everything, which keeps library use and tests quiet.
var Log = zerolog.Nop()

// Get returns a pointer to the package-global logger
func Get() *zerolog.Logger {
	return &Log
}
