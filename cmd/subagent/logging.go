package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// parseLevel maps a level name to a slog level.
func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(name)))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", name)
	}

	return level, nil
}

// setupLogger returns a JSON logger writing to stderr, or to a rotating file
// when path is set. The returned func closes the file.
func setupLogger(stderr io.Writer, level, path string) (*slog.Logger, func() error, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	sink := stderr
	closeFn := func() error { return nil }

	if path != "" {
		rotating := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}

		sink = rotating
		closeFn = rotating.Close
	}

	logger := slog.New(slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: lvl}))

	return logger, closeFn, nil
}
