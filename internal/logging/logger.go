// Package logging builds the hclog loggers used across the daemon.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Environment variables read by NewLogger and Level.
const (
	EnvLevel = "STATUSBOARD_LOG_LEVEL"
	EnvJSON  = "STATUSBOARD_JSON_LOG"
)

// NewLogger creates a new hclog logger with standard settings.
// An empty level falls back to Level().
func NewLogger(name, level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}
	if level == "" {
		level = Level()
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: os.Getenv(EnvJSON) == "1",
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// Level returns the configured log level from the environment.
func Level() string {
	level := os.Getenv(EnvLevel)
	if level == "" {
		level = "info"
	}
	return level
}
