// Package logging builds the process logger. Runtime behavior can be
// overridden through LINKCTL_LOG_* environment variables without touching
// the configuration file.
package logging

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel     = "LINKCTL_LOG_LEVEL"
	EnvLogTimestamp = "LINKCTL_LOG_TIMESTAMP"
	EnvLogNoColor   = "LINKCTL_LOG_NOCOLOR"
)

// InitLogger builds the console logger, installs it as the zerolog global,
// and returns it.
func InitLogger(app, level string) zerolog.Logger {
	if env := os.Getenv(EnvLogLevel); env != "" {
		level = env
	}
	lvl, ok := ParseLevel(level)
	if !ok {
		lvl = zerolog.InfoLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    envBool(EnvLogNoColor),
	}
	ctx := zerolog.New(output).Level(lvl).With().Str("app", app)
	if !envBoolDefault(EnvLogTimestamp, true) {
		logger := ctx.Logger()
		log.Logger = logger
		return logger
	}
	logger := ctx.Timestamp().Logger()
	log.Logger = logger
	return logger
}

// ParseLevel maps a config string onto a zerolog level.
func ParseLevel(s string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	default:
		return zerolog.InfoLevel, false
	}
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func envBoolDefault(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
