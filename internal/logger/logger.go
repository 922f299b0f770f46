package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	appCtx "github.com/orgnet-app/identity-service/internal/pkg/context"
)

// Logger defaults to a no-op until Init runs, so library code may log
// unconditionally.
var Logger = zerolog.Nop()

func Init() {
	InitWithWriter(os.Stdout)
}

func InitWithWriter(w io.Writer) {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	format := os.Getenv("LOG_FORMAT") // "json" or "console"
	if format == "" {
		format = "console"
	}

	if format == "json" {
		Logger = zerolog.New(w).With().Timestamp().Logger().Level(level)
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger().Level(level)
	}

	// set global
	zlog.Logger = Logger
}

// WithComponent returns a child logger tagged with a component name
// (resolver, rekey, scope, ...). Returns a pointer: zerolog's level methods
// have pointer receivers, so callers need an addressable logger to chain on.
func WithComponent(name string) *zerolog.Logger {
	l := Logger.With().Str("component", name).Logger()
	return &l
}

// WithCtx returns a child logger carrying the request id, when one is set.
func WithCtx(ctx context.Context) *zerolog.Logger {
	if id := appCtx.GetRequestID(ctx); id != "" {
		l := Logger.With().Str("request_id", id).Logger()
		return &l
	}
	return &Logger
}
