package logger

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
)

// Log is the global logger instance
var Log *slog.Logger

// Init sets the default slog logger. Development logs text at debug level,
// production logs JSON at info level. With a Sentry DSN, error records are
// also sent to Sentry.
func Init(isDev bool, sentryDSN string) {
	level := slog.LevelInfo
	if isDev {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler
	if isDev {
		handlers = append(handlers, slog.NewTextHandler(os.Stdout, opts))
	} else {
		handlers = append(handlers, slog.NewJSONHandler(os.Stdout, opts))
	}

	if sentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              sentryDSN,
			TracesSampleRate: 1.0,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "sentry disabled: %v\n", err)
		} else {
			handlers = append(handlers, slogsentry.Option{
				Level: slog.LevelError,
			}.NewSentryHandler())
		}
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = slogmulti.Fanout(handlers...)
	} else {
		handler = handlers[0]
	}

	Log = slog.New(handler).With("service", "gallery")
	slog.SetDefault(Log)
}

// Flush waits for buffered Sentry events before the process exits.
func Flush() {
	sentry.Flush(2 * time.Second)
}
