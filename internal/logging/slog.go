// Package logging adapts log/slog handlers to the glog.Logger contract the
// bot logs through.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

// LevelTrace sits below slog.LevelDebug.
const LevelTrace = slog.Level(-8)

// LevelFatal sits above slog.LevelError.
const LevelFatal = slog.Level(12)

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "fatal":
		return LevelFatal
	default:
		return slog.LevelInfo
	}
}

// NewJSON returns a glog.Logger writing JSON records at or above level to w.
func NewJSON(w io.Writer, level slog.Level) glog.Logger {
	return New(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

// New wraps l. A nil l yields a no-op logger.
func New(l *slog.Logger) glog.Logger {
	if l == nil {
		return glog.Nop()
	}
	return &slogLogger{l: l, ctx: context.Background()}
}

type slogLogger struct {
	l   *slog.Logger
	ctx context.Context
}

var _ glog.Logger = (*slogLogger)(nil)

func (s *slogLogger) Trace(msg string, args ...any) { s.log(LevelTrace, msg, args...) }
func (s *slogLogger) Debug(msg string, args ...any) { s.log(slog.LevelDebug, msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.log(slog.LevelInfo, msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.log(slog.LevelWarn, msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.log(slog.LevelError, msg, args...) }

// Fatal logs and exits the process with status 1.
func (s *slogLogger) Fatal(msg string, args ...any) {
	s.log(LevelFatal, msg, args...)
	os.Exit(1)
}

func (s *slogLogger) WithContext(ctx context.Context) glog.Logger {
	if ctx == nil {
		ctx = context.Background()
	}
	return &slogLogger{l: s.l, ctx: ctx}
}

func (s *slogLogger) log(level slog.Level, msg string, args ...any) {
	s.l.Log(s.ctx, level, msg, normalize(args)...)
}

// normalize renders error values as strings so JSON handlers keep the message.
func normalize(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if err, ok := a.(error); ok {
			out[i] = err.Error()
			continue
		}
		out[i] = a
	}
	return out
}
