package logging

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts zerolog to the Logger interface. Key–value args are
// attached as fields; a dangling key without a value is logged under "!BADKEY".
type ZerologLogger struct {
	l zerolog.Logger
}

// NewZerologLogger writes JSON lines to w at the given level name.
func NewZerologLogger(w io.Writer, level string) *ZerologLogger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return &ZerologLogger{l: zerolog.New(w).Level(lvl).With().Timestamp().Logger()}
}

func (z *ZerologLogger) Debug(ctx context.Context, msg string, args ...any) {
	withFields(z.l.Debug(), args).Msg(msg)
}

func (z *ZerologLogger) Info(ctx context.Context, msg string, args ...any) {
	withFields(z.l.Info(), args).Msg(msg)
}

func (z *ZerologLogger) Warn(ctx context.Context, msg string, args ...any) {
	withFields(z.l.Warn(), args).Msg(msg)
}

func (z *ZerologLogger) Error(ctx context.Context, msg string, args ...any) {
	withFields(z.l.Error(), args).Msg(msg)
}

func (z *ZerologLogger) With(args ...any) Logger {
	c := z.l.With()
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			c = c.Interface("!BADKEY", args[i])
			break
		}
		c = c.Interface(fmt.Sprint(args[i]), args[i+1])
	}
	return &ZerologLogger{l: c.Logger()}
}

func withFields(e *zerolog.Event, args []any) *zerolog.Event {
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			e = e.Interface("!BADKEY", args[i])
			break
		}
		if err, ok := args[i+1].(error); ok {
			e = e.AnErr(fmt.Sprint(args[i]), err)
			continue
		}
		e = e.Interface(fmt.Sprint(args[i]), args[i+1])
	}
	return e
}

// New picks a backend by name ("slog" or "zerolog").
func New(w io.Writer, backend, level string) Logger {
	if backend == "zerolog" {
		return NewZerologLogger(w, level)
	}
	return NewTextSlogLogger(w, level)
}
