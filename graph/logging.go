package graph

import (
	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// Logger is the narrow structured-logging surface the graph package depends
// on. A *logiface.Logger[*izerolog.Event] does not implement it directly;
// NewZerologLogger wraps a zerolog logger in a logiface/izerolog adapter that
// does, so an application already logging through zerolog can route this
// package's output into the same logger.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, err error, fields map[string]any)
}

// NopLogger discards everything. Used as the Core/Driver default so tests
// and embedders never have to construct a logger just to satisfy the
// interface.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]any)       {}
func (NopLogger) Info(string, map[string]any)        {}
func (NopLogger) Warn(string, map[string]any)        {}
func (NopLogger) Error(string, error, map[string]any) {}

// izerologLogger adapts a logiface.Logger backed by izerolog (zerolog) to
// the Logger interface, following the teacher's composition of logiface as
// a facade over a concrete backend.
type izerologLogger struct {
	l *logiface.Logger[*izerolog.Event]
}

// NewZerologLogger builds a Logger writing structured JSON lines through
// zerolog, via the logiface facade and its izerolog backend, matching the
// logging stack used throughout the example pack.
func NewZerologLogger(zl zerolog.Logger) Logger {
	return &izerologLogger{
		l: izerolog.New(zl),
	}
}

func (z *izerologLogger) Debug(msg string, fields map[string]any) {
	if e := z.l.Debug(); e != nil {
		for k, v := range fields {
			e = e.Any(k, v)
		}
		e.Log(msg)
	}
}

func (z *izerologLogger) Info(msg string, fields map[string]any) {
	if e := z.l.Info(); e != nil {
		for k, v := range fields {
			e = e.Any(k, v)
		}
		e.Log(msg)
	}
}

func (z *izerologLogger) Warn(msg string, fields map[string]any) {
	if e := z.l.Warning(); e != nil {
		for k, v := range fields {
			e = e.Any(k, v)
		}
		e.Log(msg)
	}
}

func (z *izerologLogger) Error(msg string, err error, fields map[string]any) {
	if e := z.l.Err(); e != nil {
		e = e.Err(err)
		for k, v := range fields {
			e = e.Any(k, v)
		}
		e.Log(msg)
	}
}
