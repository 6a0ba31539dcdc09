// Package observability provides logging, tracing and metrics for slngen.
package observability

import (
	"context"
	"io"
	"strings"

	"github.com/willibrandon/mtlog"
	"github.com/willibrandon/mtlog/core"
	"github.com/willibrandon/mtlog/sinks"
)

// Logger writes message-template events, e.g.
//
//	log.Debug("Evaluated {ProjectPath} in {Elapsed}", path, elapsed)
//
// Implementations are safe for concurrent use.
type Logger interface {
	Verbose(messageTemplate string, args ...any)
	Debug(messageTemplate string, args ...any)
	Info(messageTemplate string, args ...any)
	Warn(messageTemplate string, args ...any)
	Error(messageTemplate string, args ...any)

	// DebugContext correlates the event with the span in ctx
	DebugContext(ctx context.Context, messageTemplate string, args ...any)

	// ForContext returns a logger that adds key to every event
	ForContext(key string, value any) Logger

	// ForDiagnostic returns a logger that adds the code and location of d
	ForDiagnostic(d Diagnostic) Logger

	// Enabled reports whether events at level are written
	Enabled(level LogLevel) bool
}

// LogLevel is the minimum severity a logger writes.
type LogLevel = core.LogEventLevel

const (
	VerboseLevel = core.VerboseLevel
	DebugLevel   = core.DebugLevel
	InfoLevel    = core.InformationLevel
	WarnLevel    = core.WarningLevel
	ErrorLevel   = core.ErrorLevel
)

// ParseVerbosity maps an MSBuild style verbosity (q[uiet], m[inimal], n[ormal],
// d[etailed], diag[nostic]) to a LogLevel. Unknown values map to InfoLevel.
func ParseVerbosity(verbosity string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(verbosity)) {
	case "q", "quiet":
		return ErrorLevel
	case "m", "minimal":
		return WarnLevel
	case "d", "detailed":
		return DebugLevel
	case "diag", "diagnostic":
		return VerboseLevel
	default:
		return InfoLevel
	}
}

// NewLogger creates a logger writing to output at the given minimum level.
func NewLogger(output io.Writer, level LogLevel) Logger {
	return newSinkLogger(sinks.NewConsoleSinkWithWriter(output), level)
}

// NewVerbosityLogger creates a logger writing to output at the level of an
// MSBuild style verbosity.
func NewVerbosityLogger(output io.Writer, verbosity string) Logger {
	return NewLogger(output, ParseVerbosity(verbosity))
}

func newSinkLogger(sink core.LogEventSink, level LogLevel) Logger {
	return &mtlogLogger{Logger: mtlog.New(
		mtlog.WithSink(sink),
		mtlog.WithTimestamp(),
		mtlog.WithMinimumLevel(level),
	)}
}

// mtlogLogger promotes the level methods of the wrapped mtlog logger.
type mtlogLogger struct {
	core.Logger
}

func (l *mtlogLogger) ForContext(key string, value any) Logger {
	return &mtlogLogger{Logger: l.Logger.ForContext(key, value)}
}

func (l *mtlogLogger) ForDiagnostic(d Diagnostic) Logger {
	args := []any{"Code", d.Code, "File", d.File}
	if d.Line > 0 {
		args = append(args, "Line", d.Line)
	}
	return &mtlogLogger{Logger: l.With(args...)}
}

func (l *mtlogLogger) Enabled(level LogLevel) bool {
	return l.IsEnabled(level)
}

type nullLogger struct{}

// NewNullLogger creates a logger that discards all output
func NewNullLogger() Logger {
	return nullLogger{}
}

func (nullLogger) Verbose(string, ...any)                       {}
func (nullLogger) Debug(string, ...any)                         {}
func (nullLogger) Info(string, ...any)                          {}
func (nullLogger) Warn(string, ...any)                          {}
func (nullLogger) Error(string, ...any)                         {}
func (nullLogger) DebugContext(context.Context, string, ...any) {}
func (n nullLogger) ForContext(string, any) Logger              { return n }
func (n nullLogger) ForDiagnostic(Diagnostic) Logger            { return n }
func (nullLogger) Enabled(LogLevel) bool                        { return false }
