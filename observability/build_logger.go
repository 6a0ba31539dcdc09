package observability

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
)

// Importance is the importance of an informational build message.
type Importance int

const (
	// ImportanceHigh messages are shown at normal verbosity.
	ImportanceHigh Importance = iota
	// ImportanceNormal messages are shown at detailed verbosity.
	ImportanceNormal
	// ImportanceLow messages are shown at diagnostic verbosity.
	ImportanceLow
)

// Severity of a Diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a structured error or warning tied to an optional file location.
type Diagnostic struct {
	Code    string
	File    string
	Line    int
	Column  int
	Message string
}

// Format renders the diagnostic the way MSBuild prints canonical errors:
// "file(line,col): error CODE: message".
func (d Diagnostic) Format(severity Severity) string {
	prefix := ""
	switch {
	case d.File != "" && d.Line > 0 && d.Column > 0:
		prefix = fmt.Sprintf("%s(%d,%d): ", d.File, d.Line, d.Column)
	case d.File != "" && d.Line > 0:
		prefix = fmt.Sprintf("%s(%d): ", d.File, d.Line)
	case d.File != "":
		prefix = d.File + ": "
	}
	if d.Code != "" {
		return fmt.Sprintf("%s%s %s: %s", prefix, severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s%s: %s", prefix, severity, d.Message)
}

// BuildLogger receives the errors, warnings, messages and telemetry produced
// while loading projects and generating a solution.
type BuildLogger interface {
	Error(d Diagnostic)
	Warning(d Diagnostic)
	Message(importance Importance, messageTemplate string, args ...any)
	Telemetry(ctx context.Context, eventName string, properties map[string]string)

	// HasLoggedErrors reports whether Error was called at least once.
	HasLoggedErrors() bool
}

// CollectingBuildLogger is a BuildLogger that forwards to a Logger and keeps
// every diagnostic it has seen.
type CollectingBuildLogger struct {
	log Logger

	errorCount   atomic.Int64
	warningCount atomic.Int64

	mu       sync.Mutex
	errors   []Diagnostic
	warnings []Diagnostic
}

// NewBuildLogger creates a build logger forwarding to log.
func NewBuildLogger(log Logger) *CollectingBuildLogger {
	if log == nil {
		log = NewNullLogger()
	}
	return &CollectingBuildLogger{log: log}
}

// Error records an error diagnostic.
func (b *CollectingBuildLogger) Error(d Diagnostic) {
	b.errorCount.Add(1)
	b.mu.Lock()
	b.errors = append(b.errors, d)
	b.mu.Unlock()

	DiagnosticsTotal.WithLabelValues(string(SeverityError)).Inc()
	b.log.ForDiagnostic(d).Error("{Diagnostic}", d.Format(SeverityError))
}

// Warning records a warning diagnostic.
func (b *CollectingBuildLogger) Warning(d Diagnostic) {
	b.warningCount.Add(1)
	b.mu.Lock()
	b.warnings = append(b.warnings, d)
	b.mu.Unlock()

	DiagnosticsTotal.WithLabelValues(string(SeverityWarning)).Inc()
	b.log.ForDiagnostic(d).Warn("{Diagnostic}", d.Format(SeverityWarning))
}

// Message logs an informational message at the level matching its importance.
func (b *CollectingBuildLogger) Message(importance Importance, messageTemplate string, args ...any) {
	switch importance {
	case ImportanceHigh:
		b.log.Info(messageTemplate, args...)
	case ImportanceNormal:
		b.log.Debug(messageTemplate, args...)
	default:
		b.log.Verbose(messageTemplate, args...)
	}
}

// Telemetry attaches the event to the active span and logs it at debug level.
func (b *CollectingBuildLogger) Telemetry(ctx context.Context, eventName string, properties map[string]string) {
	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, attribute.String(k, properties[k]))
	}
	AddEvent(ctx, eventName, attrs...)

	if b.log.Enabled(DebugLevel) {
		b.log.DebugContext(ctx, "Telemetry {EventName} {Properties}", eventName, properties)
	}
}

// HasLoggedErrors reports whether any error was logged.
func (b *CollectingBuildLogger) HasLoggedErrors() bool {
	return b.errorCount.Load() > 0
}

// ErrorCount returns the number of errors logged so far.
func (b *CollectingBuildLogger) ErrorCount() int {
	return int(b.errorCount.Load())
}

// WarningCount returns the number of warnings logged so far.
func (b *CollectingBuildLogger) WarningCount() int {
	return int(b.warningCount.Load())
}

// Errors returns a copy of the logged errors.
func (b *CollectingBuildLogger) Errors() []Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Diagnostic(nil), b.errors...)
}

// Warnings returns a copy of the logged warnings.
func (b *CollectingBuildLogger) Warnings() []Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Diagnostic(nil), b.warnings...)
}
