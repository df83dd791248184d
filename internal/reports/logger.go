package reports

import (
	"fmt"
	"os"
	"time"
)

// Severity classifies a log line's importance, mirroring
// internal/errors.Severity for ambient log lines that aren't
// necessarily tied to an EngineError.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityErrorLvl Severity = "ERROR"
)

// Logger is a structured single-line logging contract. No package in
// this module logs through it.
type Logger interface {
	Log(severity Severity, message string, fields map[string]any)
}

// StderrLogger writes one timestamped line per call to stderr, in the
// format "[timestamp] SEVERITY: message" followed by any fields. Unlike
// errors.SimpleLogger.Log it carries no error code and does not write
// to stdout.
type StderrLogger struct{}

// Log writes a single timestamped line to stderr.
func (StderrLogger) Log(severity Severity, message string, fields map[string]any) {
	fmt.Fprintf(os.Stderr, "[%s] %s: %s", time.Now().Format("2006-01-02 15:04:05"), severity, message)
	if len(fields) > 0 {
		fmt.Fprintf(os.Stderr, " %v", fields)
	}
	fmt.Fprintln(os.Stderr)
}

// NopLogger discards every line, for tests that don't want stderr noise.
type NopLogger struct{}

// Log is a no-op.
func (NopLogger) Log(Severity, string, map[string]any) {}
