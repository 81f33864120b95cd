package core

import (
	"fmt"
	"log"
	"os"
)

// Logger provides leveled logging for the search components.
// This abstraction allows swapping logging implementations.
type Logger interface {
	// Error logs an error message
	Error(args ...interface{})

	// Errorf logs a formatted error message
	Errorf(format string, args ...interface{})

	// Warn logs a warning message
	Warn(args ...interface{})

	// Warnf logs a formatted warning message
	Warnf(format string, args ...interface{})

	// Info logs an informational message
	Info(args ...interface{})

	// Infof logs a formatted informational message
	Infof(format string, args ...interface{})

	// Debug logs a debug message
	Debug(args ...interface{})

	// Debugf logs a formatted debug message
	Debugf(format string, args ...interface{})
}

// componentLogger implements Logger using Go's standard log package,
// tagging every line with the owning component (master, worker, peer-N, ...).
type componentLogger struct {
	component string
	errOut    *log.Logger
	stdOut    *log.Logger
	debug     bool
}

// NewLogger creates a logger for the named component. Errors and warnings go
// to stderr, everything else to stdout.
func NewLogger(component string) Logger {
	return &componentLogger{
		component: component,
		errOut:    log.New(os.Stderr, "", log.LstdFlags),
		stdOut:    log.New(os.Stdout, "", log.LstdFlags),
	}
}

// NewDebugLogger creates a logger that also emits debug lines.
func NewDebugLogger(component string) Logger {
	return &componentLogger{
		component: component,
		errOut:    log.New(os.Stderr, "", log.LstdFlags),
		stdOut:    log.New(os.Stdout, "", log.LstdFlags),
		debug:     true,
	}
}

func (l *componentLogger) tag(level string, msg string) string {
	return fmt.Sprintf("[%s] [%s] %s", level, l.component, msg)
}

func (l *componentLogger) Error(args ...interface{}) {
	l.errOut.Output(2, l.tag("ERROR", fmt.Sprint(args...)))
}

func (l *componentLogger) Errorf(format string, args ...interface{}) {
	l.errOut.Output(2, l.tag("ERROR", fmt.Sprintf(format, args...)))
}

func (l *componentLogger) Warn(args ...interface{}) {
	l.errOut.Output(2, l.tag("WARN", fmt.Sprint(args...)))
}

func (l *componentLogger) Warnf(format string, args ...interface{}) {
	l.errOut.Output(2, l.tag("WARN", fmt.Sprintf(format, args...)))
}

func (l *componentLogger) Info(args ...interface{}) {
	l.stdOut.Output(2, l.tag("INFO", fmt.Sprint(args...)))
}

func (l *componentLogger) Infof(format string, args ...interface{}) {
	l.stdOut.Output(2, l.tag("INFO", fmt.Sprintf(format, args...)))
}

func (l *componentLogger) Debug(args ...interface{}) {
	if !l.debug {
		return
	}
	l.stdOut.Output(2, l.tag("DEBUG", fmt.Sprint(args...)))
}

func (l *componentLogger) Debugf(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.stdOut.Output(2, l.tag("DEBUG", fmt.Sprintf(format, args...)))
}
