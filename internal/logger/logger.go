package logger

import (
	"fmt"
	"io"
	"log"
)

// Logger writes levelled lines to a *log.Logger. A named logger prefixes
// every line with its component.
type Logger struct {
	l         *log.Logger
	component string
}

func New(l *log.Logger) *Logger {
	return &Logger{l: l, component: ""}
}

// Discard is a logger for tests.
func Discard() *Logger {
	return New(log.New(io.Discard, "", 0))
}

// Named returns a logger sharing the output of l and tagged with component.
func (l *Logger) Named(component string) *Logger {
	return &Logger{l: l.l, component: component}
}

func (l *Logger) Writer() io.Writer {
	return l.l.Writer()
}

func (l *Logger) LogErrorf(format string, v ...any) {
	l.print("Error", format, v...)
}

func (l *Logger) LogInfo(format string, v ...any) {
	l.print("Info", format, v...)
}

func (l *Logger) print(level, format string, v ...any) {
	msg := fmt.Sprintf(format, v...)

	if l.component == "" {
		l.l.Printf("[%s]: %s\n", level, msg)

		return
	}

	l.l.Printf("[%s] %s: %s\n", level, l.component, msg)
}
