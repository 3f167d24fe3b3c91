// Package agentlog provides the wallet's logging convention: a thin
// prefix wrapper around the standard library logger, matching the
// teacher's exclusive use of log.Printf with no structured logging
// dependency anywhere in its call graph.
package agentlog

import (
	"log"
	"os"
)

// Logger tags every line with a component name, e.g. "[bridge:cctp]".
type Logger struct {
	tag string
	std *log.Logger
}

// New creates a component-tagged logger writing to stderr.
func New(component string) *Logger {
	return &Logger{
		tag: "[" + component + "] ",
		std: log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (l *Logger) Printf(format string, args ...any) {
	l.std.Printf(l.tag+format, args...)
}

func (l *Logger) Println(args ...any) {
	l.std.Println(append([]any{l.tag}, args...)...)
}
