package logsvc

import (
	"log"

	"github.com/darasahq/darasa/core"
)

// StdLogger logs to a standard library logger; used in development and tests
// where shipping events to an error tracker is unwanted.
type StdLogger struct {
	std *log.Logger
}

var _ core.Logger = (*StdLogger)(nil)

func NewStdLogger(std *log.Logger) *StdLogger {
	return &StdLogger{std: std}
}

func (l StdLogger) print(lvl, msg string, args []interface{}) {
	l.std.Printf("%s: %s", lvl, msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l StdLogger) Debug(msg string, args ...interface{})    { l.print("DEBUG", msg, args) }
func (l StdLogger) Info(msg string, args ...interface{})     { l.print("INFO", msg, args) }
func (l StdLogger) Warn(msg string, args ...interface{})     { l.print("WARN", msg, args) }
func (l StdLogger) Error(msg string, args ...interface{})    { l.print("ERROR", msg, args) }
func (l StdLogger) Critical(msg string, args ...interface{}) { l.print("CRITICAL", msg, args) }
