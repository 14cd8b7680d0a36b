package console

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Logger writes leveled, timestamped lines to a terminal.
type Logger struct {
	logger *log.Logger
}

// Params configures a console Logger. A nil Out means stderr.
type Params struct {
	Debug  bool
	Prefix string
	Out    io.Writer
}

func New(p Params) *Logger {
	level := log.InfoLevel
	if p.Debug {
		level = log.DebugLevel
	}
	out := p.Out
	if out == nil {
		out = os.Stderr
	}
	return &Logger{
		logger: log.NewWithOptions(out, log.Options{
			ReportTimestamp: true,
			Level:           level,
			Prefix:          p.Prefix,
		}),
	}
}

func (l *Logger) Debug(msg string, keyvals ...any) { l.logger.Debug(msg, keyvals...) }
func (l *Logger) Info(msg string, keyvals ...any)  { l.logger.Info(msg, keyvals...) }
func (l *Logger) Warn(msg string, keyvals ...any)  { l.logger.Warn(msg, keyvals...) }
func (l *Logger) Error(msg string, keyvals ...any) { l.logger.Error(msg, keyvals...) }
func (l *Logger) Fatal(msg string, keyvals ...any) { l.logger.Fatal(msg, keyvals...) }
