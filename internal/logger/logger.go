// Package logger is a small structured logging facade. Messages are
// dispatched to every backend registered with Init; before Init all calls
// are no-ops, so packages can log without setup.
package logger

import "sync"

// Backend is a structured logging sink.
type Backend interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
	Fatal(msg string, keyvals ...any)
}

var (
	mu       sync.RWMutex
	backends []Backend
)

// Init replaces the registered backends.
func Init(b ...Backend) {
	mu.Lock()
	defer mu.Unlock()
	backends = b
}

func each(fn func(Backend)) {
	mu.RLock()
	defer mu.RUnlock()
	for _, b := range backends {
		fn(b)
	}
}

func Debug(msg string, keyvals ...any) { each(func(b Backend) { b.Debug(msg, keyvals...) }) }

func Info(msg string, keyvals ...any) { each(func(b Backend) { b.Info(msg, keyvals...) }) }

func Warn(msg string, keyvals ...any) { each(func(b Backend) { b.Warn(msg, keyvals...) }) }

func Error(msg string, keyvals ...any) { each(func(b Backend) { b.Error(msg, keyvals...) }) }

// Fatal logs and exits through the backends; without backends it does nothing.
func Fatal(msg string, keyvals ...any) { each(func(b Backend) { b.Fatal(msg, keyvals...) }) }
