package renderserver

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/renderserver/internal/cmdqueue"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

// live tracks servers between New and Finish so SetLogger reaches their
// collaborators.
var (
	liveMu sync.Mutex
	live   = map[*Server]struct{}{}
)

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for renderserver, the command queue and
// the collaborators of every running server. By default nothing is logged.
//
// SetLogger is safe for concurrent use. Pass nil to restore the silent
// default.
//
// Log levels used:
//   - [slog.LevelDebug]: change tracking and sync-query tracing
//   - [slog.LevelInfo]: lifecycle (render thread started and stopped, adapter)
//   - [slog.LevelWarn]: rejected commands, invalid RIDs, recovered panics
//
// Example:
//
//	renderserver.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	cmdqueue.SetLogger(l)

	liveMu.Lock()
	defer liveMu.Unlock()
	for s := range live {
		s.propagateLogger(l)
	}
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

func slogger() *slog.Logger { return loggerPtr.Load() }

// loggerSetter is implemented by collaborators that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func (s *Server) propagateLogger(l *slog.Logger) {
	for _, c := range s.collabs.all() {
		if ls, ok := c.(loggerSetter); ok {
			ls.SetLogger(l)
		}
	}
}

func register(s *Server) {
	liveMu.Lock()
	live[s] = struct{}{}
	liveMu.Unlock()
	s.propagateLogger(Logger())
}

func unregister(s *Server) {
	liveMu.Lock()
	delete(live, s)
	liveMu.Unlock()
}
