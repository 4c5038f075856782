// Package actorlog provides package-level structured logging for actorgo,
// following the same "package-global, swappable backend" design as the
// teacher module's logging.go: infrastructure logging is a cross-cutting
// concern shared by every strand and reactor pool, so it is configured once
// at process startup rather than threaded through every constructor.
//
// Design Decision: a package-level variable is appropriate here because
//   - logging is an infrastructure cross-cutting concern,
//   - every reactor pool and strand in a process shares logging semantics,
//   - per-instance logger plumbing would bloat every constructor's surface
//     for a concern that is almost always configured once, globally.
package actorlog

import (
	"os"
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logger used throughout actorgo. It is a thin
// alias over logiface's generic logger, bound to stumpy's event type, so
// call sites never need to spell out the generic parameter.
type Logger = logiface.Logger[*stumpy.Event]

var (
	globalMu     sync.RWMutex
	globalLogger *Logger = newDefaultLogger()
)

// newDefaultLogger builds the zero-configuration default: stumpy writing
// newline-delimited JSON to stderr at Informational level and above,
// matching teacher logging.go's NewDefaultLogger default level.
func newDefaultLogger() *Logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
		logiface.WithLevel[*stumpy.Event](logiface.LevelInformational),
	)
}

// SetLogger replaces the global logger used by all actorgo packages. Pass
// nil to restore the zero-configuration default.
func SetLogger(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if l == nil {
		l = newDefaultLogger()
	}
	globalLogger = l
}

// L returns the current global logger. Safe for concurrent use; each call
// takes the read lock of an RWMutex, so readers do not block one another
// (matching the teacher's globalLogger.RWMutex pattern).
func L() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}
