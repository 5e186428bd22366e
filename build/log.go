// Package build provides the ambient logging plumbing shared by every
// claimengine subsystem: a rotating log file writer and the helpers used to
// mint per-package slog.Logger instances that can be wired up once the root
// logger is ready.
package build

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate"
)

// LogType names a logging mode, either stdout only or stdout plus a rotating
// file. The "filelog" build tag selects the value of LoggingType (see
// log_filelog.go); RotatingLogWriter does not consult it.
type LogType uint8

const (
	// LogTypeStdOut writes only to stdout.
	LogTypeStdOut LogType = iota

	// LogTypeDefault writes to stdout and a rotating log file.
	LogTypeDefault
)

// RotatingLogWriter wraps a rotating file logger and provides the ability to
// mint and register per-subsystem slog.Logger instances against a shared
// backend, the way dcrlnd's build.RotatingLogWriter does.
type RotatingLogWriter struct {
	mu      sync.Mutex
	rotator *logrotate.Rotator
	backend *slog.Backend
	loggers map[string]slog.Logger
}

// NewRotatingLogWriter creates a writer with no rotation configured; callers
// must call InitLogRotator before any subsystem logger writes are expected to
// reach disk.
func NewRotatingLogWriter() *RotatingLogWriter {
	w := &RotatingLogWriter{
		loggers: make(map[string]slog.Logger),
	}
	w.backend = slog.NewBackend(w)
	return w
}

// Write implements io.Writer, tee-ing to stdout and, once initialized, the
// rotating log file.
func (w *RotatingLogWriter) Write(b []byte) (int, error) {
	os.Stdout.Write(b)
	w.mu.Lock()
	r := w.rotator
	w.mu.Unlock()
	if r != nil {
		_, _ = r.Write(b)
	}
	return len(b), nil
}

// InitLogRotator opens (or creates) the rotating log file at logFile, capped
// at maxLogFileSize megabytes and maxLogFiles historical files.
func (w *RotatingLogWriter) InitLogRotator(logFile string, maxLogFileSize, maxLogFiles int) error {
	r, err := logrotate.NewRotator(logFile, int64(maxLogFileSize*1024), false, maxLogFiles)
	if err != nil {
		return fmt.Errorf("failed to create log rotator: %w", err)
	}
	w.mu.Lock()
	w.rotator = r
	w.mu.Unlock()
	return nil
}

// GenSubLogger returns a new slog.Logger for subsystem backed by the shared
// rotating backend. It satisfies the func(string) slog.Logger shape consumed
// by NewSubLogger.
func (w *RotatingLogWriter) GenSubLogger(subsystem string) slog.Logger {
	return w.backend.Logger(subsystem)
}

// RegisterSubLogger records logger under subsystem so its level can later be
// changed in bulk (e.g. from a "debuglevel" config option).
func (w *RotatingLogWriter) RegisterSubLogger(subsystem string, logger slog.Logger) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loggers[subsystem] = logger
}

// SetLogLevels applies level to every registered subsystem logger.
func (w *RotatingLogWriter) SetLogLevels(level slog.Level) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, logger := range w.loggers {
		logger.SetLevel(level)
	}
}

// Close releases the underlying rotator, if any.
func (w *RotatingLogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rotator == nil {
		return nil
	}
	return w.rotator.Close()
}

var _ io.Writer = (*RotatingLogWriter)(nil)

// NewSubLogger returns a placeholder, disabled logger if genLogger is nil
// (used before the root logger exists), or a real logger minted via
// genLogger otherwise. This mirrors the two-phase logger bring-up dcrlnd
// uses: packages grab a disabled logger at init time and SetupLoggers swaps
// in the real one once the root writer is constructed.
func NewSubLogger(subsystem string, genLogger func(string) slog.Logger) slog.Logger {
	if genLogger == nil {
		return slog.Disabled
	}
	logger := genLogger(subsystem)
	logger.SetLevel(slog.LevelInfo)
	return logger
}
