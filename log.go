package claimengine

import (
	"github.com/decred/slog"
	"github.com/solmint/claimengine/build"
	"github.com/solmint/claimengine/internal/api"
	"github.com/solmint/claimengine/internal/audit"
	"github.com/solmint/claimengine/internal/authz"
	"github.com/solmint/claimengine/internal/claimlock"
	"github.com/solmint/claimengine/internal/config"
	"github.com/solmint/claimengine/internal/eligibility"
	"github.com/solmint/claimengine/internal/engine"
	"github.com/solmint/claimengine/internal/gateway"
	"github.com/solmint/claimengine/internal/identity"
	"github.com/solmint/claimengine/internal/registry"
	"github.com/solmint/claimengine/internal/submitter"
	"github.com/solmint/claimengine/internal/txbuilder"
	"github.com/solmint/claimengine/internal/verifier"
	"github.com/solmint/claimengine/signal"
)

// replaceableLogger is a thin wrapper around a logger that is used so the
// logger can be replaced easily without some black pointer magic.
type replaceableLogger struct {
	slog.Logger
	subsystem string
}

// Loggers can not be used before the log rotator has been initialized with a
// log file. This must be performed early during application startup by
// calling InitLogRotator() on the main log writer instance in the config.
var (
	// pkgLoggers is a list of all main-package loggers registered here so
	// they can be replaced once SetupLoggers is called with the final
	// root logger.
	pkgLoggers []*replaceableLogger

	addPkgLogger = func(subsystem string) *replaceableLogger {
		l := &replaceableLogger{
			Logger:    build.NewSubLogger(subsystem, nil),
			subsystem: subsystem,
		}
		pkgLoggers = append(pkgLoggers, l)
		return l
	}

	// Loggers used directly from the main package.
	clngLog = addPkgLogger("CLNG")
	apiLog  = addPkgLogger("HTTP")
)

// SetupLoggers initializes all package-global logger variables and wires
// every subsystem's UseLogger hook to a logger generated off root.
func SetupLoggers(root *build.RotatingLogWriter) {
	for _, l := range pkgLoggers {
		l.Logger = build.NewSubLogger(l.subsystem, root.GenSubLogger)
		SetSubLogger(root, l.subsystem, l.Logger)
	}

	signal.UseLogger(clngLog)

	AddSubLogger(root, "ELGB", eligibility.UseLogger)
	AddSubLogger(root, "AUTH", authz.UseLogger)
	AddSubLogger(root, "TXBD", txbuilder.UseLogger)
	AddSubLogger(root, "REGY", registry.UseLogger)
	AddSubLogger(root, "LOCK", claimlock.UseLogger)
	AddSubLogger(root, "VRFY", verifier.UseLogger)
	AddSubLogger(root, "SUBM", submitter.UseLogger)
	AddSubLogger(root, "ENGN", engine.UseLogger)
	AddSubLogger(root, "IDTY", identity.UseLogger)
	AddSubLogger(root, "AUDT", audit.UseLogger)
	AddSubLogger(root, "GWAY", gateway.UseLogger)
	AddSubLogger(root, "API ", api.UseLogger)
	AddSubLogger(root, "CONF", config.UseLogger)
}

// AddSubLogger is a helper method to conveniently create and register the
// logger of one or more sub systems.
func AddSubLogger(root *build.RotatingLogWriter, subsystem string,
	useLoggers ...func(slog.Logger)) {

	logger := build.NewSubLogger(subsystem, root.GenSubLogger)
	SetSubLogger(root, subsystem, logger, useLoggers...)
}

// SetSubLogger is a helper method to conveniently register the logger of a
// sub system.
func SetSubLogger(root *build.RotatingLogWriter, subsystem string,
	logger slog.Logger, useLoggers ...func(slog.Logger)) {

	root.RegisterSubLogger(subsystem, logger)
	for _, useLogger := range useLoggers {
		useLogger(logger)
	}
}

// logClosure is used to provide a closure over expensive logging operations
// so they don't have to be performed when the logging level doesn't warrant
// it.
type logClosure func() string

// String invokes the underlying function and returns the result.
func (c logClosure) String() string {
	return c()
}

// newLogClosure returns a new closure over a function that returns a string
// which itself provides a Stringer interface so that it can be used with
// the logging system.
func newLogClosure(c func() string) logClosure {
	return logClosure(c)
}
