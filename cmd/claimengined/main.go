// Command claimengined runs the Emission Claim Engine daemon.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/decred/slog"
	claimengine "github.com/solmint/claimengine"
	"github.com/solmint/claimengine/build"
	"github.com/solmint/claimengine/internal/config"
	"github.com/solmint/claimengine/signal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "claimengined: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	logRotator := build.NewRotatingLogWriter()
	logFile := filepath.Join(cfg.LogDir, config.DefaultLogFilename)
	if err := logRotator.InitLogRotator(logFile, config.DefaultMaxLogFileSize, config.DefaultMaxLogFiles); err != nil {
		return fmt.Errorf("initializing log rotator: %w", err)
	}
	claimengine.SetupLoggers(logRotator)

	level, ok := slog.LevelFromString(cfg.DebugLevel)
	if !ok {
		level = slog.LevelInfo
	}
	logRotator.SetLogLevels(level)

	interceptor := signal.NewInterceptor()

	daemon, err := claimengine.New(cfg, logRotator)
	if err != nil {
		return fmt.Errorf("assembling daemon: %w", err)
	}

	daemon.Run(interceptor)
	return nil
}
