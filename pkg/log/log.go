// Package log provides the logging facade used throughout the PSI/PJC
// engine. It wraps go-logr so schemes never depend on a concrete
// logging backend.
package log

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

// GetLogger returns a stdr.Logger that implements the logr.Logger
// interface and sets the verbosity of the returned logger.
// Set v to false for info level messages only, true for debug
// (stage-by-stage) messages as well.
func GetLogger(verbose bool) logr.Logger {
	logger := stdr.New(nil).WithName("psiengine")
	if verbose {
		stdr.SetVerbosity(1)
	} else {
		stdr.SetVerbosity(0)
	}
	return logger
}

// ContextWithLogger returns a context carrying logger, for Init/Process
// calls on a scheme to pick up.
func ContextWithLogger(ctx context.Context, logger logr.Logger) context.Context {
	return logr.NewContext(ctx, logger)
}

// FromContext returns the logr.Logger carried by ctx, named name, or a
// fresh info-only logger if none was set.
func FromContext(ctx context.Context, name string) logr.Logger {
	logger, err := logr.FromContext(ctx)
	if err != nil {
		logger = GetLogger(false)
	}
	if name != "" {
		return logger.WithName(name)
	}
	return logger
}
