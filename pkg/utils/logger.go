package utils

import (
	"fmt"

	"go.uber.org/zap"
)

// NewSugaredLogger creates a sugared logger based on the verbose flag.
// If verbose is true, it creates a development logger, otherwise a production logger.
// A non-empty logFile sends all output to that file instead of stderr, which keeps
// logs out of an interactive terminal session.
func NewSugaredLogger(verbose bool, logFile string) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	kind := "production"
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		kind = "development"
	}
	if logFile != "" {
		cfg.OutputPaths = []string{logFile}
		cfg.ErrorOutputPaths = []string{logFile}
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create %s logger: %w", kind, err)
	}
	return l.Sugar(), nil
}
