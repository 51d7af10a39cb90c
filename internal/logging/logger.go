// Package logging builds the zap loggers used across the ingestion service.
// Every pipeline component receives a Named child of the root logger, so log
// lines carry their component ("crawler", "extract", "pipeline") alongside
// the run fields.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the root logger. Development mode (logging.development in the
// config file, CATALOG_LOGGING_DEVELOPMENT in the environment) selects a
// colored console encoder for local runs; production mode emits JSON so run
// summaries and per-product failures are machine-parseable.
func New(development bool) (*zap.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.DisableStacktrace = false
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger (development=%t): %w", development, err)
	}
	return logger, nil
}
