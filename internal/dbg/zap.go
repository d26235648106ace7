package dbg

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewDevLogger() *zap.Logger {
	return must(build(zap.NewDevelopmentConfig(), ""))
}

func NewProdLogger() *zap.Logger {
	return must(build(zap.NewProductionConfig(), ""))
}

// NewLogger builds the production or development logger at the given level.
// An empty level keeps the config default.
func NewLogger(production bool, level string) (*zap.Logger, error) {
	if production {
		return build(zap.NewProductionConfig(), level)
	}
	return build(zap.NewDevelopmentConfig(), level)
}

func build(cfg zap.Config, level string) (*zap.Logger, error) {
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableCaller = true

	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = lvl
	}

	return cfg.Build()
}

func must(logger *zap.Logger, err error) *zap.Logger {
	if err != nil {
		panic(err)
	}
	return logger
}
