package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the development logger used across the service. An empty
// level keeps zap's development default (debug).
func NewLogger(level string) (*zap.Logger, error) {
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
		}
		loggerConfig.Level = zap.NewAtomicLevelAt(parsed)
	}

	logger, err := loggerConfig.Build()
	if nil != err {
		return nil, err
	}

	return logger, nil
}
