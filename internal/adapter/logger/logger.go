package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Info(action, message, requestID string, details map[string]interface{})
	Debug(action, message, requestID string, details map[string]interface{})
	Error(action, message, requestID string, details map[string]interface{}, err error)
}

type zapLogger struct {
	z *zap.Logger
}

func New(service string) Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	hostname, _ := os.Hostname()

	z, err := cfg.Build(zap.Fields(
		zap.String("service", service),
		zap.String("hostname", hostname),
	))
	if err != nil {
		z = zap.NewNop()
	}

	return &zapLogger{z: z}
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() Logger {
	return &zapLogger{z: zap.NewNop()}
}

func (l *zapLogger) Info(action, message, requestID string, details map[string]interface{}) {
	l.z.Info(message, fields(action, requestID, details)...)
}

func (l *zapLogger) Debug(action, message, requestID string, details map[string]interface{}) {
	l.z.Debug(message, fields(action, requestID, details)...)
}

func (l *zapLogger) Error(action, message, requestID string, details map[string]interface{}, err error) {
	fs := fields(action, requestID, details)
	if err != nil {
		fs = append(fs, zap.Error(err))
	}
	l.z.Error(message, fs...)
}

func fields(action, requestID string, details map[string]interface{}) []zap.Field {
	fs := []zap.Field{zap.String("action", action)}
	if requestID != "" {
		fs = append(fs, zap.String("request_id", requestID))
	}
	if len(details) > 0 {
		fs = append(fs, zap.Any("details", details))
	}
	return fs
}
