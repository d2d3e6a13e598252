package utils

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logMu    sync.RWMutex
	logLevel = zap.NewAtomicLevelAt(parseLogLevel(os.Getenv("LOG_LEVEL")))
	logger   = newLogger(shouldUseColor())
)

func parseLogLevel(level string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func shouldUseColor() bool {
	if strings.EqualFold(os.Getenv("NO_COLOR"), "1") || strings.EqualFold(os.Getenv("NO_COLOR"), "true") {
		return false
	}
	if strings.EqualFold(os.Getenv("LOG_COLOR"), "0") || strings.EqualFold(os.Getenv("LOG_COLOR"), "false") {
		return false
	}
	return true
}

func newLogger(useColor bool) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if useColor {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), logLevel)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

func SetLogLevel(level string) {
	logLevel.SetLevel(parseLogLevel(level))
}

func SetLogColor(useColor bool) {
	logMu.Lock()
	defer logMu.Unlock()
	logger = newLogger(useColor)
}

// SetLogger replaces the process logger; tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	logger = l
}

// Logger returns the structured logger. Callers that attach fields should
// prefer it over the printf helpers.
func Logger() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger.WithOptions(zap.AddCallerSkip(-1))
}

func sugar() *zap.SugaredLogger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger.Sugar()
}

func Debugf(format string, args ...interface{}) {
	sugar().Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	sugar().Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	sugar().Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	sugar().Errorf(format, args...)
}

func SyncLogger() {
	_ = sugar().Sync()
}
