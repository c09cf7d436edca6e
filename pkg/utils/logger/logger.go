package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap sugared logger with a component name
type Logger struct {
	*zap.SugaredLogger
}

var (
	globalLogger *Logger
	once         sync.Once
	mu           sync.RWMutex
)

// Init initializes the global logger instance. Only the first call takes effect.
func Init(level string, env string) {
	once.Do(func() {
		setGlobal(newCore(level, env, zapcore.AddSync(os.Stdout)))
	})
}

// UseNop replaces the global logger with one that discards everything
func UseNop() {
	once.Do(func() {})
	mu.Lock()
	defer mu.Unlock()
	globalLogger = &Logger{zap.NewNop().Sugar()}
}

func newCore(level string, env string, out zapcore.WriteSyncer) zapcore.Core {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	// JSON in production, console otherwise
	var encoder zapcore.Encoder
	if env == "production" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	logLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		logLevel = zapcore.InfoLevel
	}

	return zapcore.NewCore(encoder, out, zap.NewAtomicLevelAt(logLevel))
}

func setGlobal(core zapcore.Core) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger = &Logger{zap.New(core, zap.AddCaller()).Sugar()}
}

// GetLogger returns a logger instance with the given name
func GetLogger(name string) *Logger {
	mu.RLock()
	initialized := globalLogger != nil
	mu.RUnlock()
	if !initialized {
		Init("info", "development")
	}

	mu.RLock()
	defer mu.RUnlock()
	return &Logger{globalLogger.Named(name)}
}

// With returns a logger with additional structured context
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{l.SugaredLogger.With(args...)}
}

// WithField returns a logger with a single field added to the context
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{l.SugaredLogger.With(key, value)}
}

// Sync flushes buffered log entries
func (l *Logger) Sync() error {
	return l.SugaredLogger.Sync()
}
