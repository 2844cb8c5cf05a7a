// Package logging provides the structured logger used across the bot
// controller. It wraps zap.SugaredLogger behind a small interface so call
// sites never depend on zap directly.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the structured logging surface used throughout the core.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Fatalf(template string, args ...interface{})
	// With returns a child logger carrying the given structured fields on
	// every subsequent line — used to stamp every log a Supervisor emits
	// with its bot id without threading it through every call site.
	With(keysAndValues ...interface{}) Logger
}

type zapLogger struct {
	*zap.SugaredLogger
}

func (z *zapLogger) With(keysAndValues ...interface{}) Logger {
	return &zapLogger{z.SugaredLogger.With(keysAndValues...)}
}

// Options configure NewLogger.
type Options struct {
	Level      string // debug|info|warn|error
	FilePath   string // optional; rotated via lumberjack when set
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    bool
}

// NewLogger builds the application's Logger. With FilePath set it tees JSON
// lines into a lumberjack-rotated file; Console additionally writes
// human-readable lines to stdout. Mirrors the teacher's
// commons.NewApplicationLogger() — console + rotated file sink, JSON at
// rest, level gated by config.
func NewLogger(opts Options) (Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.Set(opts.Level); err != nil {
			return nil, err
		}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core
	if opts.Console {
		consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level))
	}
	if opts.FilePath != "" {
		writer := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    firstNonZero(opts.MaxSizeMB, 100),
			MaxBackups: firstNonZero(opts.MaxBackups, 5),
			MaxAge:     firstNonZero(opts.MaxAgeDays, 14),
			Compress:   true,
		}
		jsonEncoder := zapcore.NewJSONEncoder(encoderCfg)
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(writer), level))
	}
	if len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(os.Stdout), level))
	}

	core := zapcore.NewTee(cores...)
	base := zap.New(core, zap.AddCaller())
	return &zapLogger{base.Sugar()}, nil
}

// NewApplicationLogger builds a sane console-only logger at info level. Used
// by tests and command entry points that don't need file rotation.
func NewApplicationLogger() (Logger, error) {
	return NewLogger(Options{Level: "info", Console: true})
}

func firstNonZero(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
