// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.27
//

package goppp

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop()

// Initialize the package logger. Levels: debug, info, warn, error
func InitLogger(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("InitLogger() failed, err=%w", err)
	}
	var cfg zap.Config
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %w", err)
	}
	logger = l
	return nil
}

func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// Package logger
func L() *zap.Logger {
	return logger
}

// Flush buffered log entries
func Sync() {
	_ = logger.Sync()
}

// Logger of one epoch: entries go to the base logger and to a buffer
type epochLogger struct {
	*zap.Logger
	buf *bytes.Buffer
}

func newEpochLogger(base *zap.Logger, t GTime) *epochLogger {
	buf := &bytes.Buffer{}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.CallerKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(buf), zapcore.DebugLevel)
	l := base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, core)
	})).With(zap.Stringer("epoch", t))
	return &epochLogger{Logger: l, buf: buf}
}

// Text captured so far
func (l *epochLogger) Text() string {
	return l.buf.String()
}
