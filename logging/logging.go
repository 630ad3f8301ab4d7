// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package logging builds the kernel's logger. Every subsystem takes a
// github.com/luxfi/log.Logger rather than calling a package-global
// logger, the same dependency-injection style the consensus runtime
// this kernel is modeled on uses throughout (see acceptor_group.go and
// protocol/nova/*.go in the reference pack). Fields are passed as
// alternating key/value pairs in the logger's variadic context
// arguments, which the zap-backed logger records as structured fields.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/luxfi/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvVar is the single environment variable that controls runtime log
// verbosity, per the "single log-level environment variable" contract.
const EnvVar = "UNIVEROS_LOG"

// New builds a component logger at the level named by level, or by the
// UNIVEROS_LOG environment variable when level is empty. Unrecognized
// levels fall back to info.
func New(component string, level string) log.Logger {
	if level == "" {
		level = os.Getenv(EnvVar)
	}
	return &zapLogger{base: newZap(parseLevel(level)).Sugar(), component: component}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "crit", "critical", "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func newZap(level zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		// Config.Build only fails on a bad encoder/sink name, which this
		// fixed config never produces.
		panic(err)
	}
	return logger
}

// zapLogger adapts a zap.SugaredLogger to the luxfi/log.Logger
// interface (With/New/Log/Trace/Debug/Info/Warn/Error/Crit/WriteLog/
// Enabled), mirroring the shape of the reference pack's log.NoLog.
type zapLogger struct {
	base      *zap.SugaredLogger
	component string
}

func (l *zapLogger) With(ctx ...interface{}) log.Logger {
	return &zapLogger{base: l.base.With(ctx...), component: l.component}
}

func (l *zapLogger) New(ctx ...interface{}) log.Logger { return l.With(ctx...) }

func (l *zapLogger) Log(level slog.Level, msg string, ctx ...interface{}) {
	switch {
	case level >= slog.LevelError:
		l.Error(msg, ctx...)
	case level >= slog.LevelWarn:
		l.Warn(msg, ctx...)
	case level >= slog.LevelInfo:
		l.Info(msg, ctx...)
	default:
		l.Debug(msg, ctx...)
	}
}

func (l *zapLogger) Trace(msg string, ctx ...interface{}) { l.base.Debugw(msg, ctx...) }
func (l *zapLogger) Debug(msg string, ctx ...interface{}) { l.base.Debugw(msg, ctx...) }
func (l *zapLogger) Info(msg string, ctx ...interface{})  { l.base.Infow(msg, ctx...) }
func (l *zapLogger) Warn(msg string, ctx ...interface{})  { l.base.Warnw(msg, ctx...) }
func (l *zapLogger) Error(msg string, ctx ...interface{}) { l.base.Errorw(msg, ctx...) }
func (l *zapLogger) Crit(msg string, ctx ...interface{})  { l.base.Errorw(msg, ctx...) }

func (l *zapLogger) WriteLog(level slog.Level, msg string, attrs ...any) {
	l.Log(level, msg, attrs...)
}

func (l *zapLogger) Enabled(_ context.Context, level slog.Level) bool {
	return l.base.Desugar().Core().Enabled(zapLevel(level))
}

func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	case level >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
