// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package log wraps a zap.SugaredLogger behind package-level helpers so call
// sites across the agent can write log.Infof/log.Warnf without threading a
// logger value through every constructor.
package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	sugared = zap.NewNop().Sugar()
)

// SetLevel swaps the global logger for one at the given level, writing to
// stderr with the agent's standard console encoding. level is one of
// "debug", "info", "warn", "error".
func SetLevel(level string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	mu.Lock()
	sugared = logger.Sugar()
	mu.Unlock()
	return nil
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugared
}

// Debugf logs at debug level.
func Debugf(template string, args ...interface{}) { get().Debugf(template, args...) }

// Infof logs at info level.
func Infof(template string, args ...interface{}) { get().Infof(template, args...) }

// Warnf logs at warn level.
func Warnf(template string, args ...interface{}) { get().Warnf(template, args...) }

// Errorf logs at error level.
func Errorf(template string, args ...interface{}) { get().Errorf(template, args...) }

// With returns a child logger with the given structured fields, e.g.
// log.With("protocol", "snmp", "host", hostname).Infof("starting cycle").
func With(args ...interface{}) *zap.SugaredLogger {
	return get().With(args...)
}
