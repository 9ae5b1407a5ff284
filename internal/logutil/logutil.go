// Copyright 2026 The CRDTEngine Authors
// This file is part of crdtengine.
//
// crdtengine is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// crdtengine is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with crdtengine. If not, see <http://www.gnu.org/licenses/>.

// Package logutil is a thin wrapper around zap: a small interface callers
// code against, a process-wide root logger, and per-component children
// that tag every line with their name.
package logutil

import (
	"go.uber.org/zap"
)

// Logger is the minimal structured-logging surface components depend on.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l zapLogger) Info(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l zapLogger) Warn(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l zapLogger) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }

var root *zap.Logger

func init() {
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	root = l
}

// SetRoot replaces the process-wide root logger (embedders wiring their own
// zap config call this once at startup).
func SetRoot(l *zap.Logger) { root = l }

// New returns a child logger tagged with component, e.g. New("graph"),
// New("sync").
func New(component string) Logger {
	return zapLogger{s: root.Sugar().Named(component)}
}

// Nop returns a logger that discards everything, for tests.
func Nop() Logger {
	return zapLogger{s: zap.NewNop().Sugar()}
}
