// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package sampledlogger rate-limits repetitive log entries.
package sampledlogger

import (
	"sync"
	"time"

	"go.uber.org/uhttp/internal/clock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes at most one entry per interval. Entries dropped in between
// are counted and reported on the next entry that is written. It is safe
// for concurrent use.
type Logger struct {
	logger   *zap.Logger
	clock    clock.Clock
	interval time.Duration

	mu         sync.Mutex
	last       time.Time
	suppressed int
}

// New builds a Logger writing to logger.
func New(logger *zap.Logger, interval time.Duration, c clock.Clock) *Logger {
	return &Logger{logger: logger, clock: c, interval: interval}
}

func (l *Logger) log(level zapcore.Level, msg string, fields []zap.Field) {
	now := l.clock.Now()

	l.mu.Lock()
	if !l.last.IsZero() && now.Sub(l.last) < l.interval {
		l.suppressed++
		l.mu.Unlock()
		return
	}
	suppressed := l.suppressed
	l.last = now
	l.suppressed = 0
	l.mu.Unlock()

	if ce := l.logger.Check(level, msg); ce != nil {
		if suppressed > 0 {
			fields = append(fields, zap.Int("suppressed", suppressed))
		}
		ce.Write(fields...)
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.log(zapcore.DebugLevel, msg, fields)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.log(zapcore.WarnLevel, msg, fields)
}

// Error logs at error level.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.log(zapcore.ErrorLevel, msg, fields)
}
