/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package wmlogger adapts the structured logger to the Watermill logger
// interface.
package wmlogger

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/zap"

	"github.com/fedipress/fedipress/internal/pkg/log"
)

// Module is the name of the Watermill module used for logging.
const Module = "watermill"

// Logger implements the Watermill logger adapter interface.
type Logger struct {
	logger *log.Log
	fields watermill.LogFields
}

// New returns a new Watermill logger adapter.
func New() *Logger {
	return &Logger{logger: log.New(Module)}
}

// Error logs an error.
func (l *Logger) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.Error(msg, log.WithError(err), zap.String("fields", l.asString(fields)))
}

// Info logs an informational message. Watermill is chatty at INFO, so these
// are demoted to DEBUG.
func (l *Logger) Info(msg string, fields watermill.LogFields) {
	l.Debug(msg, fields)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields watermill.LogFields) {
	if !l.logger.IsEnabled(log.DEBUG) {
		return
	}

	l.logger.Debug(msg, zap.String("fields", l.asString(fields)))
}

// Trace logs a trace message. This implementation uses a debug log for trace.
func (l *Logger) Trace(msg string, fields watermill.LogFields) {
	l.Debug(msg, fields)
}

// With returns a logger with the given context fields.
func (l *Logger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &Logger{
		logger: l.logger,
		fields: l.fields.Add(fields),
	}
}

func (l *Logger) asString(additionalFields watermill.LogFields) string {
	var msg string

	for k, v := range l.fields.Add(additionalFields) {
		if msg != "" {
			msg += ", "
		}

		var vStr string
		if stringer, ok := v.(fmt.Stringer); ok {
			vStr = stringer.String()
		} else {
			vStr = fmt.Sprintf("%v", v)
		}

		msg += fmt.Sprintf("%s=%s", k, vStr)
	}

	return msg
}
