/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package log

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level defines a log level for logging messages.
type Level int

// Log levels.
const (
	DEBUG   = Level(zapcore.DebugLevel)
	INFO    = Level(zapcore.InfoLevel)
	WARNING = Level(zapcore.WarnLevel)
	ERROR   = Level(zapcore.ErrorLevel)
	PANIC   = Level(zapcore.PanicLevel)
	FATAL   = Level(zapcore.FatalLevel)

	minLogLevel = DEBUG
)

const (
	defaultLevel      = INFO
	defaultModuleName = ""
	callerSkip        = 1
)

// String returns the string representation of the given log level.
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARN"
	case ERROR:
		return "ERROR"
	case PANIC:
		return "PANIC"
	case FATAL:
		return "FATAL"
	default:
		return fmt.Sprintf("Level(%d)", l)
	}
}

// ParseLevel returns the level from the given string.
func ParseLevel(level string) (Level, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARNING, nil
	case "ERROR":
		return ERROR, nil
	case "PANIC":
		return PANIC, nil
	case "FATAL":
		return FATAL, nil
	default:
		return ERROR, errors.New("logger: invalid log level")
	}
}

var levels = newModuleLevels() //nolint:gochecknoglobals

// Log is a structured, leveled logger bound to a module name.
type Log struct {
	instance *zap.Logger
	module   string
	stdOut   zapcore.WriteSyncer
	stdErr   zapcore.WriteSyncer
	fields   []zap.Field
}

// Option is a logger option.
type Option func(l *Log)

// WithStdOut sets the output for logs of type DEBUG, INFO, and WARN.
func WithStdOut(stdOut zapcore.WriteSyncer) Option {
	return func(l *Log) {
		l.stdOut = stdOut
	}
}

// WithStdErr sets the output for logs of type ERROR, PANIC, and FATAL.
func WithStdErr(stdErr zapcore.WriteSyncer) Option {
	return func(l *Log) {
		l.stdErr = stdErr
	}
}

// WithFields sets fields that are added to every log entry.
func WithFields(fields ...zap.Field) Option {
	return func(l *Log) {
		l.fields = fields
	}
}

// New returns a logger for the given module. The log level of each module
// may be set individually with SetLevel or SetSpec.
func New(module string, opts ...Option) *Log {
	l := &Log{
		module: module,
		stdOut: os.Stdout,
		stdErr: os.Stderr,
	}

	for _, opt := range opts {
		opt(l)
	}

	l.initialize()

	return l
}

func (l *Log) initialize() {
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName: func(moduleName string, encoder zapcore.PrimitiveArrayEncoder) {
			encoder.AppendString(fmt.Sprintf("[%s]", moduleName))
		},
	})

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(l.stdErr),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= zapcore.ErrorLevel && levels.isEnabled(l.module, Level(lvl))
			}),
		),
		zapcore.NewCore(encoder, zapcore.Lock(l.stdOut),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl < zapcore.ErrorLevel && levels.isEnabled(l.module, Level(lvl))
			}),
		),
	)

	l.instance = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(callerSkip)).
		Named(l.module).With(l.fields...)
}

// Debug logs a message at DEBUG level.
func (l *Log) Debug(msg string, fields ...zap.Field) {
	l.instance.Debug(msg, fields...)
}

// Info logs a message at INFO level.
func (l *Log) Info(msg string, fields ...zap.Field) {
	l.instance.Info(msg, fields...)
}

// Warn logs a message at WARN level.
func (l *Log) Warn(msg string, fields ...zap.Field) {
	l.instance.Warn(msg, fields...)
}

// Error logs a message at ERROR level.
func (l *Log) Error(msg string, fields ...zap.Field) {
	l.instance.Error(msg, fields...)
}

// Panic logs a message, then panics.
func (l *Log) Panic(msg string, fields ...zap.Field) {
	l.instance.Panic(msg, fields...)
}

// Fatal logs a message, then calls os.Exit(1).
func (l *Log) Fatal(msg string, fields ...zap.Field) {
	l.instance.Fatal(msg, fields...)
}

// IsEnabled returns true if the given log level is enabled for this module.
func (l *Log) IsEnabled(level Level) bool {
	return levels.isEnabled(l.module, level)
}

// SetLevel sets the log level for the given module.
func SetLevel(module string, level Level) {
	levels.Set(module, level)
}

// SetDefaultLevel sets the default log level.
func SetDefaultLevel(level Level) {
	levels.Set(defaultModuleName, level)
}

// GetLevel returns the log level for the given module.
func GetLevel(module string) Level {
	return levels.Get(module)
}

// SetSpec sets the log levels of individual modules as well as the default
// log level. The format of the spec is:
//
//	module1=level1:module2=level2:defaultLevel
//
// Example: outbox=debug:httpsig=warning:info
func SetSpec(spec string) error {
	defaultLogLevel := minLogLevel - 1

	var pairs []moduleLevelPair

	for _, part := range strings.Split(spec, ":") {
		if strings.Contains(part, "=") {
			moduleAndLevel := strings.Split(part, "=")

			level, err := ParseLevel(moduleAndLevel[1])
			if err != nil {
				return err
			}

			pairs = append(pairs, moduleLevelPair{moduleAndLevel[0], level})
		} else {
			if defaultLogLevel >= minLogLevel {
				return errors.New("multiple default values found")
			}

			level, err := ParseLevel(part)
			if err != nil {
				return err
			}

			defaultLogLevel = level
		}
	}

	if defaultLogLevel >= minLogLevel {
		levels.Set(defaultModuleName, defaultLogLevel)
	} else {
		levels.Set(defaultModuleName, INFO)
	}

	for _, pair := range pairs {
		levels.Set(pair.module, pair.logLevel)
	}

	return nil
}

type moduleLevelPair struct {
	module   string
	logLevel Level
}

type moduleLevels struct {
	levels  map[string]Level
	rwmutex sync.RWMutex
}

func newModuleLevels() *moduleLevels {
	return &moduleLevels{levels: make(map[string]Level)}
}

func (l *moduleLevels) Get(module string) Level {
	l.rwmutex.RLock()
	defer l.rwmutex.RUnlock()

	level, exists := l.levels[module]
	if !exists {
		level, exists = l.levels[defaultModuleName]
		if !exists {
			return defaultLevel
		}
	}

	return level
}

func (l *moduleLevels) Set(module string, level Level) {
	l.rwmutex.Lock()
	l.levels[module] = level
	l.rwmutex.Unlock()
}

func (l *moduleLevels) isEnabled(module string, level Level) bool {
	return level >= l.Get(module)
}
