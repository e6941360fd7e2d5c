package logger

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Hook is the "custom callback" sink form of §4.10, invoked for every
// entry at or above the logger's minimum level, in addition to
// whatever io.Writer is configured.
type Hook func(Entry)

// Logger is a minimum-level-filtered, mutex-guarded sink over a
// logrus.Logger, the Go analogue of nabbar-golib/logger.Logger.
type Logger struct {
	mu    sync.Mutex
	base  *logrus.Logger
	min   Level
	hooks []Hook
}

// New builds a Logger writing to out at minLevel. A nil out discards
// output from the underlying logrus.Logger; hooks still fire.
func New(out io.Writer, minLevel Level) *Logger {
	l := logrus.New()
	if out != nil {
		l.SetOutput(out)
	} else {
		l.SetOutput(io.Discard)
	}
	l.SetLevel(minLevel.logrus())
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &Logger{base: l, min: minLevel}
}

// AddHook registers a custom callback sink, run for every entry that
// passes the minimum-level filter.
func (l *Logger) AddHook(h Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, h)
}

// SetMinLevel adjusts the minimum level filter at runtime.
func (l *Logger) SetMinLevel(lvl Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.min = lvl
	l.base.SetLevel(lvl.logrus())
}

func (l *Logger) log(lvl Level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	if l.min == NilLevel || lvl > l.min {
		l.mu.Unlock()
		return
	}
	hooks := append([]Hook(nil), l.hooks...)
	l.mu.Unlock()

	if lvl != NilLevel {
		entry := l.base.WithFields(logrus.Fields(fields))
		entry.Log(lvl.logrus(), msg)
	}
	for _, h := range hooks {
		h(Entry{Level: lvl, Message: msg, Fields: fields})
	}
}

func (l *Logger) Debug(msg string, fields map[string]interface{}) { l.log(DebugLevel, msg, fields) }
func (l *Logger) Info(msg string, fields map[string]interface{})  { l.log(InfoLevel, msg, fields) }
func (l *Logger) Warn(msg string, fields map[string]interface{})  { l.log(WarnLevel, msg, fields) }
func (l *Logger) Error(msg string, fields map[string]interface{}) { l.log(ErrorLevel, msg, fields) }

var defaultLogger atomic.Value

func init() {
	defaultLogger.Store(New(nil, InfoLevel))
}

// Default returns the process-wide shared Logger instance.
func Default() *Logger {
	return defaultLogger.Load().(*Logger)
}

// SetDefault atomically swaps the process-wide shared Logger.
func SetDefault(l *Logger) {
	defaultLogger.Store(l)
}
