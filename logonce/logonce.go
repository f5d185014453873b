// Package logonce logs a message the first time it is seen and drops repeats.
// Configuration problems surface every step otherwise.
package logonce

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize bounds the number of distinct messages remembered.
const DefaultSize = 512

// Logger wraps a slog.Logger with a bounded memory of already logged
// messages. Evicted messages may be logged again.
type Logger struct {
	log  *slog.Logger
	seen *lru.Cache[string, struct{}]
}

func New(log *slog.Logger, size int) *Logger {
	if log == nil {
		log = slog.Default()
	}
	if size <= 0 {
		size = DefaultSize
	}
	// lru.New only fails for non-positive sizes.
	seen, _ := lru.New[string, struct{}](size)
	return &Logger{log: log, seen: seen}
}

func (l *Logger) Warn(msg string, args ...any)  { l.emit(slog.LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.emit(slog.LevelError, msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.emit(slog.LevelInfo, msg, args) }

// Seen reports whether msg with args was already logged.
func (l *Logger) Seen(msg string, args ...any) bool {
	return l.seen.Contains(key(msg, args))
}

func (l *Logger) emit(level slog.Level, msg string, args []any) {
	k := key(msg, args)
	if ok, _ := l.seen.ContainsOrAdd(k, struct{}{}); ok {
		return
	}
	l.log.Log(context.Background(), level, msg, args...)
}

func key(msg string, args []any) string {
	if len(args) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for _, a := range args {
		fmt.Fprintf(&b, "|%v", a)
	}
	return b.String()
}
