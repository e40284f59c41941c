package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a LOG_LEVEL value to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Logger writes category-tagged lines: "2006-01-02 15:04:05 [LEVEL] [CATEGORY] message".
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	level  Level
	colors map[Level]*color.Color
	exit   func(int)
}

// NewLogger returns a stdout logger with the level taken from LOG_LEVEL.
func NewLogger() *Logger {
	return New(os.Stdout, ParseLevel(os.Getenv("LOG_LEVEL")))
}

// New returns a logger writing to w. Colours are only emitted when w is a terminal.
func New(w io.Writer, level Level) *Logger {
	l := &Logger{
		out:   w,
		level: level,
		colors: map[Level]*color.Color{
			LevelDebug: color.New(color.FgCyan),
			LevelInfo:  color.New(color.FgGreen),
			LevelWarn:  color.New(color.FgYellow),
			LevelError: color.New(color.FgRed),
			LevelFatal: color.New(color.FgRed, color.Bold),
		},
		exit: os.Exit,
	}
	if w != os.Stdout && w != os.Stderr {
		for _, c := range l.colors {
			c.DisableColor()
		}
	}
	return l
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) Close() error {
	if f, ok := l.out.(*os.File); ok && f != os.Stdout && f != os.Stderr {
		return f.Close()
	}
	return nil
}

func (l *Logger) log(level Level, category, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	tag := l.colors[level].Sprintf("[%s]", level)
	fmt.Fprintf(l.out, "%s %s [%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), tag, category, message)
}

func (l *Logger) Debug(category, message string) { l.log(LevelDebug, category, message) }
func (l *Logger) Info(category, message string)  { l.log(LevelInfo, category, message) }
func (l *Logger) Warn(category, message string)  { l.log(LevelWarn, category, message) }
func (l *Logger) Error(category, message string) { l.log(LevelError, category, message) }

// Fatal logs and terminates the process.
func (l *Logger) Fatal(category, message string) {
	l.log(LevelFatal, category, message)
	l.exit(1)
}

func (l *Logger) LogProcess(process, message string) {
	l.Info(process, message)
}

func (l *Logger) LogDatabase(operation, database, message string) {
	l.Info("DB:"+strings.ToUpper(database), fmt.Sprintf("%s - %s", operation, message))
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.Info("API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
}

func (l *Logger) LogKafka(operation, topic, message string) {
	l.Info("KAFKA", fmt.Sprintf("%s [%s] %s", operation, topic, message))
}

func (l *Logger) LogSecurity(event, message string) {
	l.Warn("SECURITY", fmt.Sprintf("%s - %s", event, message))
}

func (l *Logger) LogOrder(operation, orderID, message string) {
	l.Info("ORDER", fmt.Sprintf("%s [%s] %s", operation, orderID, message))
}

func (l *Logger) LogInventory(operation, lessonID, message string) {
	l.Info("INVENTORY", fmt.Sprintf("%s [%s] %s", operation, lessonID, message))
}
