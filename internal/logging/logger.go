package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

const timeLayout = "2006-01-02 15:04:05"

var levelTags = map[Level]*color.Color{
	LevelDebug: color.New(color.FgHiBlack),
	LevelInfo:  color.New(color.FgCyan),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed, color.Bold),
}

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// Logger writes leveled key/value lines.
type Logger struct {
	mu    sync.Mutex
	out   *log.Logger
	level Level
	now   func() time.Time
}

// New creates a logger writing to out at or above level.
func New(out io.Writer, level Level) *Logger {
	return &Logger{
		out:   log.New(out, "", 0),
		level: level,
		now:   time.Now,
	}
}

// Default logs to stderr at info level.
func Default() *Logger {
	return New(os.Stderr, LevelInfo)
}

// ParseLevel maps a config value to a Level, defaulting to info.
func ParseLevel(value string) Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetLevel changes the minimum level.
func (logger *Logger) SetLevel(level Level) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	logger.level = level
}

func (logger *Logger) Debug(msg string, keyvals ...any) { logger.log(LevelDebug, msg, keyvals) }
func (logger *Logger) Info(msg string, keyvals ...any)  { logger.log(LevelInfo, msg, keyvals) }
func (logger *Logger) Warn(msg string, keyvals ...any)  { logger.log(LevelWarn, msg, keyvals) }
func (logger *Logger) Error(msg string, keyvals ...any) { logger.log(LevelError, msg, keyvals) }

func (logger *Logger) log(level Level, msg string, keyvals []any) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if level < logger.level {
		return
	}
	tag := levelTags[level].Sprintf("[%s]", levelNames[level])
	logger.out.Printf("%s %s %s%s", logger.now().Format(timeLayout), tag, msg, formatKeyvals(keyvals))
}

func formatKeyvals(keyvals []any) string {
	if len(keyvals) == 0 {
		return ""
	}
	var builder strings.Builder
	for index := 0; index < len(keyvals); index += 2 {
		builder.WriteByte(' ')
		if index+1 >= len(keyvals) {
			fmt.Fprintf(&builder, "%v=<missing>", keyvals[index])
			break
		}
		value := fmt.Sprint(keyvals[index+1])
		if strings.ContainsAny(value, " =\"") {
			value = fmt.Sprintf("%q", value)
		}
		fmt.Fprintf(&builder, "%v=%s", keyvals[index], value)
	}
	return builder.String()
}
