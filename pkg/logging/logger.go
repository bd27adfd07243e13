package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ANSI color codes
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
	Gray    = "\033[90m"

	BrightRed    = "\033[91m"
	BrightYellow = "\033[93m"
	BrightBlue   = "\033[94m"
	BrightCyan   = "\033[96m"
	BrightWhite  = "\033[97m"
)

// ColoredLogger wraps zap.Logger with colored output
type ColoredLogger struct {
	*zap.Logger
	enableColors bool
}

// Component represents different parts of the runtime for color coding
type Component string

const (
	ComponentRuntime   Component = "RUNTIME"
	ComponentEngine    Component = "ENGINE"
	ComponentCache     Component = "CACHE"
	ComponentChannels  Component = "CHANNELS"
	ComponentScheduler Component = "SCHEDULER"
)

// getComponentColor returns the color for a specific component
func getComponentColor(component Component) string {
	switch component {
	case ComponentRuntime:
		return BrightBlue
	case ComponentEngine:
		return BrightCyan
	case ComponentCache:
		return BrightYellow
	case ComponentChannels:
		return Green
	case ComponentScheduler:
		return Magenta
	default:
		return White
	}
}

// getLevelColor returns the color for a log level
func getLevelColor(level zapcore.Level) string {
	switch level {
	case zapcore.DebugLevel:
		return Gray
	case zapcore.InfoLevel:
		return BrightWhite
	case zapcore.WarnLevel:
		return BrightYellow
	case zapcore.ErrorLevel:
		return BrightRed
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return Red
	default:
		return White
	}
}

// coloredConsoleEncoder creates a custom encoder with colors
func coloredConsoleEncoder(enableColors bool) zapcore.Encoder {
	config := zap.NewDevelopmentEncoderConfig()
	config.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		timeStr := t.Format("2006-01-02T15:04:05.000Z0700")
		if enableColors {
			enc.AppendString(fmt.Sprintf("%s%s%s", Dim, timeStr, Reset))
		} else {
			enc.AppendString(timeStr)
		}
	}

	config.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		levelStr := strings.ToUpper(level.String())
		if enableColors {
			color := getLevelColor(level)
			enc.AppendString(fmt.Sprintf("%s%s%-5s%s", color, Bold, levelStr, Reset))
		} else {
			enc.AppendString(fmt.Sprintf("%-5s", levelStr))
		}
	}

	config.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		if enableColors {
			enc.AppendString(fmt.Sprintf("%s%s%s", Dim, caller.TrimmedPath(), Reset))
		} else {
			enc.AppendString(caller.TrimmedPath())
		}
	}

	return zapcore.NewConsoleEncoder(config)
}

// NewColoredLogger creates a new colored logger
func NewColoredLogger(component Component, enableColors bool) (*ColoredLogger, error) {
	encoder := coloredConsoleEncoder(enableColors)

	core := zapcore.NewCore(
		encoder,
		zapcore.AddSync(os.Stdout),
		zapcore.DebugLevel,
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return &ColoredLogger{
		Logger:       logger,
		enableColors: enableColors,
	}, nil
}

// NewDefaultLogger creates a logger with default settings and colors always enabled
func NewDefaultLogger(component Component) (*ColoredLogger, error) {
	return NewColoredLogger(component, true)
}

// Component-specific logging methods
func (l *ColoredLogger) ComponentInfo(component Component, msg string, fields ...zap.Field) {
	l.Info(l.prefix(component, msg), fields...)
}

func (l *ColoredLogger) ComponentWarn(component Component, msg string, fields ...zap.Field) {
	l.Warn(l.prefix(component, msg), fields...)
}

func (l *ColoredLogger) ComponentError(component Component, msg string, fields ...zap.Field) {
	l.Error(l.prefix(component, msg), fields...)
}

func (l *ColoredLogger) ComponentDebug(component Component, msg string, fields ...zap.Field) {
	l.Debug(l.prefix(component, msg), fields...)
}

func (l *ColoredLogger) prefix(component Component, msg string) string {
	if l.enableColors {
		color := getComponentColor(component)
		return fmt.Sprintf("%s[%s]%s %s", color, component, Reset, msg)
	}
	return fmt.Sprintf("[%s] %s", component, msg)
}
