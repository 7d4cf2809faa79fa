package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel string

const (
	FatalLevel    = "fatal"
	ErrorLevel    = "error"
	WarningLevel  = "warn"
	DebugLevel    = "debug"
	InfoLevel     = "info"
	TraceLevel    = "trace"
	DisabledLevel = "disabled"
)

var levelmap = map[LogLevel]int{
	TraceLevel:    5,
	DebugLevel:    4,
	InfoLevel:     3,
	WarningLevel:  2,
	ErrorLevel:    1,
	FatalLevel:    0,
	DisabledLevel: -1,
}

var logfFuncMap = map[LogLevel]func(msg string, args ...interface{}){
	TraceLevel:   Tracef,
	DebugLevel:   Debugf,
	InfoLevel:    Infof,
	WarningLevel: Warnf,
	ErrorLevel:   Errorf,
	FatalLevel:   Fatalf,
}

var logFuncMap = map[LogLevel]func(args ...interface{}){
	TraceLevel:   Trace,
	DebugLevel:   Debug,
	InfoLevel:    Info,
	WarningLevel: Warn,
	ErrorLevel:   Error,
	FatalLevel:   Fatal,
}

// Level gating is done here, zap only formats and writes.
type logWrapper struct {
	mu     sync.RWMutex
	sugar  *zap.SugaredLogger
	level  LogLevel
	closer func() error
}

func (l *logWrapper) enabled(level LogLevel) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return ShouldLog(level, l.level)
}

func (l *logWrapper) logger() *zap.SugaredLogger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sugar
}

func (l *logWrapper) Println(level LogLevel, args ...any) {
	if !l.enabled(level) {
		return
	}
	l.write(level, strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

func (l *logWrapper) Printf(level LogLevel, format string, args ...any) {
	if !l.enabled(level) {
		return
	}
	l.write(level, fmt.Sprintf(format, args...))
}

func (l *logWrapper) write(level LogLevel, msg string) {
	sugar := l.logger()
	switch level {
	case TraceLevel, DebugLevel:
		sugar.Debug(msg)
	case InfoLevel:
		sugar.Info(msg)
	case WarningLevel:
		sugar.Warn(msg)
	case ErrorLevel, FatalLevel:
		sugar.Error(msg)
	}
}

var std = &logWrapper{level: InfoLevel}

func init() {
	std.sugar = newConsoleLogger(os.Stdout).Sugar()
}

func newConsoleLogger(out zapcore.WriteSyncer) *zap.Logger {
	encoder := zapcore.NewConsoleEncoder(encoderConfig())
	core := zapcore.NewCore(encoder, zapcore.Lock(out), zapcore.DebugLevel)
	return zap.New(core)
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " "
	return cfg
}

func SetLevel(loglevel LogLevel) error {
	_, ok := levelmap[loglevel]
	if !ok {
		return fmt.Errorf("No such log level %s", loglevel)
	}

	std.mu.Lock()
	std.level = loglevel
	std.mu.Unlock()
	return nil
}

func GetLevel() LogLevel {
	std.mu.RLock()
	defer std.mu.RUnlock()
	return std.level
}

func ValidLogLevel(level LogLevel) bool {
	_, ok := levelmap[level]
	return ok
}

func ShouldLog(logLevel, enabled LogLevel) bool {
	if !ValidLogLevel(logLevel) || !ValidLogLevel(enabled) {
		return false
	}
	return levelmap[logLevel] <= levelmap[enabled]
}

func Log(level LogLevel, msg string, args ...interface{}) {
	if ValidLogLevel(level) {
		if len(args) > 0 {
			logfFuncMap[level](msg, args...)
		} else {
			logFuncMap[level](msg)
		}
	}
}

func Trace(args ...interface{}) {
	std.Println(TraceLevel, args...)
}

func Debug(args ...interface{}) {
	std.Println(DebugLevel, args...)
}

func Info(args ...interface{}) {
	std.Println(InfoLevel, args...)
}

func Warn(args ...interface{}) {
	std.Println(WarningLevel, args...)
}

func Error(args ...interface{}) {
	std.Println(ErrorLevel, args...)
}

func Fatal(args ...interface{}) {
	std.Println(FatalLevel, args...)
	Sync()
	debug.PrintStack()
	os.Exit(1)
}

func Tracef(format string, args ...interface{}) {
	std.Printf(TraceLevel, format, args...)
}

func Debugf(format string, args ...interface{}) {
	std.Printf(DebugLevel, format, args...)
}

func Infof(format string, args ...interface{}) {
	std.Printf(InfoLevel, format, args...)
}

func Warnf(format string, args ...interface{}) {
	std.Printf(WarningLevel, format, args...)
}

func Errorf(format string, args ...interface{}) {
	std.Printf(ErrorLevel, format, args...)
}

func Fatalf(format string, args ...interface{}) {
	std.Printf(FatalLevel, format, args...)
	Sync()
	debug.PrintStack()
	os.Exit(1)
}

// Flush buffered log entries.
func Sync() {
	std.mu.RLock()
	defer std.mu.RUnlock()
	std.sugar.Sync()
}

// Close file outputs opened by Setup and fall back to stdout.
func Close() error {
	std.mu.Lock()
	defer std.mu.Unlock()

	std.sugar.Sync()
	std.sugar = newConsoleLogger(os.Stdout).Sugar()

	if std.closer == nil {
		return nil
	}
	err := std.closer()
	std.closer = nil
	return err
}

type writeFunc func([]byte) (int, error)

func (fn writeFunc) Write(data []byte) (int, error) {
	return fn(data)
}

func NewLogWriter(level LogLevel) io.Writer {
	return writeFunc(func(data []byte) (int, error) {
		Log(level, "%s", strings.TrimRight(string(data), "\n"))
		return len(data), nil
	})
}

func DebugError(err error) {
	indent := 1

	Debug(err.Error())

	for {
		if err = errors.Unwrap(err); err == nil {
			break
		}

		Debugf("| %d: %s", indent, err.Error())
		indent += 1
	}
}
