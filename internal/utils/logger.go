package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelError LogLevel = "error"
)

// exit is replaced in tests.
var exit = os.Exit

type LogFileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
}

type Logger struct {
	level       LogLevel
	infoLogger  *log.Logger
	errorLogger *log.Logger
	debugLogger *log.Logger
	fatalLogger *log.Logger
	file        io.Closer
	RawBodyLog  bool
}

func NewLogger(level string, rawBodyLog bool) *Logger {
	return NewFileLogger(level, rawBodyLog, nil)
}

// NewFileLogger behaves like NewLogger and additionally mirrors every line
// into a size-rotated file when opts names a path.
func NewFileLogger(level string, rawBodyLog bool, opts *LogFileOptions) *Logger {
	logLevel := parseLogLevel(level)

	var stdout, stderr io.Writer = os.Stdout, os.Stderr
	var file io.Closer

	if opts != nil && opts.Path != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    max(opts.MaxSizeMB, 1),
			MaxBackups: opts.MaxBackups,
		}
		stdout = io.MultiWriter(os.Stdout, rotator)
		stderr = io.MultiWriter(os.Stderr, rotator)
		file = rotator
	}

	flags := log.Ldate | log.Ltime | log.Lshortfile

	return &Logger{
		level:       logLevel,
		infoLogger:  log.New(stdout, "INFO: ", flags),
		errorLogger: log.New(stderr, "ERROR: ", flags),
		debugLogger: log.New(stdout, "DEBUG: ", flags),
		fatalLogger: log.New(stderr, "FATAL: ", flags),
		file:        file,
		RawBodyLog:  rawBodyLog,
	}
}

func NewDiscardLogger() *Logger {
	return &Logger{
		level:       LevelInfo,
		infoLogger:  log.New(io.Discard, "", 0),
		errorLogger: log.New(io.Discard, "", 0),
		debugLogger: log.New(io.Discard, "", 0),
		fatalLogger: log.New(io.Discard, "", 0),
	}
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *Logger) Info(reqID *string, format string, v ...any) {
	if l.level == LevelError {
		return
	}
	l.infoLogger.Output(2, withRequestID(reqID, format, v...))
}

func (l *Logger) Error(reqID *string, format string, v ...any) {
	l.errorLogger.Output(2, withRequestID(reqID, format, v...))
}

func (l *Logger) Debug(reqID *string, format string, v ...any) {
	if l.level != LevelDebug {
		return
	}
	l.debugLogger.Output(2, withRequestID(reqID, format, v...))
}

// Fatal logs at any level and exits with status 1.
func (l *Logger) Fatal(reqID *string, format string, v ...any) {
	l.fatalLogger.Output(2, withRequestID(reqID, format, v...))
	l.Close()
	exit(1)
}

func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func withRequestID(reqID *string, format string, v ...any) string {
	if reqID == nil || *reqID == "" {
		return fmt.Sprintf(format, v...)
	}
	return "[" + *reqID + "] " + fmt.Sprintf(format, v...)
}
