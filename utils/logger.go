package utils

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// InfoLogger logs informational messages
	InfoLogger *log.Logger
	// ErrorLogger logs error messages
	ErrorLogger *log.Logger
	// DebugLogger logs debug messages
	DebugLogger *log.Logger
)

// LogOptions controls where and how the log files rotate.
type LogOptions struct {
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Debug      bool
}

func rotatingFile(dir, name string, opts LogOptions) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}
}

// InitLogger initializes the loggers
func InitLogger(opts LogOptions) error {
	logsDir := opts.Dir
	if logsDir == "" {
		logsDir = "logs"
	}
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %v", err)
	}

	flags := log.Ldate | log.Ltime | log.Lshortfile
	InfoLogger = log.New(rotatingFile(logsDir, "info.log", opts), "INFO: ", flags)
	ErrorLogger = log.New(rotatingFile(logsDir, "error.log", opts), "ERROR: ", flags)
	if opts.Debug {
		DebugLogger = log.New(rotatingFile(logsDir, "debug.log", opts), "DEBUG: ", flags)
	}

	return nil
}

// LogInfo logs an informational message
func LogInfo(format string, v ...interface{}) {
	if InfoLogger != nil {
		InfoLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// LogError logs an error message
func LogError(format string, v ...interface{}) {
	if ErrorLogger != nil {
		ErrorLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// LogDebug logs a debug message
func LogDebug(format string, v ...interface{}) {
	if DebugLogger != nil {
		DebugLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// LogSecurity records a rejected callback or other security event. These
// land in the error log so alerting on it picks them up.
func LogSecurity(format string, v ...interface{}) {
	if ErrorLogger != nil {
		ErrorLogger.Output(2, "SECURITY: "+fmt.Sprintf(format, v...))
	}
}

// LogRequest logs one served request.
func LogRequest(requestID, method, path, ip string, status int, duration time.Duration) {
	LogInfo("Request %s: %s %s from %s - Status: %d - Duration: %v", requestID, method, path, ip, status, duration)
}

// LogErrorWithStack logs an error with stack trace
func LogErrorWithStack(err error, stack []byte) {
	if ErrorLogger != nil {
		ErrorLogger.Printf("Error: %v\nStack Trace:\n%s", err, stack)
	}
}
