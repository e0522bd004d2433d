// Package applog provides the shared application logger.
//
// Log output goes to a rotated file so that the interactive menu stays
// readable. Setting TERMITOOL_DEBUG mirrors all records to stderr.
package applog

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *logrus.Logger
	once   sync.Once

	logDir = defaultLogDir()
)

// Fields is an alias for logrus.Fields.
type Fields = logrus.Fields

// Init sets the directory for log files. It must be called before the first
// log call to take effect; later calls have no effect.
func Init(dir string) *logrus.Logger {
	if dir != "" {
		logDir = dir
	}
	return Logger()
}

// Logger returns the shared logger, creating it on first use.
func Logger() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.DebugLevel)

		logger.SetFormatter(&formatter.Formatter{
			NoColors:        true,
			TimestampFormat: "02 Jan 06 - 15:04:05",
			HideKeys:        false,
			CallerFirst:     true,
			CustomCallerFormatter: func(f *runtime.Frame) string {
				s := strings.Split(f.Function, ".")
				funcName := s[len(s)-1]
				return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
			},
		})

		var writers []io.Writer

		if os.Getenv("APP_ENV") != "test" {
			writers = append(writers, &lumberjack.Logger{
				Filename:   filepath.Join(logDir, fmt.Sprintf("termitool-%s.log", time.Now().Format("2006-01-02"))),
				LocalTime:  true,
				Compress:   true,
				MaxSize:    50,
				MaxAge:     14,
				MaxBackups: 3,
			})
		}
		if os.Getenv("TERMITOOL_DEBUG") != "" {
			writers = append(writers, os.Stderr)
		}

		if len(writers) == 0 {
			logger.SetOutput(io.Discard)
		} else {
			logger.SetOutput(io.MultiWriter(writers...))
		}
		logger.SetReportCaller(true)
	})

	return logger
}

func defaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "termi_tool", "logs")
	}
	return filepath.Join(home, ".termi_tool", "logs")
}

// Debug logs a debug record with the given fields.
func Debug(fields Fields, msg string) {
	if fields == nil {
		fields = Fields{}
	}
	Logger().WithFields(fields).Debug(msg)
}

// Info logs an info record with the given fields.
func Info(fields Fields, msg string) {
	if fields == nil {
		fields = Fields{}
	}
	Logger().WithFields(fields).Info(msg)
}

// Warn logs a warning record with the given fields.
func Warn(fields Fields, msg string) {
	if fields == nil {
		fields = Fields{}
	}
	Logger().WithFields(fields).Warn(msg)
}

// Error logs an error record with the given fields.
func Error(fields Fields, msg string) {
	if fields == nil {
		fields = Fields{}
	}
	Logger().WithFields(fields).Error(msg)
}

// ErrorWithTraceID logs an error record tagged with a generated trace ID and
// returns that ID so it can be shown to the user.
func ErrorWithTraceID(fields Fields, msg string) string {
	traceID := "unknown"
	if id, err := uuid.NewRandom(); err == nil {
		traceID = id.String()
	} else {
		Error(Fields{"error": err.Error()}, "failed to generate trace ID")
	}

	if fields == nil {
		fields = Fields{}
	}
	fields["trace_id"] = traceID
	Logger().WithFields(fields).Error(msg)

	return traceID
}

// Fatal logs the record and exits the process.
func Fatal(fields Fields, msg string) {
	if fields == nil {
		fields = Fields{}
	}
	Logger().WithFields(fields).Fatal(msg)
}
