package utils

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger = logrus.New()

// InitLogger configures the shared logger. In production the output goes to
// logs/app.log under the project root, falling back to stdout when the file
// cannot be opened.
func InitLogger(env, level string) {
	Logger.SetReportCaller(true)

	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
		PrettyPrint:     false,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			filename := filepath.Base(f.File)
			return "", filename + ":" + strconv.Itoa(f.Line)
		},
	})

	Logger.SetLevel(ParseLevel(level))

	if env != "production" {
		Logger.SetOutput(os.Stdout)
		return
	}

	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		Logger.SetOutput(os.Stdout)
		Logger.Warn("Failed to get caller information, using stdout instead")
		return
	}
	projectRoot, err := filepath.Abs(filepath.Join(filepath.Dir(currentFile), "../.."))
	if err != nil {
		Logger.SetOutput(os.Stdout)
		Logger.WithError(err).Warn("Failed to resolve project root path, using stdout instead")
		return
	}

	logDir := filepath.Join(projectRoot, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		Logger.SetOutput(os.Stdout)
		Logger.WithError(err).Warn("Failed to create logs directory, using stdout instead")
		return
	}

	file, err := os.OpenFile(filepath.Join(logDir, "app.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		Logger.SetOutput(os.Stdout)
		Logger.WithError(err).Warn("Failed to log to file, using stdout instead")
		return
	}
	Logger.SetOutput(file)
}

// ParseLevel maps LOG_LEVEL values onto logrus levels, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// SilenceLogger discards log output. Tests call it to keep output readable.
func SilenceLogger() {
	Logger.SetOutput(io.Discard)
}
