package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
)

var Logger = logrus.New()

// SetupLogger sends human readable logs to stderr and, when logFile is set,
// JSON logs with rotation to logFile.
func SetupLogger(level string, logFile string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}

	Logger = logrus.New()
	Logger.SetOutput(os.Stderr)
	Logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	Logger.SetLevel(lvl)

	if logFile == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0o750); err != nil {
		Logger.WithError(err).Warn("file logging disabled")
		return nil
	}

	Logger.AddHook(NewFileHook(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     30, // days
	}))
	return nil
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return Logger.WithField("component", name)
}

// FileHook writes every entry as JSON to w, independent of the console
// formatter.
type FileHook struct {
	w         io.Writer
	formatter logrus.Formatter
}

func NewFileHook(w io.Writer) *FileHook {
	return &FileHook{w: w, formatter: &logrus.JSONFormatter{}}
}

func (h *FileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *FileHook) Fire(e *logrus.Entry) error {
	line, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.w.Write(line)
	return err
}
