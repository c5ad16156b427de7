package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	entry *logrus.Entry
}

var Default = New()

func New() *Logger {
	return NewWithOutput(os.Stdout)
}

// NewWithOutput builds a logger writing text lines with full timestamps to w
func NewWithOutput(w io.Writer) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	base.SetLevel(logrus.InfoLevel)
	return &Logger{entry: logrus.NewEntry(base)}
}

// SetLevel accepts logrus level names (debug, info, warn, error)
func (l *Logger) SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.entry.Logger.SetLevel(lvl)
	return nil
}

// With returns a child logger carrying an extra field
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

func (l *Logger) Info(format string, v ...any) {
	l.entry.Infof(format, v...)
}

func (l *Logger) Warn(format string, v ...any) {
	l.entry.Warnf(format, v...)
}

func (l *Logger) Error(format string, v ...any) {
	l.entry.Errorf(format, v...)
}

func (l *Logger) Debug(format string, v ...any) {
	l.entry.Debugf(format, v...)
}

func Info(format string, v ...any) {
	Default.Info(format, v...)
}

func Warn(format string, v ...any) {
	Default.Warn(format, v...)
}

func Error(format string, v ...any) {
	Default.Error(format, v...)
}

func Debug(format string, v ...any) {
	Default.Debug(format, v...)
}
