// Package logging configures the process-wide logrus logger: text lines with
// full timestamps on stdout, optionally teed into a rotating log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const TimestampFormat = "2006-01-02 15:04:05"

type Config struct {
	Level      string // debug, info, warn, error
	File       string // empty for console only
	MaxSize    int    // megabytes before the file is rotated
	MaxBackups int
	MaxAge     int // days
	Compress   bool

	// Console defaults to os.Stdout.
	Console io.Writer
}

// Init applies cfg to the standard logrus logger. The returned closer flushes
// and closes the log file, if any.
func Init(cfg Config) (io.Closer, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}

	var (
		out    io.Writer = console
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, err
		}
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		out = io.MultiWriter(console, file)
		closer = file
	}

	logrus.SetOutput(out)
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: TimestampFormat,
		DisableColors:   cfg.File != "",
	})
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
