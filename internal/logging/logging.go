// Package logging builds the logrus logger shared by a yomu process.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/metcalfc/yomu/internal/config"
	"github.com/metcalfc/yomu/internal/filesystem"
	"github.com/metcalfc/yomu/internal/where"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Options controls where and how log entries are written.
type Options struct {
	Write bool
	Level string
	JSON  bool
	Dir   string
}

// FromConfig reads Options from viper.
func FromConfig() Options {
	return Options{
		Write: viper.GetBool(config.LogsWrite),
		Level: viper.GetString(config.LogsLevel),
		JSON:  viper.GetBool(config.LogsJSON),
	}
}

// New returns a logger writing to a dated file in opts.Dir (the state log directory by default).
// When writing is disabled every entry is discarded; the terminal belongs to the reader.
func New(opts Options) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if opts.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}

	if !opts.Write {
		logger.SetOutput(io.Discard)
		return logger, nil
	}

	dir := opts.Dir
	if dir == "" {
		dir = where.Logs()
	}
	if err := filesystem.API().MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	path := filepath.Join(dir, time.Now().Format("2006-01-02")+".log")
	f, err := filesystem.API().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(f)

	return logger, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
