// Package logger builds the process-wide zerolog logger: console output
// for interactive sessions, optionally teed into a per-session log file.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger construction.
type Options struct {
	Verbose bool
	// FilePath, when set, appends JSON log lines to the file in
	// addition to the console stream.
	FilePath string
}

// New builds the logger. The returned closer is non-nil only when a log
// file was opened.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}

	var (
		out    io.Writer = console
		closer io.Closer
	)
	if opts.FilePath != "" {
		if dir := filepath.Dir(opts.FilePath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return zerolog.Logger{}, nil, fmt.Errorf("create log directory %s: %w", dir, err)
			}
		}
		file, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("open log file %s: %w", opts.FilePath, err)
		}
		out = zerolog.MultiLevelWriter(console, file)
		closer = file
	}

	log := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return log, closer, nil
}

// SessionFile returns the conventional log file name for one run, e.g.
// logs/00700.HK_30m_2024-06-21.log.
func SessionFile(dir, symbol, interval string) string {
	name := fmt.Sprintf("%s_%s_%s.log", symbol, interval, time.Now().Format("2006-01-02"))
	return filepath.Join(dir, name)
}
