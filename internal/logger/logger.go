// Package logger configures the global zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Rrens/energy-agent/internal/config"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup points the global logger at stderr (console format outside
// production) and, when cfg.File is set, a daily rotated JSON file.
// The returned closer releases the file.
func Setup(cfg config.LoggingConfig, production bool) (io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var stderr io.Writer = os.Stderr
	if !production || strings.EqualFold(cfg.Format, "console") {
		stderr = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	if cfg.File == "" {
		log.Logger = zerolog.New(stderr).With().Timestamp().Logger()
		return nopCloser{}, nil
	}

	file, err := newRotatingFile(cfg.File, cfg.MaxAge)
	if err != nil {
		return nil, err
	}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(stderr, file)).With().Timestamp().Logger()
	return file, nil
}

// ParseLevel maps a config level onto zerolog, defaulting to info
func ParseLevel(s string) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func newRotatingFile(path string, maxAge time.Duration) (*rotatelogs.RotateLogs, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}

	ext := filepath.Ext(path)
	pattern := strings.TrimSuffix(path, ext) + ".%Y%m%d" + ext

	rl, err := rotatelogs.New(pattern,
		rotatelogs.WithLinkName(path),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(maxAge),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return rl, nil
}
