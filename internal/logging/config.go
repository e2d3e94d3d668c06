package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Config selects the logger's level, format and destination.
type Config struct {
	// Level is the minimum level to emit: debug, info, warn, error
	// or fatal.
	Level string `yaml:"level"`
	// Format is the output format. Only "json" and "console" are
	// recognized; both currently emit JSON lines.
	Format string `yaml:"format"`
	// Output is "stdout", "stderr" or a file path opened for append.
	Output string `yaml:"output"`
}

// DefaultConfig returns the production defaults: info-level JSON on
// stderr.
func DefaultConfig() *Config {
	return &Config{Level: "info", Format: "json", Output: "stderr"}
}

// NewLogger builds a Logger from the configuration. A nil config uses
// the defaults.
func NewLogger(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	output, err := openOutput(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("logging output %q: %w", cfg.Output, err)
	}
	return New(parseLevel(cfg.Level), output), nil
}

func parseLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DebugLevel
	case "WARN":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	case "FATAL":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// openOutput resolves the configured destination; anything that is not
// a well-known stream is treated as a file path.
func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		return os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	}
}
