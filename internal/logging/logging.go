// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/bamchoh/bamrun/internal/config"
)

// New returns a logger writing to w. Lines emitted with Print carry no
// level and, unless timestamps are enabled, no decoration at all.
func New(w io.Writer, cfg config.LogConfig) (*log.Logger, error) {
	lvl, err := log.ParseLevel(cfg.LevelName())
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	opts := log.Options{
		Level:           lvl,
		ReportTimestamp: cfg.Timestamps,
	}
	if cfg.Format == "json" {
		opts.Formatter = log.JSONFormatter
	}
	return log.NewWithOptions(w, opts), nil
}
