package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-review/internal/config"
	"github.com/phrazzld/scry-review/internal/platform/logger"
)

// setupAppLogger configures the JSON logger at the configured level and
// installs it as the default.
func setupAppLogger(cfg *config.Config) (*slog.Logger, error) {
	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return l, nil
}
