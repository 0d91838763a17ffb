package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"bindery/internal/catalog"
	"bindery/internal/config"
	"bindery/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// openCatalog opens the configured run catalog. A missing catalog_path or an
// open failure disables history for this invocation instead of failing it.
func (c *commandContext) openCatalog(ctx context.Context, logger *slog.Logger) *catalog.Store {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil
	}
	path := strings.TrimSpace(cfg.Paths.CatalogPath)
	if path == "" {
		return nil
	}
	store, err := catalog.Open(ctx, path)
	if err != nil {
		logger.Warn("run catalog unavailable",
			logging.String("path", path),
			logging.Error(err),
		)
		return nil
	}
	return store
}

func isTTY() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
