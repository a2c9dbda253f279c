package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"figstash/internal/config"
	"figstash/internal/index"
	"figstash/internal/logging"
	"figstash/rc"
	"figstash/stash"
	"figstash/stash/codec"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	indexOnce sync.Once
	index     *index.Store
	indexErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		if err := rc.Update(rc.Params(cfg.Style)); err != nil {
			c.configErr = fmt.Errorf("apply style overrides: %w", err)
			return
		}
		c.config, c.configPath, c.configExists = cfg, resolved, exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// ensureIndex returns the backup index, or nil when it is disabled.
func (c *commandContext) ensureIndex() (*index.Store, error) {
	c.indexOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.indexErr = err
			return
		}
		store, err := index.Open(cfg)
		if errors.Is(err, index.ErrDisabled) {
			return
		}
		c.index, c.indexErr = store, err
	})
	return c.index, c.indexErr
}

func (c *commandContext) close() error {
	if c.index != nil {
		err := c.index.Close()
		c.index = nil
		return err
	}
	return nil
}

// backupOptions translates the [backup] config section into stash options.
func (c *commandContext) backupOptions(out io.Writer, verbose bool) ([]stash.Option, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	valueCodec, err := codec.Lookup(cfg.Backup.Codec)
	if err != nil {
		return nil, err
	}
	opts := []stash.Option{
		stash.WithAsDir(cfg.Backup.AsDir),
		stash.WithZipped(cfg.Backup.Zipped),
		stash.WithEnv(cfg.Backup.SaveEnv),
		stash.WithVerbose(cfg.Backup.Verbose || verbose),
		stash.WithCodec(valueCodec),
		stash.WithExcludedArgs(cfg.Backup.ExcludedArgs...),
		stash.WithLogger(logger),
		stash.WithOutput(out),
	}
	store, err := c.ensureIndex()
	if err != nil {
		logger.Warn("backup index unavailable; history will not be recorded", logging.Error(err))
	} else if store != nil {
		opts = append(opts, stash.WithRecorder(store))
	}
	return opts, nil
}

// openBackup resolves a backup directory, archive, figure path or index ID.
func (c *commandContext) openBackup(ctx context.Context, arg string) (*stash.Backup, error) {
	b, err := stash.Open(arg)
	if err == nil || !errors.Is(err, stash.ErrNoBackup) {
		return b, err
	}
	store, ierr := c.ensureIndex()
	if ierr != nil || store == nil {
		return nil, err
	}
	entry, gerr := store.Get(ctx, arg)
	if gerr != nil {
		if errors.Is(gerr, index.ErrNotFound) {
			return nil, err
		}
		return nil, gerr
	}
	return stash.Open(entry.Target)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
