package config

import (
	"errors"
	"fmt"

	"figstash/rc"
	"figstash/stash/codec"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackup(); err != nil {
		return err
	}
	if err := c.validateStyle(); err != nil {
		return err
	}
	if err := c.validatePlot(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateBackup() error {
	if _, err := codec.Lookup(c.Backup.Codec); err != nil {
		return fmt.Errorf("backup.codec: %w (choose one of %v)", err, codec.Names())
	}
	return nil
}

func (c *Config) validateStyle() error {
	for key := range c.Style {
		if err := rc.CheckKey(key); err != nil {
			return fmt.Errorf("style: %w", err)
		}
	}
	return nil
}

func (c *Config) validatePlot() error {
	switch c.Plot.Format {
	case "png", "jpg", "jpeg", "svg", "pdf", "eps", "tif", "tiff":
		return nil
	default:
		return fmt.Errorf("plot.format: unsupported value %q", c.Plot.Format)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.New("logging.level must be one of debug, info, warn, error")
	}
	return nil
}
