package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeBackup()
	c.normalizeStyle()
	if err := c.normalizeIndex(); err != nil {
		return err
	}
	c.Plot.Format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Plot.Format), "."))
	if c.Plot.Format == "" {
		c.Plot.Format = defaultPlotFormat
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeBackup() {
	if value, ok := os.LookupEnv("FIGSTASH_CODEC"); ok && strings.TrimSpace(value) != "" {
		c.Backup.Codec = value
	}
	c.Backup.Codec = strings.ToLower(strings.TrimSpace(c.Backup.Codec))
	if c.Backup.Codec == "" {
		c.Backup.Codec = Default().Backup.Codec
	}

	args := make([]string, 0, len(c.Backup.ExcludedArgs))
	seen := make(map[string]struct{}, len(c.Backup.ExcludedArgs))
	for _, arg := range c.Backup.ExcludedArgs {
		name := strings.TrimSpace(arg)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		args = append(args, name)
	}
	c.Backup.ExcludedArgs = args
}

func (c *Config) normalizeStyle() {
	style := make(map[string]string, len(c.Style))
	for key, value := range c.Style {
		style[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	c.Style = style
}

func (c *Config) normalizeIndex() error {
	if value, ok := os.LookupEnv("FIGSTASH_INDEX_PATH"); ok && strings.TrimSpace(value) != "" {
		c.Index.Path = value
	}
	if strings.TrimSpace(c.Index.Path) == "" {
		c.Index.Path = defaultIndexPath()
	}
	var err error
	if c.Index.Path, err = expandPath(strings.TrimSpace(c.Index.Path)); err != nil {
		return fmt.Errorf("index.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	if value, ok := os.LookupEnv("FIGSTASH_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = ""
		return nil
	}
	var err error
	if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
