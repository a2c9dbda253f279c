package config

import (
	"os"
	"path/filepath"
	"strings"

	"figstash/stash/codec"
)

const (
	defaultConfigPath = "~/.config/figstash/config.toml"
	defaultLogFormat  = "console"
	defaultLogLevel   = "info"
	defaultPlotFormat = "png"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Backup: Backup{
			AsDir:   true,
			Codec:   codec.Default,
			SaveEnv: true,
		},
		Style: map[string]string{},
		Index: Index{
			Enabled: true,
			Path:    defaultIndexPath(),
		},
		Plot: Plot{
			Format: defaultPlotFormat,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultIndexPath() string {
	if base, ok := os.LookupEnv("XDG_DATA_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "figstash", "index.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.local/share/figstash/index.db"
	}
	return filepath.Join(home, ".local", "share", "figstash", "index.db")
}
