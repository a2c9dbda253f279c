package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"figstash/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The index lives under the temp dir and the dependency manifest is off so
// backups stay deterministic.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Backup.SaveEnv = false
	cfgVal.Index.Path = filepath.Join(base, "data", "index.db")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithCodec sets the value codec.
func WithCodec(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backup.Codec = name
	}
}

// WithZipped switches backups to archives.
func WithZipped() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backup.Zipped = true
	}
}

// WithoutIndex disables the backup index.
func WithoutIndex() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Index.Enabled = false
	}
}

// WithStyle sets a style override.
func WithStyle(key, value string) ConfigOption {
	return func(b *configBuilder) {
		if b.cfg.Style == nil {
			b.cfg.Style = map[string]string{}
		}
		b.cfg.Style[key] = value
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Logging.Dir)
}
