package preflight

import (
	"context"

	"figstash/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// workDir is the directory figures will be saved into.
func RunAll(ctx context.Context, cfg *config.Config, workDir string) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Output directory (always checked)
	results = append(results, CheckDirectoryAccess("Output directory", workDir))
	results = append(results, CheckCodec(cfg.Backup.Codec))

	if cfg.Logging.Dir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Logging.Dir))
	}
	if cfg.Index.Enabled {
		results = append(results, CheckIndex(ctx, cfg.Index.Path))
	}
	if cfg.Backup.SaveEnv {
		results = append(results, CheckManifest(ctx, workDir))
	}
	return results
}
