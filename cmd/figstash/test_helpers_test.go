package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"figstash/internal/config"
	"figstash/internal/testsupport"
	"figstash/rc"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	workDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"
	base := testsupport.BaseDir(cfg)

	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "xdg"))
	t.Cleanup(rc.Reset)

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	workDir := filepath.Join(base, "work")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatalf("mkdir work: %v", err)
	}

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
		workDir:    workDir,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// plotCSV writes rows to name under the work dir and plots it.
func (env *cliTestEnv) plotCSV(t *testing.T, name string, rows [][]string, extra ...string) string {
	t.Helper()
	csvPath := filepath.Join(env.workDir, name)
	testsupport.WriteCSV(t, csvPath, rows)
	figure := strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".png"
	args := append([]string{"plot", csvPath, "-o", figure}, extra...)
	if _, _, err := runCLI(t, args, env.configPath); err != nil {
		t.Fatalf("plot %s: %v", name, err)
	}
	return figure
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}

var sampleRows = [][]string{
	{"t", "speed", "load"},
	{"0", "1.5", "10"},
	{"1", "2.5", "12"},
	{"2", "3.0", "9"},
}
