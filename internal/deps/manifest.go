package deps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime/debug"
	"strings"
	"time"
)

// ErrNoManifest is returned when neither build info nor a Go toolchain can
// describe the module set.
var ErrNoManifest = errors.New("dependency manifest unavailable")

const (
	goCommand   = "go"
	listTimeout = 30 * time.Second
)

var readBuildInfo = debug.ReadBuildInfo

// Snapshot describes the dependency set of the running program. Embedded build
// info is preferred; without it the modules of dir are listed with go list.
func Snapshot(ctx context.Context, dir string) (string, error) {
	if bi, ok := readBuildInfo(); ok && bi != nil && (bi.Main.Path != "" || len(bi.Deps) > 0) {
		return FormatBuildInfo(bi), nil
	}
	return ListModules(ctx, dir)
}

// FormatBuildInfo renders build info in the layout printed by go version -m.
func FormatBuildInfo(bi *debug.BuildInfo) string {
	var b strings.Builder
	if bi.GoVersion != "" {
		fmt.Fprintf(&b, "go\t%s\n", bi.GoVersion)
	}
	if bi.Path != "" {
		fmt.Fprintf(&b, "path\t%s\n", bi.Path)
	}
	if bi.Main.Path != "" {
		writeModule(&b, "mod", &bi.Main)
	}
	for _, dep := range bi.Deps {
		writeModule(&b, "dep", dep)
	}
	for _, setting := range bi.Settings {
		fmt.Fprintf(&b, "build\t%s=%s\n", setting.Key, setting.Value)
	}
	return b.String()
}

func writeModule(b *strings.Builder, label string, m *debug.Module) {
	fields := []string{label, m.Path}
	if m.Version != "" {
		fields = append(fields, m.Version)
	}
	if m.Sum != "" {
		fields = append(fields, m.Sum)
	}
	b.WriteString(strings.Join(fields, "\t"))
	b.WriteByte('\n')
	if m.Replace != nil {
		writeModule(b, "\t=>", m.Replace)
	}
}

// ListModules runs go list -m all inside dir.
func ListModules(ctx context.Context, dir string) (string, error) {
	if _, err := exec.LookPath(goCommand); err != nil {
		return "", fmt.Errorf("%w: %s not on PATH", ErrNoManifest, goCommand)
	}
	listCtx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	cmd := exec.CommandContext(listCtx, goCommand, "list", "-m", "all")
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("%w: go list: %s", ErrNoManifest, detail)
	}
	return stdout.String(), nil
}
