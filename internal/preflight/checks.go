package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"figstash/internal/deps"
	"figstash/internal/index"
	"figstash/stash/codec"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCodec verifies the configured value codec is registered.
func CheckCodec(name string) Result {
	const label = "Value codec"
	c, err := codec.Lookup(name)
	if err != nil {
		return Result{Name: label, Detail: fmt.Sprintf("%v (available: %s)", err, strings.Join(codec.Names(), ", "))}
	}
	detail := c.Name()
	if !codec.Generic(c) {
		detail += " (values need their Go type to decode)"
	}
	return Result{Name: label, Passed: true, Detail: detail}
}

// CheckIndex opens the backup index and runs a trivial query.
func CheckIndex(ctx context.Context, path string) Result {
	const name = "Backup index"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "path not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	store, err := index.OpenPath(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()
	entries, err := store.List(checkCtx, index.ListOptions{Limit: 1})
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	detail := fmt.Sprintf("%s (empty)", path)
	if len(entries) > 0 {
		detail = fmt.Sprintf("%s (last backup %s)", path, entries[0].CreatedAt.Local().Format(time.DateTime))
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckManifest verifies a dependency manifest can be produced from dir.
func CheckManifest(ctx context.Context, dir string) Result {
	const name = "Dependency manifest"
	manifest, err := deps.Snapshot(ctx, dir)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	lines := strings.Count(manifest, "\n")
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d lines", lines)}
}

// CheckSystemDeps evaluates the external tools figstash can use.
func CheckSystemDeps() []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{deps.GoToolchain()})
}
