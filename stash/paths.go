package stash

import (
	"path/filepath"
	"strings"
)

// BackupDir returns the directory that holds the backup for a figure path:
// the figure's directory joined with its base name minus the extension.
func BackupDir(figure string) string {
	return filepath.Join(filepath.Dir(figure), stem(figure))
}

// BackupArchive returns the archive path used for zipped backups.
func BackupArchive(figure string) string {
	return BackupDir(figure) + ".zip"
}

// stem drops the extension of the base name. A leading dot starts a hidden
// name rather than an extension, so ".png" keeps its name.
func stem(path string) string {
	base := filepath.Base(path)
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[:i]
	}
	return base
}

type target struct {
	dir string
	zip string
}

func (t target) path() string {
	if t.zip != "" {
		return t.zip
	}
	return t.dir
}

func resolveTarget(figure string, asDir, zipped bool) target {
	switch {
	case zipped:
		return target{zip: BackupArchive(figure)}
	case asDir:
		return target{dir: BackupDir(figure)}
	default:
		return target{dir: filepath.Dir(figure)}
	}
}
