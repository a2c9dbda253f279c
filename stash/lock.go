package stash

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"figstash/internal/logging"
	"figstash/internal/textutil"
)

const (
	lockTimeout    = 5 * time.Second
	lockRetryDelay = 25 * time.Millisecond
)

func lockPath(target string) string {
	if abs, err := filepath.Abs(target); err == nil {
		target = abs
	}
	sum := sha256.Sum256([]byte(target))
	name := textutil.SanitizeToken(filepath.Base(target))
	return filepath.Join(os.TempDir(), "figstash-"+name+"-"+hex.EncodeToString(sum[:8])+".lock")
}

// lockBackup serializes backups that share a target across processes. When
// the lock cannot be taken the backup proceeds unlocked.
func lockBackup(ctx context.Context, target string, logger *slog.Logger) func() {
	fl := flock.New(lockPath(target))
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil || !locked {
		logger.Warn("backup lock unavailable; continuing without it",
			logging.String("lock", fl.Path()),
			logging.Error(err),
		)
		return func() {}
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			logger.Debug("release backup lock", logging.Error(err))
		}
	}
}
