package testsupport

import (
	"testing"

	"figstash/internal/config"
	"figstash/internal/index"
)

// MustOpenIndex opens the configured index for tests and registers cleanup.
func MustOpenIndex(t testing.TB, cfg *config.Config) *index.Store {
	t.Helper()

	store, err := index.Open(cfg)
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
