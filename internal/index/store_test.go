package index_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"figstash/internal/index"
	"figstash/internal/testsupport"
	"figstash/stash"
)

func report(id, figure string, created time.Time) *stash.Report {
	return &stash.Report{
		ID:        id,
		Figure:    figure,
		Target:    stash.BackupDir(figure),
		CreatedAt: created,
		Codec:     "json",
		Function:  &stash.FuncInfo{Name: "main.scatter"},
		Artifacts: []stash.Artifact{
			{Path: "x.json", Kind: stash.KindValue, Value: "x", Size: 10},
			{Path: "plotrc.toml", Kind: stash.KindSettings, Size: 32},
		},
	}
}

func TestOpenAppliesMigrationsOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenIndex(t, cfg)
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := index.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if reopened.Path() != cfg.Index.Path {
		t.Fatalf("unexpected path %q", reopened.Path())
	}
}

func TestOpenDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutIndex())
	if _, err := index.Open(cfg); !errors.Is(err, index.ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestRecordListAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenIndex(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	dir := testsupport.BaseDir(cfg)
	figA := filepath.Join(dir, "a.png")
	figB := filepath.Join(dir, "b.png")

	for i, rep := range []*stash.Report{
		report("aaaa-1", figA, base),
		report("bbbb-1", figB, base.Add(time.Minute)),
		report("aaaa-2", figA, base.Add(2*time.Minute)),
	} {
		if err := store.Record(ctx, rep); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	all, err := store.List(ctx, index.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].ID != "aaaa-2" || all[2].ID != "aaaa-1" {
		t.Fatalf("unexpected order: %#v", all)
	}
	if all[0].Bytes != 42 || all[0].Artifacts != 2 || all[0].Function != "main.scatter" {
		t.Fatalf("unexpected entry: %#v", all[0])
	}

	onlyA, err := store.List(ctx, index.ListOptions{Figure: figA})
	if err != nil {
		t.Fatalf("List figure: %v", err)
	}
	if len(onlyA) != 2 {
		t.Fatalf("expected 2 entries for a.png, got %d", len(onlyA))
	}

	latest, err := store.Latest(ctx, figA)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID != "aaaa-2" || !latest.CreatedAt.Equal(base.Add(2*time.Minute)) {
		t.Fatalf("unexpected latest: %#v", latest)
	}

	got, err := store.Get(ctx, "bbbb")
	if err != nil {
		t.Fatalf("Get prefix: %v", err)
	}
	if got.Figure != figB {
		t.Fatalf("unexpected figure %q", got.Figure)
	}
	if _, err := store.Get(ctx, "aaaa"); err == nil {
		t.Fatal("expected ambiguous prefix error")
	}
	if _, err := store.Get(ctx, "zzzz"); !errors.Is(err, index.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenIndex(t, cfg)
	ctx := context.Background()

	rep := report("cccc", filepath.Join(testsupport.BaseDir(cfg), "c.png"), time.Now())
	rep.Failures = []*stash.ArtifactError{
		{Kind: stash.KindValue, Value: "conn", Err: errors.New("cannot encode")},
	}
	if err := store.Record(ctx, rep); err != nil {
		t.Fatalf("Record: %v", err)
	}

	failures, err := store.Failures(ctx, "cccc")
	if err != nil {
		t.Fatalf("Failures: %v", err)
	}
	if len(failures) != 1 || failures[0].Value != "conn" || failures[0].Message != "cannot encode" {
		t.Fatalf("unexpected failures: %#v", failures)
	}
}

func TestPrune(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenIndex(t, cfg)
	ctx := context.Background()
	dir := testsupport.BaseDir(cfg)

	old := report("old", filepath.Join(dir, "old.png"), time.Now().Add(-48*time.Hour))
	kept := report("kept", filepath.Join(dir, "kept.png"), time.Now())
	for _, rep := range []*stash.Report{old, kept} {
		if err := store.Record(ctx, rep); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	n, err := store.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 pruned, got %d", n)
	}

	if err := os.MkdirAll(kept.Target, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	missing := report("missing", filepath.Join(dir, "gone.png"), time.Now())
	if err := store.Record(ctx, missing); err != nil {
		t.Fatalf("Record: %v", err)
	}
	n, err = store.PruneMissing(ctx)
	if err != nil {
		t.Fatalf("PruneMissing: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 missing pruned, got %d", n)
	}
	if _, err := store.Get(ctx, "kept"); err != nil {
		t.Fatalf("kept entry removed: %v", err)
	}
}

func TestStoreAsRecorder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenIndex(t, cfg)
	figPath := filepath.Join(testsupport.BaseDir(cfg), "rec.png")

	fig := stash.New(stash.SaverFunc(func(path string) error {
		return os.WriteFile(path, []byte("png"), 0o644)
	}), stash.WithRecorder(store), stash.WithEnv(false), stash.WithValue("n", 1))
	rep, err := fig.Save(figPath)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := rep.Err(); err != nil {
		t.Fatalf("backup errors: %v", err)
	}

	entry, err := store.Latest(context.Background(), figPath)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if entry.ID != rep.ID || entry.Target != stash.BackupDir(figPath) {
		t.Fatalf("unexpected entry %#v", entry)
	}
}
