package stash

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"figstash/rc"
	"figstash/stash/codec"
)

type series struct {
	Name   string    `json:"name"`
	Points []float64 `json:"points"`
}

func saveSample(t *testing.T, opts ...Option) string {
	t.Helper()
	dir := t.TempDir()
	figPath := filepath.Join(dir, "sample.png")
	all := append([]Option{
		WithPlotFunc(linePlot),
		WithData(map[string]any{
			"series": series{Name: "a", Points: []float64{1.5, 2}},
			"dpi":    150,
		}),
		WithEnv(false),
	}, opts...)
	rep, err := New(&fakeFigure{}, all...).Save(figPath)
	require.NoError(t, err)
	require.NoError(t, rep.Err())
	return figPath
}

func TestOpenByFigureAndDirectory(t *testing.T) {
	figPath := saveSample(t)

	b, err := Open(figPath)
	require.NoError(t, err)
	assert.Equal(t, BackupDir(figPath), b.Dir())
	meta, ok := b.Metadata()
	require.True(t, ok)
	assert.Equal(t, "json", meta.Codec)
	assert.Equal(t, figPath, meta.Figure)

	b2, err := Open(BackupDir(figPath))
	require.NoError(t, err)
	assert.Equal(t, b.Names(), b2.Names())
	assert.Equal(t, []string{"dpi", "series"}, b.Names())
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "none.png"))
	assert.ErrorIs(t, err, ErrNoBackup)
}

func TestValueAndData(t *testing.T) {
	b, err := Open(saveSample(t))
	require.NoError(t, err)

	var s series
	require.NoError(t, b.Value("series", &s))
	assert.Equal(t, series{Name: "a", Points: []float64{1.5, 2}}, s)

	err = b.Value("nope", &s)
	assert.ErrorIs(t, err, ErrNoValue)

	data, err := b.Data()
	require.NoError(t, err)
	assert.EqualValues(t, 150, data["dpi"])
	assert.Contains(t, data, "series")
}

func TestGobDataNeedsType(t *testing.T) {
	gc, err := codec.Lookup("gob")
	require.NoError(t, err)
	b, err := Open(saveSample(t, WithCodec(gc)))
	require.NoError(t, err)

	var dpi int
	require.NoError(t, b.Value("dpi", &dpi))
	assert.Equal(t, 150, dpi)

	_, err = b.Data()
	assert.ErrorIs(t, err, codec.ErrNeedsType)
}

func TestSourceRecovery(t *testing.T) {
	b, err := Open(saveSample(t))
	require.NoError(t, err)

	src, err := b.Source()
	require.NoError(t, err)
	assert.Contains(t, string(src), "func linePlot(")
	assert.NotContains(t, string(src), "package stash")

	full, err := b.ModuleSource()
	require.NoError(t, err)
	assert.Contains(t, string(full), "package stash")
}

func TestSettingsRecovery(t *testing.T) {
	t.Cleanup(rc.Reset)
	require.NoError(t, rc.Set("font.size", "14"))
	figPath := saveSample(t)
	rc.Reset()

	b, err := Open(figPath)
	require.NoError(t, err)
	p, err := b.Settings()
	require.NoError(t, err)
	assert.Equal(t, "14", p["font.size"])

	require.NoError(t, b.ApplySettings())
	got, _ := rc.Get("font.size")
	assert.Equal(t, "14", got)
}

func TestDepsMissing(t *testing.T) {
	b, err := Open(saveSample(t))
	require.NoError(t, err)
	_, err = b.Deps()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenWithoutMetadata(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "old")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "main"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.json"), []byte("[1]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main", "plot.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFile), []byte("[font]\nsize = 11\n"), 0o644))

	b, err := Open(dir)
	require.NoError(t, err)
	_, ok := b.Metadata()
	assert.False(t, ok)
	assert.Equal(t, []string{"x"}, b.Names())

	var x []int
	require.NoError(t, b.Value("x", &x))
	assert.Equal(t, []int{1}, x)

	src, err := b.Source()
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(src))

	p, err := b.Settings()
	require.NoError(t, err)
	assert.Equal(t, "11", p["font.size"])
}

func TestZippedResaveRecoversLatest(t *testing.T) {
	dir := t.TempDir()
	figPath := filepath.Join(dir, "fig.png")
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	_, err := New(&fakeFigure{}, WithZipped(true), WithValue("x", 1), WithEnv(false),
		withClock(func() time.Time { return first })).Save(figPath)
	require.NoError(t, err)
	b, err := Open(figPath)
	require.NoError(t, err)
	var x int
	require.NoError(t, b.Value("x", &x))
	require.Equal(t, 1, x)

	_, err = New(&fakeFigure{}, WithZipped(true), WithData(map[string]any{"x": 2, "y": 3}), WithEnv(false),
		withClock(func() time.Time { return first.Add(time.Minute) })).Save(figPath)
	require.NoError(t, err)
	b, err = Open(figPath)
	require.NoError(t, err)
	require.NoError(t, b.Value("x", &x))
	assert.Equal(t, 2, x)
	assert.Equal(t, []string{"x", "y"}, b.Names())

	// opening again reuses the extraction
	again, err := Open(filepath.Join(dir, "fig.zip"))
	require.NoError(t, err)
	assert.Equal(t, b.Dir(), again.Dir())
	assert.Equal(t, []string{"x", "y"}, again.Names())
}

func TestReextractDropsStaleFiles(t *testing.T) {
	dir := t.TempDir()
	figPath := filepath.Join(dir, "fig.png")
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	_, err := New(&fakeFigure{}, WithZipped(true), WithData(map[string]any{"old": 1, "x": 1}), WithEnv(false),
		withClock(func() time.Time { return first })).Save(figPath)
	require.NoError(t, err)
	_, err = Open(figPath)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "fig", "old.json"))

	_, err = New(&fakeFigure{}, WithZipped(true), WithValue("x", 2), WithEnv(false),
		withClock(func() time.Time { return first.Add(time.Second) })).Save(figPath)
	require.NoError(t, err)
	b, err := Open(figPath)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "fig", "old.json"))
	assert.Equal(t, []string{"x"}, b.Names())
}

func TestNewerDirectoryBackupWinsOverArchive(t *testing.T) {
	dir := t.TempDir()
	figPath := filepath.Join(dir, "fig.png")
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	_, err := New(&fakeFigure{}, WithZipped(true), WithValue("x", 1), WithEnv(false),
		withClock(func() time.Time { return first })).Save(figPath)
	require.NoError(t, err)
	_, err = New(&fakeFigure{}, WithValue("x", 2), WithEnv(false),
		withClock(func() time.Time { return first.Add(time.Second) })).Save(figPath)
	require.NoError(t, err)

	b, err := Open(figPath)
	require.NoError(t, err)
	var x int
	require.NoError(t, b.Value("x", &x))
	assert.Equal(t, 2, x)

	_, err = Open(filepath.Join(dir, "fig.zip"))
	require.Error(t, err)
	require.FileExists(t, filepath.Join(dir, "fig", "x.json"))
}

func TestApplySettingsRejectsUnknownKeys(t *testing.T) {
	t.Cleanup(rc.Reset)
	figPath := saveSample(t)
	settings := filepath.Join(BackupDir(figPath), SettingsFile)
	require.NoError(t, os.WriteFile(settings, []byte("\"font.size\" = \"20\"\n\"no.such.key\" = \"1\"\n"), 0o644))

	require.NoError(t, rc.Set("font.size", "9"))
	b, err := Open(figPath)
	require.NoError(t, err)
	err = b.ApplySettings()
	require.ErrorIs(t, err, rc.ErrUnknownKey)

	got, _ := rc.Get("font.size")
	assert.Equal(t, "9", got)
}
