package stash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBackupDir(t *testing.T) {
	tests := []struct {
		figure string
		want   string
	}{
		{figure: "fig.pdf", want: "fig"},
		{figure: "plots/fig.png", want: filepath.Join("plots", "fig")},
		{figure: "/tmp/out/fig.png", want: "/tmp/out/fig"},
		{figure: "out/a.b.png", want: filepath.Join("out", "a.b")},
		{figure: "out/figure", want: filepath.Join("out", "figure")},
		{figure: "out/.png", want: filepath.Join("out", ".png")},
		{figure: "out/.hidden.svg", want: filepath.Join("out", ".hidden")},
	}
	for _, tt := range tests {
		t.Run(tt.figure, func(t *testing.T) {
			assert.Equal(t, tt.want, BackupDir(tt.figure))
			assert.Equal(t, tt.want+".zip", BackupArchive(tt.figure))
		})
	}
}

func TestDotFileFigureNeverSpillsIntoParent(t *testing.T) {
	dir := t.TempDir()
	figPath := filepath.Join(dir, ".png")
	rep, err := New(&fakeFigure{}, WithValue("x", 1), WithEnv(false)).Save(figPath)
	assert.NoError(t, err)
	assert.Equal(t, figPath, rep.Target)
	// the figure file itself occupies the backup path
	assert.Error(t, rep.Fatal)
	assert.FileExists(t, figPath)
	assert.NoFileExists(t, filepath.Join(dir, "x.json"))

	zipped, err := New(&fakeFigure{}, WithValue("x", 1), WithZipped(true), WithEnv(false)).Save(figPath)
	assert.NoError(t, err)
	assert.NoError(t, zipped.Err())
	assert.FileExists(t, filepath.Join(dir, ".png.zip"))
}

func TestLockPathNamesTarget(t *testing.T) {
	p := lockPath("/data/My Plots/fig.zip")
	assert.Equal(t, os.TempDir(), filepath.Dir(p))
	assert.True(t, strings.HasPrefix(filepath.Base(p), "figstash-fig_zip-"), p)
	assert.NotEqual(t, p, lockPath("/data/other/fig.zip"))
}
