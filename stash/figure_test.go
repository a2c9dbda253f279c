package stash

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"figstash/rc"
	"figstash/stash/codec"
)

func TestSaveWritesBackup(t *testing.T) {
	t.Cleanup(rc.Reset)
	require.NoError(t, rc.Set("lines.color", "#000000"))

	dir := t.TempDir()
	figPath := filepath.Join(dir, "fig.png")
	fig := New(&fakeFigure{body: "png"},
		WithPlotFunc(linePlot),
		WithData(map[string]any{"xs": []float64{1, 2, 3}, "label": "speed"}),
		WithEnv(false),
	)

	rep, err := fig.Save(figPath)
	require.NoError(t, err)
	require.NoError(t, rep.Err())

	backup := filepath.Join(dir, "fig")
	assert.Equal(t, backup, rep.Target)
	assert.False(t, rep.Zipped)
	assert.NotEmpty(t, rep.ID)

	body, err := os.ReadFile(figPath)
	require.NoError(t, err)
	assert.Equal(t, "png", string(body))

	xs, err := os.ReadFile(filepath.Join(backup, "xs.json"))
	require.NoError(t, err)
	assert.JSONEq(t, "[1,2,3]", string(xs))
	assert.FileExists(t, filepath.Join(backup, "label.json"))

	module, err := os.ReadFile(filepath.Join(backup, "figstash", "stash", "helpers_test.go"))
	require.NoError(t, err)
	assert.Contains(t, string(module), "func linePlot(")

	decl, err := os.ReadFile(filepath.Join(backup, "linePlot.go"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(decl), "// linePlot renders"), string(decl))
	assert.NotContains(t, string(decl), "type chart")

	settings, err := rc.ReadFile(filepath.Join(backup, SettingsFile))
	require.NoError(t, err)
	assert.Equal(t, "#000000", settings["lines.color"])

	assert.NoFileExists(t, filepath.Join(backup, DepsFile))
	assert.FileExists(t, filepath.Join(backup, MetadataFile))

	require.NotNil(t, rep.Function)
	assert.Equal(t, "figstash/stash.linePlot", rep.Function.Name)
	assert.Equal(t, "linePlot", rep.Function.Symbol)
}

func TestSaveFailureSkipsBackup(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("disk full")
	fig := New(&fakeFigure{fail: boom}, WithValue("x", 1), WithEnv(false))

	rep, err := fig.Save(filepath.Join(dir, "fig.png"))
	require.ErrorIs(t, err, boom)
	assert.Nil(t, rep)
	assert.NoDirExists(t, filepath.Join(dir, "fig"))
}

func TestFailingValueDoesNotBlockOthers(t *testing.T) {
	dir := t.TempDir()
	fig := New(&fakeFigure{},
		WithData(map[string]any{"bad": unserializable{}, "good": 42}),
		WithEnv(false),
	)

	rep, err := fig.Save(filepath.Join(dir, "fig.png"))
	require.NoError(t, err)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, KindValue, rep.Failures[0].Kind)
	assert.Equal(t, "bad", rep.Failures[0].Value)
	assert.Error(t, rep.Err())

	assert.NoFileExists(t, filepath.Join(dir, "fig", "bad.json"))
	assert.FileExists(t, filepath.Join(dir, "fig", "good.json"))
	assert.FileExists(t, filepath.Join(dir, "fig", SettingsFile))
	assert.FileExists(t, filepath.Join(dir, "fig", MetadataFile))
}

func TestDirectoryFailureAbortsOnlyBackup(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fig"), []byte("in the way"), 0o644))

	fig := New(&fakeFigure{body: "png"}, WithValue("x", 1), WithEnv(false))
	rep, err := fig.Save(filepath.Join(dir, "fig.png"))
	require.NoError(t, err)
	require.Error(t, rep.Fatal)
	assert.Empty(t, rep.Artifacts)
	assert.FileExists(t, filepath.Join(dir, "fig.png"))
}

func TestAsDirFalseWritesBesideFigure(t *testing.T) {
	dir := t.TempDir()
	fig := New(&fakeFigure{}, WithAsDir(false), WithValue("x", 1), WithEnv(false))

	rep, err := fig.Save(filepath.Join(dir, "fig.png"))
	require.NoError(t, err)
	assert.Equal(t, dir, rep.Target)
	assert.FileExists(t, filepath.Join(dir, "x.json"))
	assert.NoDirExists(t, filepath.Join(dir, "fig"))
}

func TestZippedBackupOpens(t *testing.T) {
	dir := t.TempDir()
	figPath := filepath.Join(dir, "fig.png")
	fig := New(&fakeFigure{}, WithZipped(true), WithAsDir(true), WithValue("x", []int{4, 5}), WithEnv(false))

	rep, err := fig.Save(figPath)
	require.NoError(t, err)
	require.NoError(t, rep.Err())
	assert.True(t, rep.Zipped)
	assert.FileExists(t, filepath.Join(dir, "fig.zip"))
	assert.NoDirExists(t, filepath.Join(dir, "fig"))

	b, err := Open(figPath)
	require.NoError(t, err)
	var x []int
	require.NoError(t, b.Value("x", &x))
	assert.Equal(t, []int{4, 5}, x)
}

func TestExclusions(t *testing.T) {
	dir := t.TempDir()
	fig := New(&fakeFigure{},
		WithData(map[string]any{
			"keep":   1,
			"secret": "token",
			"buf":    &bytes.Buffer{},
		}),
		WithExcludedArgs("secret"),
		ExcludeType[*bytes.Buffer](),
		WithEnv(false),
	)

	rep, err := fig.Save(filepath.Join(dir, "fig.png"))
	require.NoError(t, err)
	_, ok := rep.Lookup("keep")
	assert.True(t, ok)
	_, ok = rep.Lookup("secret")
	assert.False(t, ok)
	_, ok = rep.Lookup("buf")
	assert.False(t, ok)
	assert.Empty(t, rep.Failures)
}

func TestExcludedInterfaceType(t *testing.T) {
	o := buildOptions([]Option{WithExcludedTypes(reflect.TypeFor[error]())})
	assert.True(t, o.excluded("err", errors.New("x")))
	assert.False(t, o.excluded("n", 3))
	assert.False(t, o.excluded("nil", nil))
}

func TestCodecSelection(t *testing.T) {
	dir := t.TempDir()
	yc, err := codec.Lookup("yaml")
	require.NoError(t, err)
	fig := New(&fakeFigure{}, WithCodec(yc), WithValue("x", map[string]int{"a": 1}), WithEnv(false))

	rep, err := fig.Save(filepath.Join(dir, "fig.png"))
	require.NoError(t, err)
	assert.Equal(t, "yaml", rep.Codec)
	data, err := os.ReadFile(filepath.Join(dir, "fig", "x.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "a: 1")
}

func TestMethodValueSourceFailureIsIsolated(t *testing.T) {
	dir := t.TempDir()
	c := &chart{}
	fig := New(&fakeFigure{}, WithPlotFunc(c.draw), WithValue("x", 1), WithEnv(false))

	rep, err := fig.Save(filepath.Join(dir, "fig.png"))
	require.NoError(t, err)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, KindCode, rep.Failures[0].Kind)
	assert.ErrorIs(t, rep.Failures[0], ErrNoSource)
	assert.FileExists(t, filepath.Join(dir, "fig", "x.json"))
}

func TestVerboseOutput(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	fig := New(&fakeFigure{},
		WithPlotFunc(linePlot),
		WithValue("x", 1),
		WithEnv(false),
		WithVerbose(true),
		WithOutput(&out),
	)

	_, err := fig.Save(filepath.Join(dir, "fig.png"))
	require.NoError(t, err)
	text := out.String()
	assert.Contains(t, text, "Saved figure: "+filepath.Join(dir, "fig.png"))
	assert.Contains(t, text, "Saving backup data to:")
	assert.Contains(t, text, "x.json")
	assert.Contains(t, text, "stash/")
	assert.Contains(t, text, "helpers_test.go")
}

func TestRecorder(t *testing.T) {
	dir := t.TempDir()
	var seen *Report
	ok := recorderFunc(func(_ context.Context, rep *Report) error {
		seen = rep
		return nil
	})
	rep, err := New(&fakeFigure{}, WithRecorder(ok), WithEnv(false)).Save(filepath.Join(dir, "a.png"))
	require.NoError(t, err)
	assert.Same(t, rep, seen)

	failing := recorderFunc(func(context.Context, *Report) error { return errors.New("index locked") })
	rep, err = New(&fakeFigure{}, WithRecorder(failing), WithEnv(false)).Save(filepath.Join(dir, "b.png"))
	require.NoError(t, err)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, KindIndex, rep.Failures[0].Kind)
}

func TestSaveWriter(t *testing.T) {
	dir := t.TempDir()
	fig := New(&fakeFigure{body: "data"}, WithValue("x", 1), WithEnv(false))

	f, err := os.Create(filepath.Join(dir, "stream.svg"))
	require.NoError(t, err)
	rep, err := fig.SaveWriter(f, "svg")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NotNil(t, rep)
	assert.FileExists(t, filepath.Join(dir, "stream", "x.json"))

	var buf bytes.Buffer
	rep, err = fig.SaveWriter(&buf, "svg")
	require.NoError(t, err)
	assert.Nil(t, rep)
	assert.Equal(t, "svg:data", buf.String())
}

func TestSaveWriterNeedsStreamSaver(t *testing.T) {
	fig := New(SaverFunc(func(string) error { return nil }))
	_, err := fig.SaveWriter(&bytes.Buffer{}, "png")
	assert.ErrorIs(t, err, ErrNotStreamable)
}

func TestManifestWrittenOrReported(t *testing.T) {
	dir := t.TempDir()
	rep, err := New(&fakeFigure{}).Save(filepath.Join(dir, "fig.png"))
	require.NoError(t, err)

	_, written := os.Stat(filepath.Join(dir, "fig", DepsFile))
	if written != nil {
		require.Len(t, rep.Failures, 1)
		assert.Equal(t, KindManifest, rep.Failures[0].Kind)
		return
	}
	assert.Empty(t, rep.Failures)
}

func TestResaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	figPath := filepath.Join(dir, "fig.png")
	_, err := New(&fakeFigure{}, WithValue("x", 1), WithEnv(false)).Save(figPath)
	require.NoError(t, err)
	_, err = New(&fakeFigure{}, WithValue("x", 2), WithEnv(false)).Save(figPath)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "fig", "x.json"))
	require.NoError(t, err)
	assert.Equal(t, "2\n", string(data))
}

func TestCollidingValueNamesReported(t *testing.T) {
	dir := t.TempDir()
	figPath := filepath.Join(dir, "fig.png")
	rep, err := New(&fakeFigure{}, WithData(map[string]any{"a/b": 1, "a-b": 2}), WithEnv(false)).Save(figPath)
	require.NoError(t, err)

	values := 0
	for _, a := range rep.Artifacts {
		if a.Kind == KindValue {
			values++
			assert.Equal(t, "a-b", a.Value)
		}
	}
	assert.Equal(t, 1, values)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, KindValue, rep.Failures[0].Kind)
	assert.Equal(t, "a/b", rep.Failures[0].Value)
	assert.Contains(t, rep.Failures[0].Error(), `"a-b"`)

	b, err := Open(figPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-b"}, b.Names())
	var got int
	require.NoError(t, b.Value("a-b", &got))
	assert.Equal(t, 2, got)
	assert.ErrorIs(t, b.Value("a/b", &got), ErrNoValue)
}

func TestSaveWritesDocumentedLayout(t *testing.T) {
	prev := snapshotDeps
	snapshotDeps = func(context.Context, string) (string, error) { return "dep\tgonum.org/v1/plot\tv0.14.0\n", nil }
	t.Cleanup(func() { snapshotDeps = prev })

	dir := t.TempDir()
	figPath := filepath.Join(dir, "fig.pdf")
	rep, err := New(&fakeFigure{}, WithData(map[string]any{"scatter_size": 10, "cmap": "plasma"})).Save(figPath)
	require.NoError(t, err)
	require.NoError(t, rep.Err())

	backup := filepath.Join(dir, "fig")
	assert.Equal(t, backup, rep.Target)
	for _, name := range []string{"scatter_size.json", "cmap.json", SettingsFile, DepsFile} {
		assert.FileExists(t, filepath.Join(backup, name))
	}
	data, err := os.ReadFile(filepath.Join(backup, "cmap.json"))
	require.NoError(t, err)
	assert.Equal(t, "\"plasma\"\n", string(data))
	data, err = os.ReadFile(filepath.Join(backup, DepsFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "gonum.org/v1/plot")
}
