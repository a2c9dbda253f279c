package stash

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"figstash/internal/deps"
	"figstash/internal/logging"
	"figstash/internal/textutil"
	"figstash/rc"
)

var snapshotDeps = deps.Snapshot

// ErrNotStreamable is returned by SaveWriter when the wrapped figure cannot
// render to a writer.
var ErrNotStreamable = errors.New("figure cannot be written to a stream")

// Saver is anything that can save a figure to a file path.
type Saver interface {
	Save(path string) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(path string) error

func (f SaverFunc) Save(path string) error { return f(path) }

// StreamSaver renders a figure in the given format to a writer.
type StreamSaver interface {
	WriteFigure(w io.Writer, format string) error
}

// Figure intercepts saves of a wrapped figure and backs up its inputs.
type Figure struct {
	saver Saver
	opts  options
}

// New wraps saver. Options set here apply to every save of the figure.
func New(saver Saver, opts ...Option) *Figure {
	return &Figure{saver: saver, opts: buildOptions(opts)}
}

// Unwrap returns the wrapped figure.
func (f *Figure) Unwrap() Saver { return f.saver }

// Save saves the figure to path and then writes its backup. Only the figure
// save can fail Save; backup problems are carried by the report.
func (f *Figure) Save(path string) (*Report, error) {
	return f.SaveContext(context.Background(), path)
}

// SaveContext is Save with a context for the dependency listing and lock wait.
func (f *Figure) SaveContext(ctx context.Context, path string) (*Report, error) {
	if err := f.saver.Save(path); err != nil {
		return nil, err
	}
	return f.backup(ctx, path), nil
}

// SaveWriter renders the figure to w. When w is a file (anything with a Name
// method) the backup is written next to that file; otherwise no backup is
// made and the report is nil.
func (f *Figure) SaveWriter(w io.Writer, format string) (*Report, error) {
	ss, ok := f.saver.(StreamSaver)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotStreamable, f.saver)
	}
	if err := ss.WriteFigure(w, format); err != nil {
		return nil, err
	}
	named, ok := w.(interface{ Name() string })
	if !ok || named.Name() == "" {
		f.opts.logger.Debug("figure written to anonymous stream; skipping backup")
		return nil, nil
	}
	return f.backup(context.Background(), named.Name()), nil
}

func (f *Figure) backup(ctx context.Context, figure string) *Report {
	start := time.Now()
	o := &f.opts
	t := resolveTarget(figure, o.asDir, o.zipped)
	rep := &Report{
		ID:        uuid.NewString(),
		Figure:    figure,
		Target:    t.path(),
		Zipped:    t.zip != "",
		CreatedAt: o.now().UTC(),
		Codec:     o.codec.Name(),
	}
	logger := logging.NewComponentLogger(o.logger, "stash").With(
		logging.String(logging.FieldFigure, figure),
		logging.String(logging.FieldBackup, rep.Target),
	)

	unlock := lockBackup(ctx, rep.Target, logger)
	defer unlock()

	s, err := openSink(t, rep.CreatedAt)
	if err != nil {
		rep.Fatal = fmt.Errorf("create backup directory: %w", err)
		logger.Error("backup skipped", logging.Error(rep.Fatal))
		return rep
	}

	w := &artifactWriter{sink: s, rep: rep, logger: logger}
	srcDir := f.writeCode(w)
	f.writeValues(w)
	w.put(SettingsFile, KindSettings, "", func() ([]byte, error) {
		return rc.Snapshot().Marshal()
	})
	if o.saveEnv {
		w.put(DepsFile, KindManifest, "", func() ([]byte, error) {
			manifest, err := snapshotDeps(ctx, srcDir)
			return []byte(manifest), err
		})
	}
	w.put(MetadataFile, KindMetadata, "", func() ([]byte, error) {
		return metadataFor(rep).marshal()
	})

	if err := s.Close(); err != nil {
		rep.Fatal = fmt.Errorf("finalize backup: %w", err)
		logger.Error("backup not written", logging.Error(rep.Fatal))
		return rep
	}

	if o.recorder != nil {
		if err := o.recorder.Record(ctx, rep); err != nil {
			w.fail(KindIndex, "", "", fmt.Errorf("record backup: %w", err))
		}
	}

	logger.Info("figure backup written",
		logging.Int("artifacts", len(rep.Artifacts)),
		logging.Int("failures", len(rep.Failures)),
		logging.Duration(logging.FieldDuration, time.Since(start)),
	)
	if o.verbose {
		printTree(o.out, rep)
	}
	return rep
}

// writeCode backs up the plotting function and returns the directory used
// for the go list fallback of the dependency manifest.
func (f *Figure) writeCode(w *artifactWriter) string {
	cwd, _ := os.Getwd()
	if f.opts.plotFunc == nil {
		return cwd
	}
	info, err := describeFunc(f.opts.plotFunc)
	if err != nil {
		w.fail(KindCode, "", "", err)
		return cwd
	}
	w.rep.Function = info
	src, err := readSource(info)
	if err != nil {
		w.fail(KindCode, info.ModuleFile, "", err)
		info.DeclFile = ""
		return cwd
	}
	w.putBytes(info.ModuleFile, KindCode, "", src)

	if info.DeclFile == "" {
		return filepath.Dir(info.File)
	}
	decl, err := extractDecl(src, info)
	if err != nil {
		w.logger.Debug("function declaration not extracted",
			logging.String("function", info.Name),
			logging.Error(err),
		)
		info.DeclFile = ""
		return filepath.Dir(info.File)
	}
	w.putBytes(info.DeclFile, KindCode, "", decl)
	return filepath.Dir(info.File)
}

func (f *Figure) writeValues(w *artifactWriter) {
	o := &f.opts
	values := o.values()
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	// file name -> value that claimed it
	used := make(map[string]string, len(names))
	for _, name := range names {
		v := values[name]
		if o.excluded(name, v) {
			w.logger.Debug("value excluded", logging.String("value", name))
			continue
		}
		base := textutil.SanitizeFileName(name)
		if base == "" {
			w.fail(KindValue, "", name, errors.New("name has no usable file name characters"))
			continue
		}
		file := base + "." + o.codec.Ext()
		if owner, taken := used[file]; taken {
			w.fail(KindValue, file, name, fmt.Errorf("file name already used by value %q", owner))
			continue
		}
		used[file] = name
		w.put(file, KindValue, name, func() ([]byte, error) {
			return o.codec.Marshal(v)
		})
	}
}

type artifactWriter struct {
	sink   sink
	rep    *Report
	logger *slog.Logger
}

// put produces and writes one artifact. Errors and panics in produce are
// recorded as failures of that artifact alone.
func (w *artifactWriter) put(path string, kind Kind, value string, produce func() ([]byte, error)) {
	data, err := safeProduce(produce)
	if err != nil {
		w.fail(kind, path, value, err)
		return
	}
	w.putBytes(path, kind, value, data)
}

func (w *artifactWriter) putBytes(path string, kind Kind, value string, data []byte) {
	if err := w.sink.Write(path, data); err != nil {
		w.fail(kind, path, value, err)
		return
	}
	w.rep.Artifacts = append(w.rep.Artifacts, Artifact{
		Path:  path,
		Kind:  kind,
		Value: value,
		Size:  int64(len(data)),
	})
}

func (w *artifactWriter) fail(kind Kind, path, value string, err error) {
	ae := &ArtifactError{Path: path, Kind: kind, Value: value, Err: err}
	w.rep.Failures = append(w.rep.Failures, ae)
	w.logger.Warn("backup artifact skipped",
		logging.String(logging.FieldKind, string(kind)),
		logging.String(logging.FieldArtifact, path),
		logging.String("value", value),
		logging.Error(err),
	)
}

func safeProduce(produce func() ([]byte, error)) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return produce()
}
