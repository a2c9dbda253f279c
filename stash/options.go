package stash

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"os"
	"reflect"
	"time"

	"figstash/internal/logging"
	"figstash/stash/codec"
)

// Recorder is notified after every backup that was created. The index store
// implements it to keep a history of saved figures.
type Recorder interface {
	Record(ctx context.Context, rep *Report) error
}

// Option configures a Figure or Session.
type Option func(*options)

type options struct {
	plotFunc      any
	captured      map[string]any
	data          map[string]any
	asDir         bool
	zipped        bool
	excludedArgs  map[string]struct{}
	excludedTypes []reflect.Type
	saveEnv       bool
	verbose       bool
	codec         codec.Codec
	logger        *slog.Logger
	out           io.Writer
	recorder      Recorder
	now           func() time.Time
}

func defaultOptions() options {
	c, _ := codec.Lookup(codec.Default)
	return options{
		asDir:   true,
		saveEnv: true,
		codec:   c,
		logger:  logging.NewNop(),
		out:     os.Stdout,
		now:     time.Now,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// values merges captured parameters with explicit data; explicit data wins.
func (o *options) values() map[string]any {
	out := make(map[string]any, len(o.captured)+len(o.data))
	maps.Copy(out, o.captured)
	maps.Copy(out, o.data)
	return out
}

func (o *options) excluded(name string, v any) bool {
	if _, ok := o.excludedArgs[name]; ok {
		return true
	}
	if v == nil || len(o.excludedTypes) == 0 {
		return false
	}
	t := reflect.TypeOf(v)
	for _, ex := range o.excludedTypes {
		if t == ex {
			return true
		}
		if ex.Kind() == reflect.Interface && t.Implements(ex) {
			return true
		}
	}
	return false
}

// WithPlotFunc names the function whose source is backed up.
func WithPlotFunc(fn any) Option {
	return func(o *options) { o.plotFunc = fn }
}

// WithData adds named values to back up. Repeated calls merge, later names
// replacing earlier ones.
func WithData(values map[string]any) Option {
	return func(o *options) {
		if o.data == nil {
			o.data = make(map[string]any, len(values))
		}
		maps.Copy(o.data, values)
	}
}

// WithValue adds a single named value to back up.
func WithValue(name string, v any) Option {
	return WithData(map[string]any{name: v})
}

func withCaptured(values map[string]any) Option {
	return func(o *options) { o.captured = values }
}

// WithAsDir controls whether artifacts go into a directory named after the
// figure (true, the default) or directly beside it.
func WithAsDir(asDir bool) Option {
	return func(o *options) { o.asDir = asDir }
}

// WithZipped writes the backup as a single archive named after the figure.
// It takes precedence over WithAsDir.
func WithZipped(zipped bool) Option {
	return func(o *options) { o.zipped = zipped }
}

// WithExcludedArgs skips values by name.
func WithExcludedArgs(names ...string) Option {
	return func(o *options) {
		if o.excludedArgs == nil {
			o.excludedArgs = make(map[string]struct{}, len(names))
		}
		for _, n := range names {
			o.excludedArgs[n] = struct{}{}
		}
	}
}

// WithExcludedTypes skips values whose dynamic type is, or implements, one
// of types.
func WithExcludedTypes(types ...reflect.Type) Option {
	return func(o *options) {
		for _, t := range types {
			if t != nil {
				o.excludedTypes = append(o.excludedTypes, t)
			}
		}
	}
}

// ExcludeType skips values of type T.
func ExcludeType[T any]() Option {
	return WithExcludedTypes(reflect.TypeFor[T]())
}

// WithEnv toggles the dependency manifest. It is on by default.
func WithEnv(save bool) Option {
	return func(o *options) { o.saveEnv = save }
}

// WithVerbose prints the backup layout after each save.
func WithVerbose(verbose bool) Option {
	return func(o *options) { o.verbose = verbose }
}

// WithCodec selects the value serialization format.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOutput sets where verbose output is printed.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.out = w
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

func withClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}
