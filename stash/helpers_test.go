package stash

import (
	"context"
	"errors"
	"io"
	"os"
)

type lineParams struct {
	Xs    []float64
	Ys    []float64
	Title string  `stash:"title"`
	Scale float64 `stash:"-"`
}

type fakeFigure struct {
	body string
	fail error
}

func (f *fakeFigure) Save(path string) error {
	if f.fail != nil {
		return f.fail
	}
	return os.WriteFile(path, []byte(f.body), 0o644)
}

func (f *fakeFigure) WriteFigure(w io.Writer, format string) error {
	_, err := io.WriteString(w, format+":"+f.body)
	return err
}

// linePlot renders a line chart of p.
func linePlot(p lineParams) (*fakeFigure, error) {
	return &fakeFigure{body: p.Title}, nil
}

type chart struct{}

func (*chart) draw(p lineParams) (*fakeFigure, error) {
	return &fakeFigure{body: p.Title}, nil
}

type unserializable struct{}

func (unserializable) MarshalJSON() ([]byte, error) {
	return nil, errors.New("refuses to serialize")
}

type recorderFunc func(ctx context.Context, rep *Report) error

func (f recorderFunc) Record(ctx context.Context, rep *Report) error { return f(ctx, rep) }
