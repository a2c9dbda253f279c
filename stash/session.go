package stash

import "context"

// Session carries options shared by every figure created through it.
// Per-figure options are applied after the session's.
type Session struct {
	opts []Option
}

func NewSession(opts ...Option) *Session {
	return &Session{opts: append([]Option(nil), opts...)}
}

// With returns a session extended with more options.
func (s *Session) With(opts ...Option) *Session {
	all := make([]Option, 0, len(s.opts)+len(opts))
	all = append(all, s.opts...)
	all = append(all, opts...)
	return &Session{opts: all}
}

// Figure wraps saver with the session's options.
func (s *Session) Figure(saver Saver, opts ...Option) *Figure {
	return New(saver, s.With(opts...).opts...)
}

// Save wraps saver and saves it to path in one step.
func (s *Session) Save(ctx context.Context, saver Saver, path string, opts ...Option) (*Report, error) {
	return s.Figure(saver, opts...).SaveContext(ctx, path)
}

// WrapIn is Wrap with the session's options applied first.
func WrapIn[P any, F Saver](s *Session, fn func(P) (F, error), opts ...Option) func(P) (*Figure, error) {
	return Wrap(fn, s.With(opts...).opts...)
}
