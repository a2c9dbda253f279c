// Package backupdiff compares two figure backups: style settings, captured
// values, plotting code and the dependency manifest.
package backupdiff

import (
	"bytes"
	"errors"
	"io/fs"
	"sort"

	"github.com/sergi/go-diff/diffmatchpatch"

	"figstash/stash"
	"figstash/stash/codec"
)

// Change classifies a difference.
type Change string

const (
	Added   Change = "added"
	Removed Change = "removed"
	Changed Change = "changed"
)

// SettingChange is one differing rc key.
type SettingChange struct {
	Key    string
	Change Change
	Old    string
	New    string
}

// TextDiff is a line diff of one artifact. Binary artifacts carry no Lines.
type TextDiff struct {
	Name   string
	Change Change
	Binary bool
	Lines  []diffmatchpatch.Diff
}

// Result collects every difference between two backups.
type Result struct {
	Settings []SettingChange
	Values   []TextDiff
	Code     *TextDiff
	Deps     *TextDiff
}

// Empty reports whether the backups are equivalent.
func (r *Result) Empty() bool {
	return len(r.Settings) == 0 && len(r.Values) == 0 && r.Code == nil && r.Deps == nil
}

// Compare diffs backup b against the older backup a.
func Compare(a, b *stash.Backup) (*Result, error) {
	res := &Result{}
	var errs []error

	if s, err := compareSettings(a, b); err != nil {
		errs = append(errs, err)
	} else {
		res.Settings = s
	}
	values, err := compareValues(a, b)
	if err != nil {
		errs = append(errs, err)
	}
	res.Values = values

	srcA, errA := a.Source()
	srcB, errB := b.Source()
	res.Code = compareText("code", srcA, errA == nil, srcB, errB == nil)

	depsA, errA := a.Deps()
	depsB, errB := b.Deps()
	res.Deps = compareText(stash.DepsFile, []byte(depsA), errA == nil, []byte(depsB), errB == nil)

	return res, errors.Join(errs...)
}

func compareSettings(a, b *stash.Backup) ([]SettingChange, error) {
	pa, err := a.Settings()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	pb, err := b.Settings()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	keys := make(map[string]struct{}, len(pa)+len(pb))
	for k := range pa {
		keys[k] = struct{}{}
	}
	for k := range pb {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var out []SettingChange
	for _, k := range sorted {
		oldV, inA := pa[k]
		newV, inB := pb[k]
		switch {
		case inA && !inB:
			out = append(out, SettingChange{Key: k, Change: Removed, Old: oldV})
		case !inA && inB:
			out = append(out, SettingChange{Key: k, Change: Added, New: newV})
		case oldV != newV:
			out = append(out, SettingChange{Key: k, Change: Changed, Old: oldV, New: newV})
		}
	}
	return out, nil
}

func compareValues(a, b *stash.Backup) ([]TextDiff, error) {
	names := make(map[string]struct{})
	for _, n := range a.Names() {
		names[n] = struct{}{}
	}
	for _, n := range b.Names() {
		names[n] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	var (
		out  []TextDiff
		errs []error
	)
	for _, name := range sorted {
		rawA, ca, errA := a.Raw(name)
		rawB, cb, errB := b.Raw(name)
		for _, err := range []error{errA, errB} {
			if err != nil && !errors.Is(err, stash.ErrNoValue) {
				errs = append(errs, err)
			}
		}
		d := compareText(name, rawA, errA == nil, rawB, errB == nil)
		if d == nil {
			continue
		}
		if binary(ca) || binary(cb) {
			d.Binary = true
			d.Lines = nil
		}
		out = append(out, *d)
	}
	return out, errors.Join(errs...)
}

func binary(c codec.Codec) bool {
	return c != nil && !codec.Generic(c)
}

func compareText(name string, a []byte, inA bool, b []byte, inB bool) *TextDiff {
	switch {
	case !inA && !inB:
		return nil
	case inA && !inB:
		return &TextDiff{Name: name, Change: Removed, Lines: lineDiff(string(a), "")}
	case !inA && inB:
		return &TextDiff{Name: name, Change: Added, Lines: lineDiff("", string(b))}
	case bytes.Equal(a, b):
		return nil
	}
	return &TextDiff{Name: name, Change: Changed, Lines: lineDiff(string(a), string(b))}
}

func lineDiff(a, b string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(ca, cb, false)
	return dmp.DiffCharsToLines(diffs, lines)
}
