package stash

import (
	"fmt"
	"reflect"
	"strings"

	"figstash/internal/textutil"
)

const tagName = "stash"

// Capture returns the named values of a plotting function's parameters.
//
// Struct parameters contribute their exported fields, named by the stash tag or
// the snake_case field name; a tag of "-" skips the field and embedded structs
// are flattened. Maps with string keys contribute their entries. Any other
// value is captured under the name "params". A nil pointer yields no values.
func Capture(params any) (map[string]any, error) {
	out := make(map[string]any)
	v := reflect.ValueOf(params)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return out, nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Invalid:
		return out, nil
	case reflect.Struct:
		captureStruct(out, v)
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("capture %s: map keys must be strings", v.Type())
		}
		iter := v.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
	default:
		out["params"] = v.Interface()
	}
	return out, nil
}

func captureStruct(out map[string]any, v reflect.Value) {
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		tag := field.Tag.Get(tagName)
		if tag == "-" || !field.IsExported() {
			continue
		}
		fv := v.Field(i)
		if field.Anonymous && tag == "" {
			inner := fv
			if inner.Kind() == reflect.Pointer {
				if inner.IsNil() {
					continue
				}
				inner = inner.Elem()
			}
			if inner.Kind() == reflect.Struct {
				captureStruct(out, inner)
				continue
			}
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "" {
			name = textutil.SnakeCase(field.Name)
		}
		out[name] = fv.Interface()
	}
}

// Wrap adapts a plotting function so the figures it returns back up the
// function's source and its captured parameters when saved.
func Wrap[P any, F Saver](fn func(P) (F, error), opts ...Option) func(P) (*Figure, error) {
	return func(params P) (*Figure, error) {
		fig, err := fn(params)
		if err != nil {
			return nil, err
		}
		values, err := Capture(params)
		if err != nil {
			return nil, err
		}
		all := make([]Option, 0, len(opts)+2)
		all = append(all, WithPlotFunc(fn), withCaptured(values))
		all = append(all, opts...)
		return New(fig, all...), nil
	}
}
