// Package codec serializes captured plot inputs to backup artifacts.
package codec

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownCodec is returned by Lookup for unregistered names or extensions.
var ErrUnknownCodec = errors.New("unknown codec")

// ErrNeedsType reports that a codec cannot decode without a concrete target type.
var ErrNeedsType = errors.New("codec needs a concrete decode target")

// Codec encodes one value per artifact file.
type Codec interface {
	Name() string
	Ext() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Default is the codec used when none is configured.
const Default = "json"

var registry = map[string]Codec{
	"json": jsonCodec{},
	"yaml": yamlCodec{},
	"gob":  gobCodec{},
}

// Lookup returns the codec registered under name.
func Lookup(name string) (Codec, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = Default
	}
	c, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	return c, nil
}

// ForExt returns the codec whose artifacts use the given file extension.
func ForExt(ext string) (Codec, error) {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	for _, c := range registry {
		if c.Ext() == ext {
			return c, nil
		}
	}
	if ext == "yml" {
		return registry["yaml"], nil
	}
	return nil, fmt.Errorf("%w: extension %q", ErrUnknownCodec, ext)
}

// Names lists the registered codec names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generic reports whether c can decode into an untyped any.
func Generic(c Codec) bool {
	_, typed := c.(gobCodec)
	return !typed
}
