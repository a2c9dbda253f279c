package rc

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// UserPrefix marks free-form keys that Set accepts without a registered default.
const UserPrefix = "user."

// ErrUnknownKey is returned when a key has no registered default and does not
// carry UserPrefix.
var ErrUnknownKey = errors.New("unknown style key")

// Params maps dotted style keys to their string values.
type Params map[string]string

var defaults = Params{
	"figure.width":      "4in",
	"figure.height":     "3in",
	"figure.dpi":        "96",
	"savefig.format":    "png",
	"font.size":         "10",
	"axes.title.size":   "12",
	"axes.label.size":   "10",
	"axes.grid":         "false",
	"axes.prop_cycle":   "#1f77b4,#ff7f0e,#2ca02c,#d62728,#9467bd,#8c564b",
	"lines.width":       "1",
	"lines.color":       "#1f77b4",
	"lines.style":       "solid",
	"scatter.radius":    "2.5",
	"scatter.marker":    "circle",
	"legend.position":   "top-right",
	"legend.font.size":  "9",
	"axes.x.label.text": "",
	"axes.y.label.text": "",
}

var (
	mu      sync.RWMutex
	current = defaults.Clone()
)

// Defaults returns a copy of the built-in settings.
func Defaults() Params {
	return defaults.Clone()
}

// Snapshot returns a copy of the active settings.
func Snapshot() Params {
	mu.RLock()
	defer mu.RUnlock()
	return current.Clone()
}

// Get returns the active value for key.
func Get(key string) (string, bool) {
	mu.RLock()
	defer mu.RUnlock()
	v, ok := current[key]
	return v, ok
}

// Set updates a single setting.
func Set(key, value string) error {
	return Update(Params{key: value})
}

// Update applies every entry of p, or none of them when any key is unknown.
func Update(p Params) error {
	for key := range p {
		if err := CheckKey(key); err != nil {
			return err
		}
	}
	mu.Lock()
	defer mu.Unlock()
	for key, value := range p {
		current[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return nil
}

// Replace restores the built-in settings and applies p on top of them. When
// any key of p is unknown the active settings are left untouched.
func Replace(p Params) error {
	for key := range p {
		if err := CheckKey(key); err != nil {
			return err
		}
	}
	next := defaults.Clone()
	for key, value := range p {
		next[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	mu.Lock()
	defer mu.Unlock()
	current = next
	return nil
}

// Reset restores the built-in settings.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = defaults.Clone()
}

// CheckKey reports whether Set would accept key.
func CheckKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrUnknownKey)
	}
	if strings.HasPrefix(key, UserPrefix) && len(key) > len(UserPrefix) {
		return nil
	}
	if _, ok := defaults[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return nil
}

// Clone returns an independent copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the keys in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Float parses key as a float.
func (p Params) Float(key string) (float64, error) {
	raw, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("style %s: %w", key, err)
	}
	return v, nil
}

// Bool parses key as a boolean.
func (p Params) Bool(key string) (bool, error) {
	raw, ok := p[key]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("style %s: %w", key, err)
	}
	return v, nil
}

// List splits a comma-separated value, dropping empty entries.
func (p Params) List(key string) []string {
	raw := p[key]
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
