package rc

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const fileHeader = "# figstash style settings\n"

// Marshal renders p as TOML with one quoted dotted key per line.
func (p Params) Marshal() ([]byte, error) {
	body, err := toml.Marshal(map[string]string(p))
	if err != nil {
		return nil, fmt.Errorf("encode style settings: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	buf.Write(body)
	return buf.Bytes(), nil
}

// Parse decodes TOML settings. Nested tables are flattened into dotted keys
// and scalar values are stored in their string form.
func Parse(data []byte) (Params, error) {
	raw := map[string]any{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse style settings: %w", err)
	}
	out := Params{}
	flatten(out, "", raw)
	return out, nil
}

func flatten(dst Params, prefix string, values map[string]any) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := values[k].(type) {
		case map[string]any:
			flatten(dst, key, v)
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, scalarString(item))
			}
			dst[key] = strings.Join(parts, ",")
		default:
			dst[key] = scalarString(v)
		}
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// ReadFile loads settings written by WriteFile.
func ReadFile(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// WriteFile stores p at path, replacing any existing file.
func (p Params) WriteFile(path string) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
