package stash

import (
	"fmt"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Fixed artifact names inside a backup.
const (
	SettingsFile = "plotrc.toml"
	DepsFile     = "deps.txt"
	MetadataFile = "stash.toml"
)

// Metadata is the content of stash.toml.
type Metadata struct {
	ID        string     `toml:"id"`
	CreatedAt time.Time  `toml:"created_at"`
	Figure    string     `toml:"figure"`
	Codec     string     `toml:"codec"`
	Function  *FuncInfo  `toml:"function,omitempty"`
	Artifacts []Artifact `toml:"artifacts"`
	Failures  []Failure  `toml:"failures,omitempty"`
}

// Failure is the persisted form of an ArtifactError.
type Failure struct {
	Kind    Kind   `toml:"kind"`
	Path    string `toml:"path,omitempty"`
	Value   string `toml:"value,omitempty"`
	Message string `toml:"message"`
}

func metadataFor(rep *Report) Metadata {
	meta := Metadata{
		ID:        rep.ID,
		CreatedAt: rep.CreatedAt,
		Figure:    rep.Figure,
		Codec:     rep.Codec,
		Function:  rep.Function,
		Artifacts: append([]Artifact(nil), rep.Artifacts...),
	}
	for _, f := range rep.Failures {
		meta.Failures = append(meta.Failures, Failure{
			Kind:    f.Kind,
			Path:    f.Path,
			Value:   f.Value,
			Message: f.Err.Error(),
		})
	}
	return meta
}

func (m Metadata) marshal() ([]byte, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return data, nil
}

func parseMetadata(data []byte) (Metadata, error) {
	var m Metadata
	if err := toml.Unmarshal(data, &m); err != nil {
		return Metadata{}, fmt.Errorf("decode %s: %w", MetadataFile, err)
	}
	return m, nil
}

// valuePath returns the artifact path recorded for a value name.
func (m Metadata) valuePath(name string) (string, bool) {
	for _, a := range m.Artifacts {
		if a.Kind == KindValue && a.Value == name {
			return a.Path, true
		}
	}
	return "", false
}

func (m Metadata) firstOf(kind Kind) (string, bool) {
	for _, a := range m.Artifacts {
		if a.Kind == kind {
			return a.Path, true
		}
	}
	return "", false
}
