package stash

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a backup artifact.
type Kind string

const (
	KindCode     Kind = "code"
	KindValue    Kind = "value"
	KindSettings Kind = "settings"
	KindManifest Kind = "manifest"
	KindMetadata Kind = "metadata"
	KindIndex    Kind = "index"
)

// Artifact is one file written into a backup.
type Artifact struct {
	// Path is slash-separated and relative to the backup root.
	Path  string `toml:"path" json:"path"`
	Kind  Kind   `toml:"kind" json:"kind"`
	Value string `toml:"value,omitempty" json:"value,omitempty"`
	Size  int64  `toml:"size" json:"size"`
}

// ArtifactError records an artifact that could not be produced.
type ArtifactError struct {
	Path  string
	Kind  Kind
	Value string
	Err   error
}

func (e *ArtifactError) Error() string {
	subject := e.Path
	if e.Value != "" {
		subject = e.Value
	}
	if subject == "" {
		return fmt.Sprintf("%s artifact: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s artifact %s: %v", e.Kind, subject, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// Report describes the outcome of one backup.
type Report struct {
	ID        string
	Figure    string
	Target    string
	Zipped    bool
	CreatedAt time.Time
	Codec     string
	Function  *FuncInfo
	Artifacts []Artifact
	Failures  []*ArtifactError
	// Fatal is set when the backup could not be created at all.
	Fatal error
}

// Err joins the fatal error and every artifact failure, or returns nil.
func (r *Report) Err() error {
	if r == nil {
		return nil
	}
	errs := make([]error, 0, len(r.Failures)+1)
	if r.Fatal != nil {
		errs = append(errs, r.Fatal)
	}
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// Paths lists the written artifact paths in write order.
func (r *Report) Paths() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Artifacts))
	for _, a := range r.Artifacts {
		out = append(out, a.Path)
	}
	return out
}

// Lookup returns the artifact written for a captured value name.
func (r *Report) Lookup(value string) (Artifact, bool) {
	if r == nil {
		return Artifact{}, false
	}
	for _, a := range r.Artifacts {
		if a.Kind == KindValue && a.Value == value {
			return a, true
		}
	}
	return Artifact{}, false
}
