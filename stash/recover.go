package stash

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"figstash/internal/fileutil"
	"figstash/rc"
	"figstash/stash/codec"
)

// ErrNoBackup is returned by Open when no backup exists for a path.
var ErrNoBackup = errors.New("no backup found")

// ErrNoValue is returned when a backup holds no artifact for a value name.
var ErrNoValue = errors.New("value not in backup")

// Backup is a backup read back from disk.
type Backup struct {
	dir     string
	meta    Metadata
	hasMeta bool
}

// Open locates the backup for name, which may be the backup directory, a
// zipped backup, or the figure itself. Zipped backups are extracted into the
// directory a non-zipped backup would use.
func Open(name string) (*Backup, error) {
	dir, err := locate(name)
	if err != nil {
		return nil, err
	}
	b := &Backup{dir: dir}
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	switch {
	case err == nil:
		meta, err := parseMetadata(data)
		if err != nil {
			return nil, err
		}
		b.meta, b.hasMeta = meta, true
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", MetadataFile, err)
	}
	return b, nil
}

func locate(name string) (string, error) {
	if info, err := os.Stat(name); err == nil {
		if info.IsDir() {
			return name, nil
		}
		if strings.EqualFold(filepath.Ext(name), ".zip") {
			dir := strings.TrimSuffix(name, filepath.Ext(name))
			switch archiveState(name, dir) {
			case dirCurrent:
				return dir, nil
			case dirNewer:
				return "", fmt.Errorf("extract %s: %s holds a newer backup", name, dir)
			}
			return extract(name)
		}
	}
	dir := BackupDir(name)
	archive := BackupArchive(name)
	if _, err := os.Stat(archive); err == nil {
		if archiveState(archive, dir) == archiveNewer {
			return extract(archive)
		}
		return dir, nil
	}
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, nil
	}
	return "", fmt.Errorf("%w for %s", ErrNoBackup, name)
}

type extractState int

const (
	archiveNewer extractState = iota
	dirCurrent
	dirNewer
)

// archiveState compares an archive with the directory it extracts into.
// Backups are matched by their metadata; without it modification times
// decide.
func archiveState(archive, dir string) extractState {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return archiveNewer
	}
	am, aerr := archiveMetadata(archive)
	dm, derr := readMetadataFile(dir)
	if aerr == nil && derr == nil {
		switch {
		case am.ID == dm.ID:
			return dirCurrent
		case dm.CreatedAt.After(am.CreatedAt):
			return dirNewer
		}
		return archiveNewer
	}
	ainfo, err := os.Stat(archive)
	if err != nil {
		return dirCurrent
	}
	if ainfo.ModTime().After(info.ModTime()) {
		return archiveNewer
	}
	return dirCurrent
}

func archiveMetadata(archive string) (Metadata, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return Metadata{}, err
	}
	defer zr.Close()
	for _, f := range zr.File {
		if path.Clean(f.Name) != MetadataFile {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return Metadata{}, err
		}
		return parseMetadata(data)
	}
	return Metadata{}, fs.ErrNotExist
}

func readMetadataFile(dir string) (Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return Metadata{}, err
	}
	return parseMetadata(data)
}

// extract unpacks archive into a fresh directory next to it and swaps that
// directory into place, so files from an earlier extraction never linger.
func extract(archive string) (string, error) {
	dir := strings.TrimSuffix(archive, filepath.Ext(archive))
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return "", fmt.Errorf("open archive %s: %w", archive, err)
	}
	defer zr.Close()

	tmp, err := os.MkdirTemp(filepath.Dir(dir), "."+filepath.Base(dir)+".extract-*")
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", archive, err)
	}
	defer os.RemoveAll(tmp)

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Clean(f.Name)
		if !fs.ValidPath(name) {
			return "", fmt.Errorf("archive %s: invalid entry %q", archive, f.Name)
		}
		data, err := readEntry(f)
		if err != nil {
			return "", fmt.Errorf("archive %s: %w", archive, err)
		}
		if err := fileutil.WriteAtomic(filepath.Join(tmp, filepath.FromSlash(name)), data, artifactPerm); err != nil {
			return "", err
		}
	}
	if err := os.Chmod(tmp, 0o755); err != nil {
		return "", fmt.Errorf("extract %s: %w", archive, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("replace %s: %w", dir, err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		return "", fmt.Errorf("replace %s: %w", dir, err)
	}
	return dir, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", f.Name, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (b *Backup) Dir() string { return b.dir }

// Metadata returns stash.toml and whether the backup had one.
func (b *Backup) Metadata() (Metadata, bool) { return b.meta, b.hasMeta }

// Artifacts lists the backup's artifacts. Backups without metadata are
// described from the files present.
func (b *Backup) Artifacts() []Artifact {
	if b.hasMeta {
		return append([]Artifact(nil), b.meta.Artifacts...)
	}
	var out []Artifact
	_ = filepath.WalkDir(b.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(b.dir, p)
		rel = filepath.ToSlash(rel)
		a := Artifact{Path: rel, Kind: guessKind(rel)}
		if a.Kind == KindValue {
			a.Value = strings.TrimSuffix(rel, path.Ext(rel))
		}
		if info, err := d.Info(); err == nil {
			a.Size = info.Size()
		}
		out = append(out, a)
		return nil
	})
	return out
}

func guessKind(rel string) Kind {
	switch {
	case rel == SettingsFile:
		return KindSettings
	case rel == DepsFile:
		return KindManifest
	case rel == MetadataFile:
		return KindMetadata
	case strings.HasSuffix(rel, ".go"):
		return KindCode
	}
	if strings.Contains(rel, "/") {
		return ""
	}
	if _, err := codec.ForExt(path.Ext(rel)); err == nil {
		return KindValue
	}
	return ""
}

// Names returns the captured value names, sorted.
func (b *Backup) Names() []string {
	var names []string
	for _, a := range b.Artifacts() {
		if a.Kind == KindValue {
			names = append(names, a.Value)
		}
	}
	sort.Strings(names)
	return names
}

func (b *Backup) valueArtifact(name string) (string, codec.Codec, error) {
	var rel string
	if b.hasMeta {
		p, ok := b.meta.valuePath(name)
		if !ok {
			return "", nil, fmt.Errorf("%w: %q", ErrNoValue, name)
		}
		rel = p
	} else {
		for _, a := range b.Artifacts() {
			if a.Kind == KindValue && a.Value == name {
				rel = a.Path
				break
			}
		}
		if rel == "" {
			return "", nil, fmt.Errorf("%w: %q", ErrNoValue, name)
		}
	}
	c, err := codec.ForExt(path.Ext(rel))
	if err != nil {
		return "", nil, err
	}
	return filepath.Join(b.dir, filepath.FromSlash(rel)), c, nil
}

// Raw returns the serialized bytes of the named value and the codec that
// wrote them.
func (b *Backup) Raw(name string) ([]byte, codec.Codec, error) {
	file, c, err := b.valueArtifact(name)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, nil, fmt.Errorf("read value %q: %w", name, err)
	}
	return data, c, nil
}

// Value decodes the named value into dst, which must be a pointer.
func (b *Backup) Value(name string, dst any) error {
	data, c, err := b.Raw(name)
	if err != nil {
		return err
	}
	if err := c.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode value %q: %w", name, err)
	}
	return nil
}

// Data decodes every value into generic Go values. Values that cannot be
// decoded without a concrete type are omitted and reported in the error.
func (b *Backup) Data() (map[string]any, error) {
	out := make(map[string]any)
	var errs []error
	for _, name := range b.Names() {
		var v any
		if err := b.Value(name, &v); err != nil {
			errs = append(errs, err)
			continue
		}
		out[name] = v
	}
	return out, errors.Join(errs...)
}

// Source returns the plotting function's declaration, or the whole source
// file when the declaration was not extracted.
func (b *Backup) Source() ([]byte, error) {
	if b.hasMeta && b.meta.Function != nil {
		if b.meta.Function.DeclFile != "" {
			if data, err := b.read(b.meta.Function.DeclFile); err == nil {
				return data, nil
			}
		}
	}
	return b.ModuleSource()
}

// ModuleSource returns the full source file of the plotting function.
func (b *Backup) ModuleSource() ([]byte, error) {
	if b.hasMeta && b.meta.Function != nil && b.meta.Function.ModuleFile != "" {
		if data, err := b.read(b.meta.Function.ModuleFile); err == nil {
			return data, nil
		}
	}
	if p, ok := b.meta.firstOf(KindCode); ok {
		return b.read(p)
	}
	for _, a := range b.Artifacts() {
		if a.Kind == KindCode {
			return b.read(a.Path)
		}
	}
	return nil, ErrNoSource
}

// Settings returns the rc settings saved with the figure.
func (b *Backup) Settings() (rc.Params, error) {
	return rc.ReadFile(filepath.Join(b.dir, SettingsFile))
}

// ApplySettings replaces the active rc settings with the saved ones. A saved
// file with unknown keys leaves the active settings unchanged.
func (b *Backup) ApplySettings() error {
	p, err := b.Settings()
	if err != nil {
		return err
	}
	return rc.Replace(p)
}

// Deps returns the dependency manifest.
func (b *Backup) Deps() (string, error) {
	data, err := b.read(DepsFile)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (b *Backup) read(rel string) ([]byte, error) {
	return os.ReadFile(filepath.Join(b.dir, filepath.FromSlash(rel)))
}
