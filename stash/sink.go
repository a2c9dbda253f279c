package stash

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"figstash/internal/fileutil"
)

const artifactPerm = 0o644

// sink receives backup artifacts by slash-separated relative name.
type sink interface {
	Write(name string, data []byte) error
	Close() error
}

func openSink(t target, now time.Time) (sink, error) {
	if t.zip != "" {
		return newZipSink(t.zip, now), nil
	}
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return nil, err
	}
	return dirSink{root: t.dir}, nil
}

type dirSink struct {
	root string
}

func (s dirSink) Write(name string, data []byte) error {
	return fileutil.WriteAtomic(filepath.Join(s.root, filepath.FromSlash(name)), data, artifactPerm)
}

func (dirSink) Close() error { return nil }

// zipSink buffers entries and writes the archive once on Close.
type zipSink struct {
	path string
	now  time.Time
	buf  bytes.Buffer
	zw   *zip.Writer
}

func newZipSink(path string, now time.Time) *zipSink {
	s := &zipSink{path: path, now: now}
	s.zw = zip.NewWriter(&s.buf)
	return s
}

func (s *zipSink) Write(name string, data []byte) error {
	hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: s.now}
	hdr.SetMode(artifactPerm)
	w, err := s.zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (s *zipSink) Close() error {
	if err := s.zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return fileutil.WriteAtomic(s.path, s.buf.Bytes(), artifactPerm)
}
