// Package filestore manages the two remote document collections backing the
// compliance pipeline: a transient per-user store and a persistent shared
// store, plus the per-request decision of which one a run should use.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// ErrSourceNotFound indicates the referenced binary does not exist.
var ErrSourceNotFound = errors.New("source file not found")

// Source is a readable policy document binary. Object-storage download and
// temp-file handling live outside this package; a Source is the hand-off
// point.
type Source interface {
	// Open returns a reader over the binary. The caller closes it.
	Open() (io.ReadCloser, error)
	// Name returns a display name for the binary, used for labeling and
	// MIME type detection.
	Name() string
}

// PathSource reads a document from the local filesystem.
type PathSource string

// Open opens the underlying file, mapping missing paths to ErrSourceNotFound.
func (p PathSource) Open() (io.ReadCloser, error) {
	f, err := os.Open(string(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, string(p))
		}
		return nil, fmt.Errorf("failed to open source %s: %w", string(p), err)
	}
	return f, nil
}

// Name returns the base name of the path.
func (p PathSource) Name() string {
	return filepath.Base(string(p))
}

// ReaderSource wraps an in-memory or streamed binary, as handed over by an
// upload endpoint.
type ReaderSource struct {
	Reader   io.Reader
	FileName string
}

// Open returns the wrapped reader. A ReaderSource is single-use.
func (r *ReaderSource) Open() (io.ReadCloser, error) {
	if r.Reader == nil {
		return nil, fmt.Errorf("%w: empty reader source", ErrSourceNotFound)
	}
	return io.NopCloser(r.Reader), nil
}

// Name returns the caller-supplied file name.
func (r *ReaderSource) Name() string {
	return r.FileName
}

// mimeTypeFor guesses the MIME type from a file name, defaulting to PDF since
// policy documents are overwhelmingly PDFs.
func mimeTypeFor(name string) string {
	if mt := mime.TypeByExtension(filepath.Ext(name)); mt != "" {
		return mt
	}
	return "application/pdf"
}
