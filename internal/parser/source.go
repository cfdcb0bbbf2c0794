package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

// Source is anything the Reader can pull log content from.
type Source interface {
	// Name identifies the source in errors and reports.
	Name() string

	// Open returns the raw content. The Reader closes it.
	Open() (io.ReadCloser, error)
}

// TextSource is implemented by sources that already hold decoded text.
// The Reader uses Text instead of Open and skips UTF-8 decoding.
type TextSource interface {
	Source
	Text() (string, error)
}

// Compile-time interface checks
var (
	_ Source     = (*FileSource)(nil)
	_ Source     = (*BytesSource)(nil)
	_ TextSource = (*StringSource)(nil)
)

// FileSource reads a log file from disk.
type FileSource struct {
	path string
}

// NewFileSource creates a path-backed source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns the file path.
func (s *FileSource) Name() string {
	return s.path
}

// Open checks that the path is a readable regular file and opens it.
func (s *FileSource) Open() (io.ReadCloser, error) {
	fileInfo, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("log file not found: %s: %w", s.path, err)
		}
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	if fileInfo.IsDir() {
		return nil, fmt.Errorf("log path is a directory: %s", s.path)
	}

	if fileInfo.Mode().Perm()&0444 == 0 {
		return nil, fmt.Errorf("log file is not readable: %s", s.path)
	}

	f, err := os.Open(s.path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// BytesSource wraps content already loaded into memory, such as an
// uploaded buffer or a downloaded object.
type BytesSource struct {
	name string
	data []byte
}

// NewBytesSource creates a buffer-backed source. The slice is not copied.
func NewBytesSource(name string, data []byte) *BytesSource {
	return &BytesSource{name: name, data: data}
}

// Name returns the label given at construction.
func (s *BytesSource) Name() string {
	return s.name
}

// Open returns a reader over the buffer.
func (s *BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

// StringSource wraps content that is already text.
type StringSource struct {
	name string
	text string
}

// NewStringSource creates a text-backed source.
func NewStringSource(name, text string) *StringSource {
	return &StringSource{name: name, text: text}
}

// Name returns the label given at construction.
func (s *StringSource) Name() string {
	return s.name
}

// Open returns a reader over the text.
func (s *StringSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.text)), nil
}

// Text returns the content as-is.
func (s *StringSource) Text() (string, error) {
	return s.text, nil
}
