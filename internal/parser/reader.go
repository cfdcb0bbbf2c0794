package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultMaxSizeMB caps how much content a Reader loads when none is given.
const DefaultMaxSizeMB = 50

var (
	// ErrIO reports that the source could not be opened or read.
	ErrIO = errors.New("log source I/O failure")

	// ErrDecode reports content that is not valid UTF-8 or a corrupt gzip stream.
	ErrDecode = errors.New("log source decode failure")
)

var gzipMagic = []byte{0x1f, 0x8b}

// Reader loads a Source and parses it into records. It holds no mutable
// state, so one Reader may serve concurrent calls on different sources.
type Reader struct {
	maxBytes int64
	maxMB    int
}

// NewReader creates a Reader that refuses content larger than maxSizeMB.
// Non-positive values fall back to DefaultMaxSizeMB.
func NewReader(maxSizeMB int) *Reader {
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxSizeMB
	}
	return &Reader{
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
		maxMB:    maxSizeMB,
	}
}

// ReadFile parses the file at path with a default Reader.
func ReadFile(path string, tail int) ([]Record, error) {
	return NewReader(DefaultMaxSizeMB).Read(NewFileSource(path), tail)
}

// Read loads src and returns the records of every recognized line, in
// input order. When tail is positive only the last tail raw lines are
// considered, before any of them is classified.
//
// Blank and unrecognized lines are dropped without error. Only failures to
// load the content (ErrIO) or to decode it (ErrDecode) are returned.
func (r *Reader) Read(src Source, tail int) ([]Record, error) {
	content, err := r.load(src)
	if err != nil {
		return nil, err
	}

	lines := splitLines(content)
	if tail > 0 && len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}

	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		if record, ok := ParseLine(line); ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// load returns the decoded text of src. The source is closed before
// load returns on every path.
func (r *Reader) load(src Source) (string, error) {
	if ts, ok := src.(TextSource); ok {
		text, err := ts.Text()
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrIO, src.Name(), err)
		}
		if int64(len(text)) > r.maxBytes {
			return "", r.tooLarge(src.Name())
		}
		return strings.TrimPrefix(text, byteOrderMark), nil
	}

	rc, err := src.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := r.readLimited(rc, src.Name())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}

	if bytes.HasPrefix(data, gzipMagic) {
		data, err = r.gunzip(data, src.Name())
		if err != nil {
			return "", err
		}
	}

	return decodeUTF8(data, src.Name())
}

func (r *Reader) readLimited(rd io.Reader, name string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(rd, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("%s exceeds maximum size of %dMB", name, r.maxMB)
	}
	return data, nil
}

func (r *Reader) gunzip(data []byte, name string) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: invalid gzip header: %w", ErrDecode, name, err)
	}
	defer func() { _ = zr.Close() }()

	out, err := io.ReadAll(io.LimitReader(zr, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: corrupt gzip stream: %w", ErrDecode, name, err)
	}
	if int64(len(out)) > r.maxBytes {
		return nil, r.tooLarge(name)
	}
	return out, nil
}

const byteOrderMark = "\ufeff"

func (r *Reader) tooLarge(name string) error {
	return fmt.Errorf("%w: %s exceeds maximum size of %dMB", ErrIO, name, r.maxMB)
}

// decodeUTF8 validates data as UTF-8 and strips a leading byte order mark.
func decodeUTF8(data []byte, name string) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8 (at byte %d)", ErrDecode, name, firstInvalid(data))
	}
	out, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrDecode, name, err)
	}
	return string(out), nil
}

func firstInvalid(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}

// lineBreaks folds CRLF and bare CR into LF before splitting.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// splitLines breaks content on LF, CRLF and bare CR. A trailing line break
// does not produce an extra empty line.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(lineBreaks.Replace(content), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
