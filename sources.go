package zread

import (
	"context"
	"fmt"
	"io"
	"os"
)

// memorySource is a RandomSource backed by an in-memory byte slice,
// for archives already fully loaded (e.g. downloaded or generated in
// a test).
type memorySource struct {
	data []byte
}

// NewMemorySource wraps data as a RandomSource. Init is a no-op; the
// slice must not be mutated for the lifetime of the Reader using it.
func NewMemorySource(data []byte) RandomSource {
	return &memorySource{data: data}
}

func (s *memorySource) Size(ctx context.Context) (int64, error) { return int64(len(s.data)), nil }
func (s *memorySource) Initialized() bool                       { return true }
func (s *memorySource) Init(ctx context.Context) error          { return nil }

func (s *memorySource) Read(ctx context.Context, offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > int64(len(s.data)) {
		return nil, fmt.Errorf("zread: out-of-range read [%d, %d) of %d bytes", offset, offset+length, len(s.data))
	}
	out := make([]byte, length)
	copy(out, s.data[offset:offset+length])
	return out, nil
}

// fileSource is a RandomSource backed by a local *os.File, opened
// lazily on first Init so constructing one is cheap.
type fileSource struct {
	path string
	f    *os.File
	size int64
}

// NewFileSource returns a RandomSource that opens path on first use.
func NewFileSource(path string) RandomSource {
	return &fileSource{path: path}
}

func (s *fileSource) Initialized() bool { return s.f != nil }

func (s *fileSource) Init(ctx context.Context) error {
	if s.f != nil {
		return nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat %s: %w", s.path, err)
	}
	s.f = f
	s.size = info.Size()
	return nil
}

func (s *fileSource) Size(ctx context.Context) (int64, error) {
	if !s.Initialized() {
		if err := s.Init(ctx); err != nil {
			return 0, err
		}
	}
	return s.size, nil
}

func (s *fileSource) Read(ctx context.Context, offset, length int64) ([]byte, error) {
	if !s.Initialized() {
		if err := s.Init(ctx); err != nil {
			return nil, err
		}
	}
	buf := make([]byte, length)
	if n, err := s.f.ReadAt(buf, offset); n < len(buf) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read at %d: %w", offset, err)
	}
	return buf, nil
}

// Close releases the underlying *os.File, if one was opened.
func (s *fileSource) Close() error {
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}
