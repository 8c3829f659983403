package zread

import (
	"bytes"
	"context"
	"fmt"
	"os"
)

// bufferSink is a Sink that accumulates decompressed output in memory
// and returns it as a []byte from Finalize.
type bufferSink struct {
	buf  bytes.Buffer
	init bool
}

// NewBufferSink returns a Sink whose Finalize result is the full
// decompressed []byte.
func NewBufferSink() Sink { return &bufferSink{} }

func (s *bufferSink) Initialized() bool { return s.init }

func (s *bufferSink) Init(ctx context.Context) error {
	s.buf.Reset()
	s.init = true
	return nil
}

func (s *bufferSink) Write(ctx context.Context, chunk []byte) error {
	_, err := s.buf.Write(chunk)
	return err
}

func (s *bufferSink) Finalize(ctx context.Context) (any, error) {
	out := make([]byte, s.buf.Len())
	copy(out, s.buf.Bytes())
	return out, nil
}

// fileSink is a Sink that writes decompressed output to a local file,
// created (or truncated) on Init.
type fileSink struct {
	path string
	f    *os.File
}

// NewFileSink returns a Sink that writes to path, creating it on Init
// and returning the final byte count from Finalize.
func NewFileSink(path string) Sink { return &fileSink{path: path} }

func (s *fileSink) Initialized() bool { return s.f != nil }

func (s *fileSink) Init(ctx context.Context) error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.path, err)
	}
	s.f = f
	return nil
}

func (s *fileSink) Write(ctx context.Context, chunk []byte) error {
	_, err := s.f.Write(chunk)
	return err
}

func (s *fileSink) Finalize(ctx context.Context) (any, error) {
	defer s.f.Close()
	info, err := s.f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", s.path, err)
	}
	return info.Size(), nil
}
