// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zread provides a read-only implementation of the ZIP archive
// format: given random-access byte storage of a ZIP file, it enumerates
// entries and streams the decompressed, optionally decrypted content of
// any chosen entry to a caller-supplied sink.
//
// # Key Features
//
// 1. Zip64 support: archives and entries larger than 4 GiB, or with
// more than 65535 entries, are transparently promoted.
//
// 2. Security: WinZip AES-256 decryption and the legacy PKWARE stream
// cipher, both gated behind an explicit password.
//
// 3. Context awareness: every long-running operation accepts a
// context.Context for cancellation.
//
// 4. Compatibility: legacy DOS filename encodings (CP437, windows-1252)
// are decoded automatically unless the entry's language-encoding flag
// says the name is already UTF-8.
//
// # Basic usage
//
//	r := zread.NewReader(zread.NewFileSource("archive.zip"))
//	entries, err := r.GetEntries(ctx)
//	sink := zread.NewBufferSink()
//	result, err := r.GetData(ctx, entries[0], sink, zread.WithPassword("secret"))
package zread

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Reader is the top-level entry point: a RandomSource plus the
// configuration (fallback text decoders, codec factory, logger) shared
// across GetEntries and GetData calls.
//
// Construction-time settings (filename/comment decoders, codec factory,
// logger, chunk size) live on Reader itself via ReaderOption; per-call
// overrides for GetEntries and GetData are separate functional-option
// types below, so a caller can override a decoder for one listing
// without touching the Reader's defaults.
type Reader struct {
	source RandomSource

	filenameDecoder func([]byte) string
	commentDecoder  func([]byte) string
	codecFactory    CodecFactory
	logger          zerolog.Logger
	chunkSize       int
}

// ReaderOption configures a Reader at construction time.
type ReaderOption func(*Reader)

// WithFilenameDecoder overrides the fallback decoder used for entry
// filenames when the language-encoding bit flag is clear. Default:
// CP-437.
func WithFilenameDecoder(decode func([]byte) string) ReaderOption {
	return func(r *Reader) { r.filenameDecoder = decode }
}

// WithCommentDecoder overrides the fallback decoder used for entry
// comments. Default: CP-437.
func WithCommentDecoder(decode func([]byte) string) ReaderOption {
	return func(r *Reader) { r.commentDecoder = decode }
}

// WithCodecFactory substitutes the Codec implementation this Reader
// drives for extraction. Default: DefaultCodecFactory (STORE/DEFLATE,
// optionally wrapped in legacy ZipCrypto or WinZip AES-256).
func WithCodecFactory(factory CodecFactory) ReaderOption {
	return func(r *Reader) { r.codecFactory = factory }
}

// WithLogger attaches a structured logger. Default: zerolog.Nop(), so
// the library is silent unless a caller opts in.
func WithLogger(logger zerolog.Logger) ReaderOption {
	return func(r *Reader) { r.logger = logger }
}

// WithChunkSize overrides the Streaming Pipeline Driver's read chunk
// size. Default: 512 KiB.
func WithChunkSize(bytes int) ReaderOption {
	return func(r *Reader) {
		if bytes > 0 {
			r.chunkSize = bytes
		}
	}
}

const defaultChunkSize = 512 * 1024

// NewReader constructs a Reader over source, applying opts in order.
// source.Init is deferred until the first call that needs it.
func NewReader(source RandomSource, opts ...ReaderOption) *Reader {
	r := &Reader{
		source:          source,
		filenameDecoder: defaultFallbackDecoder,
		commentDecoder:  defaultFallbackDecoder,
		codecFactory:    DefaultCodecFactory,
		logger:          zerolog.Nop(),
		chunkSize:       defaultChunkSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetEntriesOption configures a single GetEntries call.
type GetEntriesOption func(*getEntriesConfig)

type getEntriesConfig struct {
	filenameDecoder func([]byte) string
	commentDecoder  func([]byte) string
}

// WithEntriesFilenameDecoder overrides, for this call only, the
// Reader's configured filename fallback decoder.
func WithEntriesFilenameDecoder(decode func([]byte) string) GetEntriesOption {
	return func(c *getEntriesConfig) { c.filenameDecoder = decode }
}

// WithEntriesCommentDecoder overrides, for this call only, the Reader's
// configured comment fallback decoder.
func WithEntriesCommentDecoder(decode func([]byte) string) GetEntriesOption {
	return func(c *getEntriesConfig) { c.commentDecoder = decode }
}

// GetDataOption configures a single GetData call.
type GetDataOption func(*getDataConfig)

type getDataConfig struct {
	password        string
	checkSignature  bool
	onProgress      func(consumed, total int64)
}

// WithPassword supplies the credential for an encrypted entry.
func WithPassword(password string) GetDataOption {
	return func(c *getDataConfig) { c.password = password }
}

// WithCheckSignature requests that GetData verify the decompressed
// content's CRC-32 against the entry's recorded signature, failing with
// INVALID_SIGNATURE on mismatch. Default: true.
func WithCheckSignature(check bool) GetDataOption {
	return func(c *getDataConfig) { c.checkSignature = check }
}

// WithProgress registers a callback invoked after each input chunk is
// consumed from the entry's compressed payload, with the cumulative
// bytes consumed and the entry's total compressed size. Calls are
// strictly monotonically increasing in consumed, and happen whether or
// not that chunk produced any decompressed output.
func WithProgress(fn func(consumed, total int64)) GetDataOption {
	return func(c *getDataConfig) { c.onProgress = fn }
}

func newGetDataConfig(opts ...GetDataOption) getDataConfig {
	c := getDataConfig{checkSignature: true}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (r *Reader) ensureInit(ctx context.Context) error {
	if r.source.Initialized() {
		return nil
	}
	if err := r.source.Init(ctx); err != nil {
		return fmt.Errorf("init source: %w", err)
	}
	return nil
}
