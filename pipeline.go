package zread

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/valyala/bytebufferpool"
)

// runPipeline reads length bytes starting at start from source in
// fixed-size chunks, feeds each into codec, writes whatever plaintext
// codec.Append produces to sink (in order), flushes codec at EOF,
// writes any trailing plaintext, and invokes onProgress after every
// input chunk is consumed, with the cumulative bytes consumed from
// source and length, the total to consume.
//
// onProgress fires once per input chunk regardless of whether that
// chunk made codec.Append emit any plaintext: a DEFLATE codec may
// buffer several input chunks before its first output, and the
// after-each-input-chunk guarantee must hold independent of the
// codec's internal buffering.
//
// Structured as an explicit chunk loop rather than a blocking
// io.Reader chain (a cipher reader wrapped in a decompressor wrapped in
// a checksum reader) because the Codec this reader drives is
// push-based and backpressure-friendly: Append is fed one bounded
// chunk at a time instead of being pulled from on demand.
func runPipeline(ctx context.Context, source RandomSource, start, length int64, codec Codec, sink Sink, chunkSize int, totalUncompressed int64, onProgress func(consumed, total int64), logger zerolog.Logger) error {
	if err := codec.Init(ctx); err != nil {
		return fmt.Errorf("init codec: %w", err)
	}
	if !sink.Initialized() {
		if err := sink.Init(ctx); err != nil {
			return fmt.Errorf("init sink: %w", err)
		}
	}

	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	var written, consumed int64
	chunkCount := 0
	for remaining := length; remaining > 0; {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := int64(chunkSize)
		if n > remaining {
			n = remaining
		}

		offset := start + (length - remaining)
		data, err := source.Read(ctx, offset, n)
		if err != nil {
			return fmt.Errorf("read input chunk at %d: %w", offset, err)
		}

		// Route the chunk through a pooled buffer rather than letting
		// the RandomSource-returned slice (or a fresh make) churn the
		// allocator once per chunk.
		bb.Reset()
		bb.B = append(bb.B, data...)
		chunkCount++

		out, err := codec.Append(ctx, bb.B)
		if err != nil {
			return err
		}
		if len(out) > 0 {
			if err := sink.Write(ctx, out); err != nil {
				return fmt.Errorf("write to sink: %w", err)
			}
			written += int64(len(out))
		}

		remaining -= n
		consumed += n
		if onProgress != nil {
			onProgress(consumed, length)
		}
	}

	result, err := codec.Flush(ctx)
	if err != nil {
		return err
	}
	if len(result.Data) > 0 {
		if err := sink.Write(ctx, result.Data); err != nil {
			return fmt.Errorf("write trailing output to sink: %w", err)
		}
		written += int64(len(result.Data))
	}

	logger.Debug().
		Str("written", humanize.Bytes(uint64(written))).
		Str("total", humanize.Bytes(uint64(totalUncompressed))).
		Int("chunks", chunkCount).
		Msg("extraction complete")
	return nil
}
