package zread

import (
	"context"
	"encoding/binary"
	"fmt"
)

// scanResult is what findSignature returns: the absolute offset of the
// tail window it ultimately searched, and the bytes of that window (so
// the caller can keep reading forward from the signature without a
// second RandomSource round trip).
type scanResult struct {
	windowOffset int64
	window       []byte
	matchOffset  int64 // absolute offset of the 4-byte signature itself
}

// findSignature locates the *last* occurrence of a 4-byte little-endian
// signature within the final [minBytes, minBytes+maxExtra] bytes of src,
// growing the search window backwards only as far as needed.
//
// Parameterized on signature/window size rather than hardwired to the
// EOCD signature. The directory parser calls it only for the EOCD; the
// ZIP64 locator and ZIP64 EOCD are read at fixed offsets instead.
func findSignature(ctx context.Context, src RandomSource, signature uint32, minBytes, maxExtra int64) (scanResult, error) {
	if err := ctx.Err(); err != nil {
		return scanResult{}, err
	}

	size, err := src.Size(ctx)
	if err != nil {
		return scanResult{}, fmt.Errorf("get archive size: %w", err)
	}
	if size < minBytes {
		return scanResult{}, newReaderError(KindBadFormat, fmt.Errorf("archive smaller than minimum record size %d", minBytes))
	}

	// First pass: the common case (no archive comment) needs only the
	// final minBytes. Only if that fails do we pay for the larger read.
	if res, ok, err := scanWindow(ctx, src, signature, size, minBytes); err != nil {
		return scanResult{}, err
	} else if ok {
		return res, nil
	}

	searchLimit := minBytes + maxExtra
	if searchLimit > size {
		searchLimit = size
	}
	res, ok, err := scanWindow(ctx, src, signature, size, searchLimit)
	if err != nil {
		return scanResult{}, err
	}
	if !ok {
		return scanResult{}, newReaderError(KindEOCDNotFound, ErrEOCDNotFound)
	}
	return res, nil
}

func scanWindow(ctx context.Context, src RandomSource, signature uint32, size, windowSize int64) (scanResult, bool, error) {
	windowOffset := size - windowSize
	window, err := src.Read(ctx, windowOffset, windowSize)
	if err != nil {
		return scanResult{}, false, fmt.Errorf("read tail window: %w", err)
	}
	off, ok := scanBackwards(window, signature)
	if !ok {
		return scanResult{}, false, nil
	}
	return scanResult{
		windowOffset: windowOffset,
		window:       window,
		matchOffset:  windowOffset + int64(off),
	}, true, nil
}

// scanBackwards returns the offset of the last 4-byte little-endian
// occurrence of signature within buf, scanning from the end so that an
// archive comment containing the same byte pattern never shadows the
// real record.
func scanBackwards(buf []byte, signature uint32) (int, bool) {
	for p := len(buf) - 4; p >= 0; p-- {
		if binary.LittleEndian.Uint32(buf[p:p+4]) == signature {
			return p, true
		}
	}
	return 0, false
}
