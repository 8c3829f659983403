package zread

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/zreadio/zread/internal/extra"
	"github.com/zreadio/zread/internal/headers"
)

const (
	eocdMinBytes  = headers.EndOfCentralDirFixed + 4
	eocdMaxExtra  = math.MaxUint16 // largest possible archive comment
	zip64LocatorWindow = headers.Zip64LocatorLen
)

// GetEntries locates the central directory (promoting to ZIP64 as
// needed) and decodes it into the ordered sequence of Entry records it
// describes. Idempotent: the source is re-read on every call.
//
// Locating the central directory is built around the standalone
// findSignature scanner and the RandomSource abstraction rather than
// an io.ReaderAt, so the same scan works against an in-memory buffer or
// a file without the caller choosing a code path.
func (r *Reader) GetEntries(ctx context.Context, opts ...GetEntriesOption) ([]*Entry, error) {
	cfg := getEntriesConfig{filenameDecoder: r.filenameDecoder, commentDecoder: r.commentDecoder}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := r.ensureInit(ctx); err != nil {
		return nil, err
	}

	size, err := r.source.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("get archive size: %w", err)
	}

	eocdScan, err := findSignature(ctx, r.source, headers.EndOfCentralDirSignature, eocdMinBytes, eocdMaxExtra)
	if err != nil {
		r.logger.Debug().Err(err).Msg("end of central directory signature not found")
		return nil, err
	}

	payloadOffset := eocdScan.matchOffset + 4 - eocdScan.windowOffset
	eocd, err := headers.ReadEndOfCentralDir(bytes.NewReader(eocdScan.window[payloadOffset:]))
	if err != nil {
		return nil, newReaderError(KindBadFormat, fmt.Errorf("decode end of central directory: %w", err))
	}

	centralDirOffset := int64(eocd.CentralDirOffset)
	centralDirSize := int64(eocd.CentralDirSize)
	totalEntries := int64(eocd.TotalNumberOfEntries)

	if eocd.CentralDirOffset == math.MaxUint32 || eocd.TotalNumberOfEntries == math.MaxUint16 {
		r.logger.Debug().Msg("eocd sentinel values present, switching to zip64")

		zip64EOCD, err := r.findZip64EndOfCentralDir(ctx, size, eocdScan.matchOffset)
		if err != nil {
			return nil, err
		}
		totalEntries = int64(zip64EOCD.TotalNumberOfEntries)
		centralDirSize = int64(zip64EOCD.CentralDirSize)
		// findZip64EndOfCentralDir sets CentralDirOffset to the ZIP64
		// EOCD record's own offset minus the central directory size.
		centralDirOffset = int64(zip64EOCD.CentralDirOffset)
	}

	if centralDirOffset < 0 || centralDirSize < 0 || centralDirOffset+centralDirSize > size {
		return nil, newReaderError(KindBadFormat, fmt.Errorf("%w: central directory bounds out of range", ErrFormat))
	}

	cdBytes, err := r.source.Read(ctx, centralDirOffset, centralDirSize)
	if err != nil {
		return nil, fmt.Errorf("read central directory: %w", err)
	}

	return r.decodeCentralDir(ctx, cdBytes, totalEntries, &cfg)
}

func (r *Reader) findZip64EndOfCentralDir(ctx context.Context, size, eocdOffset int64) (headers.Zip64EndOfCentralDirectory, error) {
	locatorOffset := eocdOffset - zip64LocatorWindow
	if locatorOffset < 0 {
		return headers.Zip64EndOfCentralDirectory{}, newReaderError(KindEOCDLocatorZip64NotFound, ErrEOCDLocatorZip64NotFound)
	}

	locBytes, err := r.source.Read(ctx, locatorOffset, zip64LocatorWindow)
	if err != nil {
		return headers.Zip64EndOfCentralDirectory{}, fmt.Errorf("read zip64 locator: %w", err)
	}
	locator, err := headers.ReadZip64EndOfCentralDirLocator(bytes.NewReader(locBytes))
	if err != nil {
		return headers.Zip64EndOfCentralDirectory{}, newReaderError(KindEOCDLocatorZip64NotFound, fmt.Errorf("%w: %v", ErrEOCDLocatorZip64NotFound, err))
	}

	zip64Offset := int64(locator.Zip64EndOfCentralDirOffset)
	if zip64Offset < 0 || zip64Offset+headers.Zip64EndOfCentralDirLen > size {
		return headers.Zip64EndOfCentralDirectory{}, newReaderError(KindEOCDZip64NotFound, ErrEOCDZip64NotFound)
	}

	zip64Bytes, err := r.source.Read(ctx, zip64Offset, headers.Zip64EndOfCentralDirLen)
	if err != nil {
		return headers.Zip64EndOfCentralDirectory{}, fmt.Errorf("read zip64 end of central directory: %w", err)
	}
	zip64EOCD, err := headers.ReadZip64EndOfCentralDir(bytes.NewReader(zip64Bytes))
	if err != nil {
		return headers.Zip64EndOfCentralDirectory{}, newReaderError(KindEOCDZip64NotFound, fmt.Errorf("%w: %v", ErrEOCDZip64NotFound, err))
	}
	// The central directory ends where the ZIP64 EOCD record begins, so
	// its start is that record's offset minus the directory size.
	zip64EOCD.CentralDirOffset = uint64(zip64Offset) - zip64EOCD.CentralDirSize
	return zip64EOCD, nil
}

func (r *Reader) decodeCentralDir(ctx context.Context, cdBytes []byte, totalEntries int64, cfg *getEntriesConfig) ([]*Entry, error) {
	safeCap := totalEntries
	if safeCap > 1<<16 {
		safeCap = 1 << 16
	}
	entries := make([]*Entry, 0, safeCap)

	src := bytes.NewReader(cdBytes)
	for i := int64(0); i < totalEntries; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := headers.ReadCentralDirEntry(src)
		if err != nil {
			return nil, newReaderError(KindCentralDirectoryNotFound, fmt.Errorf("entry %d: %w", i, err))
		}

		entry, err := r.buildEntry(raw, cfg)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// buildEntry decodes one central-directory record into an Entry,
// applying extra-field ZIP64 promotion, AES effective-method unwrap, and
// Unicode-Path override.
func (r *Reader) buildEntry(raw headers.CentralDirectory, cfg *getEntriesConfig) (*Entry, error) {
	bf := decodeBitFlag(raw.GeneralPurposeBitFlag, raw.CompressionMethod)

	uncompressedSize := uint64(raw.UncompressedSize)
	compressedSize := uint64(raw.CompressedSize)
	localHeaderOffset := uint64(raw.LocalHeaderOffset)

	needUncompressed := raw.UncompressedSize == math.MaxUint32
	needCompressed := raw.CompressedSize == math.MaxUint32
	needOffset := raw.LocalHeaderOffset == math.MaxUint32

	fields, err := extra.Decode(raw.RawExtraField, needUncompressed, needCompressed, needOffset)
	if err != nil {
		return nil, newReaderError(KindExtraFieldZip64NotFound, fmt.Errorf("%w: %v", ErrExtraFieldZip64NotFound, err))
	}
	if fields.Zip64 != nil {
		if fields.Zip64.UncompressedSize != nil {
			uncompressedSize = *fields.Zip64.UncompressedSize
		}
		if fields.Zip64.CompressedSize != nil {
			compressedSize = *fields.Zip64.CompressedSize
		}
		if fields.Zip64.Offset != nil {
			localHeaderOffset = *fields.Zip64.Offset
		}
	}

	effectiveMethod := raw.CompressionMethod
	if fields.AES != nil {
		if err := fields.AES.Validate(raw.CompressionMethod); err != nil {
			return nil, newReaderError(KindUnsupportedEncryption, fmt.Errorf("%w: %v", ErrUnsupportedEncryption, err))
		}
		effectiveMethod = fields.AES.OriginalCompressionMethod
	}

	filename := decodeText(raw.RawFilename, bf, cfg.filenameDecoder)
	comment := decodeText(raw.RawComment, bf, cfg.commentDecoder)
	if fields.UnicodePath != nil && fields.UnicodePath.VerifyAgainst(raw.RawFilename) {
		filename = fields.UnicodePath.Path
	}

	directory := strings.HasSuffix(filename, "/")
	externalAttrs := raw.ExternalFileAttributes
	if classifyDirectory(raw) {
		directory = true
	}

	modTime, hasModTime := msDosToTime(raw.LastModFileDate, raw.LastModFileTime)

	return &Entry{
		offset:                localHeaderOffset,
		compressedSize:        compressedSize,
		uncompressedSize:      uncompressedSize,
		compressionMethod:     CompressionMethod(effectiveMethod),
		signature:             raw.CRC32,
		lastModDate:           modTime,
		hasModDate:            hasModTime,
		filename:              filename,
		comment:               comment,
		rawFilename:           raw.RawFilename,
		rawComment:            raw.RawComment,
		rawExtraField:         raw.RawExtraField,
		bitFlag:               bf,
		directory:             directory,
		extraField:            fields.Raw,
		extraFieldZip64:       fields.Zip64,
		extraFieldUnicodePath: fields.UnicodePath,
		extraFieldAES:         fields.AES,
		externalAttributes:    externalAttrs,
		versionMadeBy:         raw.VersionMadeBy,
		source:                r.source,
	}, nil
}
