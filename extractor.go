package zread

import (
	"bytes"
	"context"
	"fmt"

	"github.com/zreadio/zread/internal/headers"
)

// GetData re-reads the entry's local file header, builds the Codec
// chain its encryption/compression implies, and drives
// the chunked pipeline over the entry's payload into sink, returning
// whatever sink.Finalize produces.
//
// The only check against the central entry is the encryption bit: the
// entry counts as encrypted only when both headers set it. The local
// compression method and local extra field are not compared with the
// central entry.
//
// The local header re-read, bit-flag re-check, and codec dispatch build
// up what would be an io.ReadCloser chain in a blocking design, but are
// assembled here into a Codec handed to the chunked driver instead,
// since the Codec interface this reader drives is push-based rather
// than a blocking io.Reader.
func (r *Reader) GetData(ctx context.Context, entry *Entry, sink Sink, opts ...GetDataOption) (any, error) {
	cfg := newGetDataConfig(opts...)

	if err := r.ensureInit(ctx); err != nil {
		return nil, err
	}

	local, localBF, dataOffset, dosTime, err := r.readLocalDirectory(ctx, entry)
	if err != nil {
		return nil, err
	}
	entry.localDirectory = local

	encrypted := entry.bitFlag.Encrypted && localBF.Encrypted
	if encrypted && cfg.password == "" {
		return nil, newReaderError(KindEncrypted, ErrEncrypted)
	}

	method := NotEncrypted
	var legacyCheck byte
	switch {
	case !encrypted:
		method = NotEncrypted
	case entry.extraFieldAES != nil:
		method = AES256Encryption
	default:
		method = LegacyEncryption
		legacyCheck = legacyCheckByte(localBF, entry.signature, dosTime)
	}

	switch entry.compressionMethod {
	case Stored, Deflated:
	default:
		return nil, newReaderError(KindUnsupportedCompression, fmt.Errorf("%w: method %d", ErrUnsupportedCompression, entry.compressionMethod))
	}

	codecCfg := CodecConfig{
		Operation:       OpInflate,
		InputPassword:   cfg.password,
		InputSigned:     cfg.checkSignature,
		InputSignature:  entry.signature,
		InputCompressed: entry.compressionMethod == Deflated,
		InputEncrypted:  encrypted,
		CompressedSize:  int64(entry.compressedSize),
	}

	codec, err := r.codecFactory(codecCfg, method, legacyCheck)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Str("filename", entry.filename).
		Uint64("compressed_size", entry.compressedSize).
		Uint64("uncompressed_size", entry.uncompressedSize).
		Bool("encrypted", encrypted).
		Msg("extracting entry")

	err = runPipeline(ctx, entry.source, dataOffset, int64(entry.compressedSize), codec, sink, r.chunkSize, int64(entry.uncompressedSize), cfg.onProgress, r.logger)
	if err != nil {
		return nil, err
	}

	return sink.Finalize(ctx)
}

// readLocalDirectory re-reads the entry's 30-byte local file header plus
// the lengths of its variable-length filename/extra-field region,
// returning the transient localDirectory record and the absolute offset
// at which the entry's payload begins. The local extra field itself is
// not read; the record's aes field is copied from the central entry.
func (r *Reader) readLocalDirectory(ctx context.Context, entry *Entry) (*localDirectory, BitFlag, int64, uint16, error) {
	headerBytes, err := entry.source.Read(ctx, int64(entry.offset), headers.LocalFileHeaderLen)
	if err != nil {
		return nil, BitFlag{}, 0, 0, fmt.Errorf("read local file header: %w", err)
	}

	local, err := headers.ReadLocalFileHeader(bytes.NewReader(headerBytes))
	if err != nil {
		return nil, BitFlag{}, 0, 0, newReaderError(KindLocalFileHeaderNotFound, fmt.Errorf("%w: %v", ErrLocalFileHeaderNotFound, err))
	}

	bf := decodeBitFlag(local.GeneralPurposeBitFlag, local.CompressionMethod)

	dataOffset := int64(entry.offset) + headers.LocalFileHeaderLen + int64(local.FilenameLength) + int64(local.ExtraFieldLength)

	ld := &localDirectory{
		bitFlag:           bf,
		compressionMethod: local.CompressionMethod,
		filenameLength:    local.FilenameLength,
		extraFieldLength:  local.ExtraFieldLength,
		aes:               entry.extraFieldAES,
		encrypted:         bf.Encrypted,
	}

	return ld, bf, dataOffset, local.LastModFileTime, nil
}
