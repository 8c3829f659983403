package zread

import "context"

// RandomSource is the abstract, read-only, random-access byte store the
// reader runs against: an in-memory buffer, a local file, or a remote
// object accessed by ranged reads.
//
// Init is idempotent and deferred so that a caller can construct a
// RandomSource cheaply and only pay for (e.g.) an HTTP HEAD or an
// os.Open when the reader actually needs it. Size and Read may assume
// Init has already succeeded.
type RandomSource interface {
	// Size returns the total length of the archive in bytes.
	Size(ctx context.Context) (int64, error)

	// Initialized reports whether Init has already completed.
	Initialized() bool

	// Init performs any deferred setup. Calling Init more than once is
	// a no-op.
	Init(ctx context.Context) error

	// Read returns exactly length bytes starting at offset, or an
	// error. It does not mutate the source and may be called
	// concurrently with other Read calls on the same RandomSource
	// (concurrent extractions share one RandomSource).
	Read(ctx context.Context, offset int64, length int64) ([]byte, error)
}

// Sink accepts the ordered output of one entry extraction and produces
// an opaque result when the extraction completes successfully. A Sink
// is never shared across extractions; a cancelled extraction must
// re-initialize the Sink before reuse, its partial state discarded.
type Sink interface {
	// Initialized reports whether Init has already completed.
	Initialized() bool

	// Init performs any deferred setup (opening a file, allocating a
	// buffer, ...). A no-op if already initialized.
	Init(ctx context.Context) error

	// Write appends the next ordered chunk of decompressed output.
	Write(ctx context.Context, chunk []byte) error

	// Finalize completes the sink and returns its result. Finalize is
	// called exactly once, after the last Write, only on success.
	Finalize(ctx context.Context) (any, error)
}

// CodecOperation names the direction a Codec is configured for. Only
// inflation is specified here; the value exists so a single Codec
// interface can later grow a compress-side operation without breaking
// this reader's contract.
type CodecOperation int

const (
	// OpInflate configures a Codec to decrypt/decompress.
	OpInflate CodecOperation = iota
)

// CodecConfig parameterizes a CodecFactory. It is built by the entry
// extraction path from the cross-validated local/central header state
// of one entry.
type CodecConfig struct {
	Operation CodecOperation

	// InputPassword is the credential for encrypted entries. It carries
	// the caller's password even when InputEncrypted is false.
	InputPassword string

	// InputSigned, if true, requires Flush to verify the decompressed
	// CRC-32 against InputSignature and fail with an invalid-signature
	// condition on mismatch.
	InputSigned    bool
	InputSignature uint32

	// InputCompressed is false for STORE, true for DEFLATE.
	InputCompressed bool

	// InputEncrypted is the AND of the central and local encryption
	// bits.
	InputEncrypted bool

	// CompressedSize is the length, in bytes, of the ciphertext (or
	// plaintext, if not encrypted) payload the codec should expect to
	// consume in total across all Append calls. Needed by the AES codec
	// to know where its trailing authentication tag begins.
	CompressedSize int64
}

// FlushResult is the output of Codec.Flush: any trailing plaintext plus
// the CRC-32 of everything the codec ever emitted.
type FlushResult struct {
	Data      []byte
	Signature uint32
}

// Codec transforms compressed, possibly-encrypted byte chunks into
// plaintext. It is the one black-box collaborator this reader depends
// on but does not itself specify the algorithm for: this module ships a
// default implementation (compression.go, encryption.go) built on
// klauspost/compress and golang.org/x/crypto, but any type satisfying
// this interface may be substituted via CodecFactory.
//
// A Codec instance is used for exactly one extraction and is never
// shared or reused.
type Codec interface {
	// Init performs any deferred setup (deriving keys, allocating an
	// inflate window, ...).
	Init(ctx context.Context) error

	// Append feeds the next input chunk and returns the plaintext chunk
	// it produces, which may be empty if the codec is still buffering.
	// The default encrypting codecs return an error satisfying
	// errors.Is(err, ErrInvalidPassword) from Append when the password
	// check on the encryption header (AES verification value or legacy
	// check byte) fails.
	Append(ctx context.Context, chunk []byte) ([]byte, error)

	// Flush signals end of input and returns any trailing plaintext
	// plus the CRC-32 of the full plaintext stream. It returns an error
	// satisfying errors.Is(err, ErrInvalidSignature) on checksum
	// mismatch, or errors.Is(err, ErrInvalidPassword) on an AES
	// authenticity failure or a truncated encryption header.
	Flush(ctx context.Context) (FlushResult, error)
}

// CodecFactory constructs a Codec for one extraction: cfg carries the
// compression/signature parameters, method the confidentiality wrapper
// (if any) determined from the cross-validated header state, and
// legacyCheck the expected trailing byte of a
// ZipCrypto header (ignored for every other method). The default,
// DefaultCodecFactory, dispatches cfg.InputCompressed to the codecs in
// compression.go and method to encryption.go.
type CodecFactory func(cfg CodecConfig, method EncryptionMethod, legacyCheck byte) (Codec, error)
