package zread

import (
	"time"

	"github.com/zreadio/zread/internal/extra"
)

// CompressionMethod is the effective (post-AES-unwrap) compression
// algorithm of an entry's payload.
type CompressionMethod uint16

// Supported compression methods. Any other value observed in an
// archive is rejected with UNSUPPORTED_COMPRESSION — this reader is
// deliberately scoped to these two.
const (
	Stored   CompressionMethod = 0
	Deflated CompressionMethod = 8
)

// BitFlag is the decoded form of the ZIP general-purpose bit flag
// fields this reader cares about.
type BitFlag struct {
	Encrypted            bool
	DataDescriptor       bool // bit 3: sizes/CRC live in a trailing descriptor
	LanguageEncodingFlag bool // bit 11 (EFS): filename/comment are UTF-8
	EnhancedDeflating    bool // derived: true when raw bit 4 is clear and method is DEFLATE

	// Level is the 2-bit DEFLATE compression-level hint in bits 1-2.
	Level uint8
}

func decodeBitFlag(raw uint16, compressionMethod uint16) BitFlag {
	bf := BitFlag{
		Encrypted:            raw&0x1 != 0,
		Level:                uint8((raw >> 1) & 0x3),
		DataDescriptor:       raw&0x8 != 0,
		LanguageEncodingFlag: raw&0x800 != 0,
	}
	if compressionMethod == uint16(Deflated) {
		bf.EnhancedDeflating = raw&0x10 == 0
	}
	return bf
}

// Entry is the normalized, immutable view of one archived file produced
// by decoding a central directory record.
type Entry struct {
	offset           uint64
	compressedSize   uint64
	uncompressedSize uint64
	compressionMethod CompressionMethod
	signature        uint32
	lastModDate      time.Time
	hasModDate       bool

	filename string
	comment  string

	rawFilename    []byte
	rawComment     []byte
	rawExtraField  []byte

	bitFlag   BitFlag
	directory bool

	extraField             map[uint16][]byte
	extraFieldZip64        *extra.Zip64
	extraFieldUnicodePath  *extra.UnicodePath
	extraFieldAES          *extra.AES

	externalAttributes uint32
	versionMadeBy      uint16

	source RandomSource

	// localDirectory caches the local-header view once this entry has
	// been opened for extraction.
	localDirectory *localDirectory
}

// Offset returns the byte offset of the entry's local file header.
func (e *Entry) Offset() uint64 { return e.offset }

// CompressedSize returns the length, in bytes, of the entry's payload as
// stored in the archive.
func (e *Entry) CompressedSize() uint64 { return e.compressedSize }

// UncompressedSize returns the length, in bytes, of the entry's
// decompressed content.
func (e *Entry) UncompressedSize() uint64 { return e.uncompressedSize }

// CompressionMethod returns the effective compression method, i.e. the
// method applied after any AES unwrap (invariant 3).
func (e *Entry) CompressionMethod() CompressionMethod { return e.compressionMethod }

// Signature returns the expected CRC-32 of the decompressed content, or
// 0 if the archive did not record one.
func (e *Entry) Signature() uint32 { return e.signature }

// ModTime returns the calendar instant reconstructed from the entry's
// MS-DOS date/time, and whether that reconstruction succeeded (an
// out-of-range MS-DOS date leaves the entry without a mod time rather
// than failing the entry).
func (e *Entry) ModTime() (time.Time, bool) { return e.lastModDate, e.hasModDate }

// Filename returns the entry's decoded path.
func (e *Entry) Filename() string { return e.filename }

// Comment returns the entry's decoded comment.
func (e *Entry) Comment() string { return e.comment }

// RawFilename returns the immutable, un-decoded filename bytes as
// stored in the central directory.
func (e *Entry) RawFilename() []byte { return e.rawFilename }

// RawComment returns the immutable, un-decoded comment bytes.
func (e *Entry) RawComment() []byte { return e.rawComment }

// RawExtraField returns the immutable, raw extra-field region.
func (e *Entry) RawExtraField() []byte { return e.rawExtraField }

// BitFlag returns the decoded general-purpose bit flag.
func (e *Entry) BitFlag() BitFlag { return e.bitFlag }

// IsDir reports whether this entry is a directory: either the
// external-attributes directory bit is set, or the filename ends in
// "/".
func (e *Entry) IsDir() bool { return e.directory }

// Encrypted mirrors BitFlag().Encrypted.
func (e *Entry) Encrypted() bool { return e.bitFlag.Encrypted }

// ExtraField returns the raw tag -> payload map of the entry's extra
// field region (first occurrence of a duplicate tag wins).
func (e *Entry) ExtraField() map[uint16][]byte { return e.extraField }

// ExtraFieldZip64 returns the decoded ZIP64 extra field, or nil if the
// entry didn't carry one.
func (e *Entry) ExtraFieldZip64() *extra.Zip64 { return e.extraFieldZip64 }

// ExtraFieldUnicodePath returns the decoded Unicode Path extra field, or
// nil if the entry didn't carry one.
func (e *Entry) ExtraFieldUnicodePath() *extra.UnicodePath { return e.extraFieldUnicodePath }

// ExtraFieldAES returns the decoded WinZip AES extra field, or nil if
// the entry isn't AES-wrapped.
func (e *Entry) ExtraFieldAES() *extra.AES { return e.extraFieldAES }

// ExternalAttributes returns the raw external-attributes field from the
// central directory, host-system-dependent per APPNOTE.
func (e *Entry) ExternalAttributes() uint32 { return e.externalAttributes }

// localDirectory is the transient, per-extraction record produced when
// an entry is opened, read fresh from the local file header except for
// aes, which is copied from the central entry. Only its encryption bit
// is compared with the central entry.
type localDirectory struct {
	bitFlag                  BitFlag
	compressionMethod        uint16
	filenameLength           uint16
	extraFieldLength         uint16
	aes                      *extra.AES
	encrypted                bool
}
