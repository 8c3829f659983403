package zread

import (
	"bytes"
	compressflate "compress/flate"
	"encoding/binary"
	"hash/crc32"
	"math"

	"github.com/zreadio/zread/internal/headers"
)

// headersCentralDirFixture builds a headers.CentralDirectory record
// carrying the ZIP64 sentinel values (math.MaxUint32) for uncompressed
// size, compressed size, and local header offset, paired with extraField
// as its raw extra-field bytes — for exercising buildEntry's ZIP64
// promotion path directly, without a full archive round trip.
func headersCentralDirFixture(name string, extraField []byte) headers.CentralDirectory {
	return headers.CentralDirectory{
		VersionMadeBy:          0,
		CompressionMethod:      uint16(Stored),
		UncompressedSize:       math.MaxUint32,
		CompressedSize:         math.MaxUint32,
		LocalHeaderOffset:      math.MaxUint32,
		FilenameLength:         uint16(len(name)),
		ExtraFieldLength:       uint16(len(extraField)),
		RawFilename:            []byte(name),
		RawExtraField:          extraField,
	}
}

// testEntry describes one file to embed in a hand-built archive
// produced by buildArchive, which hand-builds the local-header-plus-data
// and central-directory buffers directly with binary.Write rather than
// shelling out to archive/zip.
type testEntry struct {
	name              string
	data              []byte
	method            uint16 // Stored or Deflated
	externalAttrs     uint32
	versionMadeBy     uint16
	generalPurposeBit uint16
	password          string // non-empty selects legacy ZipCrypto encryption
}

// buildArchive assembles a minimal, valid ZIP archive (local headers +
// data, central directory, EOCD) from entries, returning the complete
// byte slice, in central-directory order.
func buildArchive(entries []testEntry) []byte {
	var out bytes.Buffer
	type cdRecord struct {
		entry  testEntry
		offset uint32
		crc    uint32
		csize  uint32
		usize  uint32
	}
	var records []cdRecord

	for _, e := range entries {
		offset := uint32(out.Len())
		crc := crc32.ChecksumIEEE(e.data)

		payload := e.data
		if e.method == uint16(Deflated) {
			var buf bytes.Buffer
			fw, _ := compressflate.NewWriter(&buf, compressflate.DefaultCompression)
			fw.Write(e.data)
			fw.Close()
			payload = buf.Bytes()
		}

		gpbf := e.generalPurposeBit
		if e.password != "" {
			gpbf |= 0x1
			header := make([]byte, legacyHeaderSize)
			header[legacyHeaderSize-1] = byte(crc >> 24)
			plain := append(append([]byte{}, header...), payload...)
			cipher := newLegacyCipher(e.password)
			cipher.encryptInPlaceForTest(plain)
			payload = plain
		}

		binary.Write(&out, binary.LittleEndian, uint32(0x04034b50))
		binary.Write(&out, binary.LittleEndian, uint16(20))
		binary.Write(&out, binary.LittleEndian, gpbf)
		binary.Write(&out, binary.LittleEndian, e.method)
		binary.Write(&out, binary.LittleEndian, uint16(0)) // mod time
		binary.Write(&out, binary.LittleEndian, uint16(0x21)) // mod date: 1980-01-01
		binary.Write(&out, binary.LittleEndian, crc)
		binary.Write(&out, binary.LittleEndian, uint32(len(payload)))
		binary.Write(&out, binary.LittleEndian, uint32(len(e.data)))
		binary.Write(&out, binary.LittleEndian, uint16(len(e.name)))
		binary.Write(&out, binary.LittleEndian, uint16(0))
		out.WriteString(e.name)
		out.Write(payload)

		records = append(records, cdRecord{entry: e, offset: offset, crc: crc, csize: uint32(len(payload)), usize: uint32(len(e.data))})
	}

	cdStart := uint32(out.Len())
	for _, rec := range records {
		e := rec.entry
		gpbf := e.generalPurposeBit
		if e.password != "" {
			gpbf |= 0x1
		}
		binary.Write(&out, binary.LittleEndian, uint32(0x02014b50))
		binary.Write(&out, binary.LittleEndian, e.versionMadeBy)
		binary.Write(&out, binary.LittleEndian, uint16(20))
		binary.Write(&out, binary.LittleEndian, gpbf)
		binary.Write(&out, binary.LittleEndian, e.method)
		binary.Write(&out, binary.LittleEndian, uint16(0))
		binary.Write(&out, binary.LittleEndian, uint16(0x21))
		binary.Write(&out, binary.LittleEndian, rec.crc)
		binary.Write(&out, binary.LittleEndian, rec.csize)
		binary.Write(&out, binary.LittleEndian, rec.usize)
		binary.Write(&out, binary.LittleEndian, uint16(len(e.name)))
		binary.Write(&out, binary.LittleEndian, uint16(0))
		binary.Write(&out, binary.LittleEndian, uint16(0))
		binary.Write(&out, binary.LittleEndian, uint16(0))
		binary.Write(&out, binary.LittleEndian, uint16(0))
		binary.Write(&out, binary.LittleEndian, e.externalAttrs)
		binary.Write(&out, binary.LittleEndian, rec.offset)
		out.WriteString(e.name)
	}
	cdSize := uint32(out.Len()) - cdStart

	binary.Write(&out, binary.LittleEndian, uint32(0x06054b50))
	binary.Write(&out, binary.LittleEndian, uint16(0))
	binary.Write(&out, binary.LittleEndian, uint16(0))
	binary.Write(&out, binary.LittleEndian, uint16(len(records)))
	binary.Write(&out, binary.LittleEndian, uint16(len(records)))
	binary.Write(&out, binary.LittleEndian, cdSize)
	binary.Write(&out, binary.LittleEndian, cdStart)
	binary.Write(&out, binary.LittleEndian, uint16(0))

	return out.Bytes()
}

// encryptInPlaceForTest runs the legacy cipher's keystream over buf,
// encrypting if buf currently holds plaintext. The keystream XOR is its
// own inverse, but the key schedule is updated with the plaintext byte,
// which here is the input byte rather than the output, so this mirrors
// legacyCipher.Decrypt with input and output swapped instead of reusing
// it.
func (c *legacyCipher) encryptInPlaceForTest(buf []byte) {
	for i, pt := range buf {
		k := c.magicByte()
		ct := pt ^ k
		c.updateKeys(pt)
		buf[i] = ct
	}
}
