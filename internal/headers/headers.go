// Copyright 2025 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package headers decodes the fixed-layout binary records of the ZIP
// format: the end-of-central-directory record (and its ZIP64 variants),
// the central directory file header, and the local file header.
//
// Everything here is read-only: this module never writes archives, so
// the encoders that the original gozip package carried alongside these
// decoders were dropped.
package headers

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Each record type is identified by a 4-byte signature beginning with
// the marker 0x4b50 ("PK").
const (
	CentralDirectorySignature            uint32 = 0x02014b50
	LocalFileHeaderSignature             uint32 = 0x04034b50
	EndOfCentralDirSignature             uint32 = 0x06054b50
	Zip64EndOfCentralDirSignature        uint32 = 0x06064b50
	Zip64EndOfCentralDirLocatorSignature uint32 = 0x07064b50
)

// Sizes of the fixed portions of each record, signature excluded unless stated.
const (
	LocalFileHeaderLen      = 30 // fixed portion, signature included
	CentralDirectoryFixed   = 42 // fixed portion after the 4-byte signature
	EndOfCentralDirFixed    = 18 // fixed portion after the 4-byte signature
	Zip64EndOfCentralDirLen = 56 // fixed portion read, signature included (see Design Note below)
	Zip64LocatorLen         = 20 // fixed size, signature included
)

// LocalFileHeader is the 30-byte preamble immediately before an entry's
// compressed data.
type LocalFileHeader struct {
	VersionNeededToExtract uint16
	GeneralPurposeBitFlag  uint16
	CompressionMethod      uint16
	LastModFileTime        uint16
	LastModFileDate        uint16
	CRC32                  uint32
	CompressedSize         uint32
	UncompressedSize       uint32
	FilenameLength         uint16
	ExtraFieldLength       uint16
}

// ReadLocalFileHeader reads and validates the 30-byte local file header
// starting at the current position of src (signature included).
func ReadLocalFileHeader(src io.Reader) (LocalFileHeader, error) {
	var buf [LocalFileHeaderLen]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return LocalFileHeader{}, fmt.Errorf("read local file header: %w", err)
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != LocalFileHeaderSignature {
		return LocalFileHeader{}, errSignature("local file header")
	}
	return LocalFileHeader{
		VersionNeededToExtract: binary.LittleEndian.Uint16(buf[4:6]),
		GeneralPurposeBitFlag:  binary.LittleEndian.Uint16(buf[6:8]),
		CompressionMethod:      binary.LittleEndian.Uint16(buf[8:10]),
		LastModFileTime:        binary.LittleEndian.Uint16(buf[10:12]),
		LastModFileDate:        binary.LittleEndian.Uint16(buf[12:14]),
		CRC32:                  binary.LittleEndian.Uint32(buf[14:18]),
		CompressedSize:         binary.LittleEndian.Uint32(buf[18:22]),
		UncompressedSize:       binary.LittleEndian.Uint32(buf[22:26]),
		FilenameLength:         binary.LittleEndian.Uint16(buf[26:28]),
		ExtraFieldLength:       binary.LittleEndian.Uint16(buf[28:30]),
	}, nil
}

// CentralDirectory is one entry of the central directory, including its
// variable-length filename/extra-field/comment payloads.
type CentralDirectory struct {
	VersionMadeBy          uint16
	VersionNeededToExtract uint16
	GeneralPurposeBitFlag  uint16
	CompressionMethod      uint16
	LastModFileTime        uint16
	LastModFileDate        uint16
	CRC32                  uint32
	CompressedSize         uint32
	UncompressedSize       uint32
	FilenameLength         uint16
	ExtraFieldLength       uint16
	FileCommentLength      uint16
	DiskNumberStart        uint16
	InternalFileAttributes uint16
	ExternalFileAttributes uint32
	LocalHeaderOffset      uint32
	RawFilename            []byte
	RawExtraField          []byte
	RawComment             []byte
}

// ReadCentralDirEntry reads one central-directory record, signature
// included, from the current position of src.
func ReadCentralDirEntry(src io.Reader) (CentralDirectory, error) {
	var sig [4]byte
	if _, err := io.ReadFull(src, sig[:]); err != nil {
		return CentralDirectory{}, fmt.Errorf("read central directory signature: %w", err)
	}
	if binary.LittleEndian.Uint32(sig[:]) != CentralDirectorySignature {
		return CentralDirectory{}, errSignature("central directory")
	}

	var buf [CentralDirectoryFixed]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return CentralDirectory{}, fmt.Errorf("read central directory entry: %w", err)
	}

	entry := CentralDirectory{
		VersionMadeBy:          binary.LittleEndian.Uint16(buf[0:2]),
		VersionNeededToExtract: binary.LittleEndian.Uint16(buf[2:4]),
		GeneralPurposeBitFlag:  binary.LittleEndian.Uint16(buf[4:6]),
		CompressionMethod:      binary.LittleEndian.Uint16(buf[6:8]),
		LastModFileTime:        binary.LittleEndian.Uint16(buf[8:10]),
		LastModFileDate:        binary.LittleEndian.Uint16(buf[10:12]),
		CRC32:                  binary.LittleEndian.Uint32(buf[12:16]),
		CompressedSize:         binary.LittleEndian.Uint32(buf[16:20]),
		UncompressedSize:       binary.LittleEndian.Uint32(buf[20:24]),
		FilenameLength:         binary.LittleEndian.Uint16(buf[24:26]),
		ExtraFieldLength:       binary.LittleEndian.Uint16(buf[26:28]),
		FileCommentLength:      binary.LittleEndian.Uint16(buf[28:30]),
		DiskNumberStart:        binary.LittleEndian.Uint16(buf[30:32]),
		InternalFileAttributes: binary.LittleEndian.Uint16(buf[32:34]),
		ExternalFileAttributes: binary.LittleEndian.Uint32(buf[34:38]),
		LocalHeaderOffset:      binary.LittleEndian.Uint32(buf[38:42]),
	}

	if entry.FilenameLength > 0 {
		entry.RawFilename = make([]byte, entry.FilenameLength)
		if _, err := io.ReadFull(src, entry.RawFilename); err != nil {
			return CentralDirectory{}, fmt.Errorf("read filename: %w", err)
		}
	}
	if entry.ExtraFieldLength > 0 {
		entry.RawExtraField = make([]byte, entry.ExtraFieldLength)
		if _, err := io.ReadFull(src, entry.RawExtraField); err != nil {
			return CentralDirectory{}, fmt.Errorf("read extra field: %w", err)
		}
	}
	if entry.FileCommentLength > 0 {
		entry.RawComment = make([]byte, entry.FileCommentLength)
		if _, err := io.ReadFull(src, entry.RawComment); err != nil {
			return CentralDirectory{}, fmt.Errorf("read comment: %w", err)
		}
	}

	return entry, nil
}

// EndOfCentralDirectory is the terminal 22-byte+comment ZIP record.
type EndOfCentralDirectory struct {
	ThisDiskNum                     uint16
	DiskNumWithTheStartOfCentralDir uint16
	TotalNumberOfEntriesOnThisDisk  uint16
	TotalNumberOfEntries            uint16
	CentralDirSize                  uint32
	CentralDirOffset                uint32
	CommentLength                   uint16
	Comment                         string
}

// ReadEndOfCentralDir reads the EOCD payload (signature already consumed
// by the caller's signature scan) starting at the current position of src.
func ReadEndOfCentralDir(src io.Reader) (EndOfCentralDirectory, error) {
	var buf [EndOfCentralDirFixed]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return EndOfCentralDirectory{}, fmt.Errorf("read end of central directory: %w", err)
	}
	end := EndOfCentralDirectory{
		ThisDiskNum:                     binary.LittleEndian.Uint16(buf[0:2]),
		DiskNumWithTheStartOfCentralDir: binary.LittleEndian.Uint16(buf[2:4]),
		TotalNumberOfEntriesOnThisDisk:  binary.LittleEndian.Uint16(buf[4:6]),
		TotalNumberOfEntries:            binary.LittleEndian.Uint16(buf[6:8]),
		CentralDirSize:                  binary.LittleEndian.Uint32(buf[8:12]),
		CentralDirOffset:                binary.LittleEndian.Uint32(buf[12:16]),
		CommentLength:                   binary.LittleEndian.Uint16(buf[16:18]),
	}
	if end.CommentLength > 0 {
		commentBuf := make([]byte, end.CommentLength)
		if _, err := io.ReadFull(src, commentBuf); err != nil {
			return EndOfCentralDirectory{}, fmt.Errorf("read archive comment: %w", err)
		}
		end.Comment = string(commentBuf)
	}
	return end, nil
}

// Zip64EndOfCentralDirectory is the extended EOCD record used once entry
// counts or sizes overflow their 32-bit fields.
type Zip64EndOfCentralDirectory struct {
	Size                            uint64
	VersionMadeBy                   uint16
	VersionNeededToExtract          uint16
	ThisDiskNum                     uint32
	DiskNumWithTheStartOfCentralDir uint32
	TotalNumberOfEntriesOnThisDisk  uint64
	TotalNumberOfEntries            uint64
	CentralDirSize                  uint64
	CentralDirOffset                uint64
}

// ReadZip64EndOfCentralDir reads the fixed 56-byte record (signature
// included). The "size of zip64 end of central directory record" field
// may indicate a larger, extensible record; per the behavior this module
// intentionally preserves from its reference implementation, any data
// beyond these 56 bytes is ignored.
func ReadZip64EndOfCentralDir(src io.Reader) (Zip64EndOfCentralDirectory, error) {
	var sig [4]byte
	if _, err := io.ReadFull(src, sig[:]); err != nil {
		return Zip64EndOfCentralDirectory{}, fmt.Errorf("read zip64 end of central directory signature: %w", err)
	}
	if binary.LittleEndian.Uint32(sig[:]) != Zip64EndOfCentralDirSignature {
		return Zip64EndOfCentralDirectory{}, errSignature("zip64 end of central directory")
	}

	var buf [52]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return Zip64EndOfCentralDirectory{}, fmt.Errorf("read zip64 end of central directory: %w", err)
	}
	return Zip64EndOfCentralDirectory{
		Size:                            binary.LittleEndian.Uint64(buf[0:8]),
		VersionMadeBy:                   binary.LittleEndian.Uint16(buf[8:10]),
		VersionNeededToExtract:          binary.LittleEndian.Uint16(buf[10:12]),
		ThisDiskNum:                     binary.LittleEndian.Uint32(buf[12:16]),
		DiskNumWithTheStartOfCentralDir: binary.LittleEndian.Uint32(buf[16:20]),
		TotalNumberOfEntriesOnThisDisk:  binary.LittleEndian.Uint64(buf[20:28]),
		TotalNumberOfEntries:            binary.LittleEndian.Uint64(buf[28:36]),
		CentralDirSize:                  binary.LittleEndian.Uint64(buf[36:44]),
		CentralDirOffset:                binary.LittleEndian.Uint64(buf[44:52]),
	}, nil
}

// Zip64EndOfCentralDirectoryLocator points at the ZIP64 EOCD record.
type Zip64EndOfCentralDirectoryLocator struct {
	EndOfCentralDirStartDiskNum uint32
	Zip64EndOfCentralDirOffset  uint64
	TotalNumberOfDisks          uint32
}

// ReadZip64EndOfCentralDirLocator reads the fixed 20-byte locator
// (signature included) that must immediately precede the EOCD record
// when the archive is in ZIP64 form.
func ReadZip64EndOfCentralDirLocator(src io.Reader) (Zip64EndOfCentralDirectoryLocator, error) {
	var sig [4]byte
	if _, err := io.ReadFull(src, sig[:]); err != nil {
		return Zip64EndOfCentralDirectoryLocator{}, fmt.Errorf("read zip64 locator signature: %w", err)
	}
	if binary.LittleEndian.Uint32(sig[:]) != Zip64EndOfCentralDirLocatorSignature {
		return Zip64EndOfCentralDirectoryLocator{}, errSignature("zip64 end of central directory locator")
	}

	var buf [16]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return Zip64EndOfCentralDirectoryLocator{}, fmt.Errorf("read zip64 locator: %w", err)
	}
	return Zip64EndOfCentralDirectoryLocator{
		EndOfCentralDirStartDiskNum: binary.LittleEndian.Uint32(buf[0:4]),
		Zip64EndOfCentralDirOffset:  binary.LittleEndian.Uint64(buf[4:12]),
		TotalNumberOfDisks:          binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}

// SignatureError reports that the expected 4-byte marker of a fixed
// record was not found at the position the caller expected it.
type SignatureError struct {
	Record string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("expected %s signature", e.Record)
}

func errSignature(record string) error {
	return &SignatureError{Record: record}
}
