package headers

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestReadLocalFileHeader(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, LocalFileHeaderSignature)
	binary.Write(&buf, binary.LittleEndian, uint16(20))   // version needed
	binary.Write(&buf, binary.LittleEndian, uint16(0))    // gpbf
	binary.Write(&buf, binary.LittleEndian, uint16(8))    // method
	binary.Write(&buf, binary.LittleEndian, uint16(0))    // mod time
	binary.Write(&buf, binary.LittleEndian, uint16(0x21)) // mod date
	binary.Write(&buf, binary.LittleEndian, uint32(0xdeadbeef))
	binary.Write(&buf, binary.LittleEndian, uint32(100))
	binary.Write(&buf, binary.LittleEndian, uint32(200))
	binary.Write(&buf, binary.LittleEndian, uint16(7)) // filename length
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // extra length

	got, err := ReadLocalFileHeader(&buf)
	if err != nil {
		t.Fatalf("ReadLocalFileHeader() error = %v", err)
	}
	if got.CompressionMethod != 8 || got.CRC32 != 0xdeadbeef || got.FilenameLength != 7 {
		t.Errorf("got %+v", got)
	}
}

func TestReadLocalFileHeaderBadSignature(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, LocalFileHeaderLen))
	if _, err := ReadLocalFileHeader(buf); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestReadCentralDirEntryRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, CentralDirectorySignature)
	binary.Write(&buf, binary.LittleEndian, uint16(798)) // version made by (unix)
	binary.Write(&buf, binary.LittleEndian, uint16(20))
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint16(0x21))
	binary.Write(&buf, binary.LittleEndian, uint32(123))
	binary.Write(&buf, binary.LittleEndian, uint32(50))
	binary.Write(&buf, binary.LittleEndian, uint32(100))
	binary.Write(&buf, binary.LittleEndian, uint16(4)) // filename length
	binary.Write(&buf, binary.LittleEndian, uint16(2)) // extra length
	binary.Write(&buf, binary.LittleEndian, uint16(3)) // comment length
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	binary.Write(&buf, binary.LittleEndian, uint32(500))
	buf.WriteString("a.go")
	buf.Write([]byte{0xAA, 0xBB})
	buf.WriteString("hi!")

	got, err := ReadCentralDirEntry(&buf)
	if err != nil {
		t.Fatalf("ReadCentralDirEntry() error = %v", err)
	}
	if string(got.RawFilename) != "a.go" {
		t.Errorf("RawFilename = %q, want a.go", got.RawFilename)
	}
	if string(got.RawComment) != "hi!" {
		t.Errorf("RawComment = %q, want hi!", got.RawComment)
	}
	if !bytes.Equal(got.RawExtraField, []byte{0xAA, 0xBB}) {
		t.Errorf("RawExtraField = %x", got.RawExtraField)
	}
	if got.LocalHeaderOffset != 500 {
		t.Errorf("LocalHeaderOffset = %d, want 500", got.LocalHeaderOffset)
	}
}

func TestReadEndOfCentralDirWithComment(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint16(3))
	binary.Write(&buf, binary.LittleEndian, uint16(3))
	binary.Write(&buf, binary.LittleEndian, uint32(1000))
	binary.Write(&buf, binary.LittleEndian, uint32(2000))
	binary.Write(&buf, binary.LittleEndian, uint16(5))
	buf.WriteString("hello")

	got, err := ReadEndOfCentralDir(&buf)
	if err != nil {
		t.Fatalf("ReadEndOfCentralDir() error = %v", err)
	}
	if got.Comment != "hello" {
		t.Errorf("Comment = %q, want hello", got.Comment)
	}
	if got.CentralDirOffset != 2000 || got.CentralDirSize != 1000 {
		t.Errorf("got %+v", got)
	}
}

func TestReadZip64EndOfCentralDirLocator(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, Zip64EndOfCentralDirLocatorSignature)
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	binary.Write(&buf, binary.LittleEndian, uint64(123456))
	binary.Write(&buf, binary.LittleEndian, uint32(1))

	got, err := ReadZip64EndOfCentralDirLocator(&buf)
	if err != nil {
		t.Fatalf("ReadZip64EndOfCentralDirLocator() error = %v", err)
	}
	if got.Zip64EndOfCentralDirOffset != 123456 {
		t.Errorf("Zip64EndOfCentralDirOffset = %d, want 123456", got.Zip64EndOfCentralDirOffset)
	}
}
