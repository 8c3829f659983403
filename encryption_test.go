package zread

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/hmac"
	"crypto/sha1"
	"hash/crc32"
	"testing"
)

func TestLegacyCipherCheckByteRoundTrip(t *testing.T) {
	password := "hunter2"
	content := []byte("legacy cipher payload, a bit longer than one block")
	crc := crc32.ChecksumIEEE(content)

	header := make([]byte, legacyHeaderSize)
	header[legacyHeaderSize-1] = byte(crc >> 24)
	plain := append(append([]byte{}, header...), content...)
	enc := newLegacyCipher(password)
	enc.encryptInPlaceForTest(plain)

	cfg := CodecConfig{InputPassword: password, InputSigned: true, InputSignature: crc}
	inner := newStoreCodec(cfg)
	codec := newLegacyCodec(cfg, inner, byte(crc>>24))
	ctx := context.Background()
	if err := codec.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	var got bytes.Buffer
	for i := 0; i < len(plain); i += 5 {
		end := i + 5
		if end > len(plain) {
			end = len(plain)
		}
		out, err := codec.Append(ctx, plain[i:end])
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		got.Write(out)
	}
	if _, err := codec.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if !bytes.Equal(got.Bytes(), content) {
		t.Errorf("decrypted = %q, want %q", got.Bytes(), content)
	}
}

func TestLegacyCipherWrongCheckByteRejected(t *testing.T) {
	password := "hunter2"
	header := make([]byte, legacyHeaderSize)
	enc := newLegacyCipher(password)
	enc.encryptInPlaceForTest(header)

	cfg := CodecConfig{InputPassword: "wrong password entirely"}
	inner := newStoreCodec(cfg)
	codec := newLegacyCodec(cfg, inner, 0x99)
	ctx := context.Background()
	codec.Init(ctx)
	if _, err := codec.Append(ctx, header); err == nil {
		t.Fatal("expected INVALID_PASSWORD error on check byte mismatch")
	}
}

func TestAESCodecRoundTrip(t *testing.T) {
	password := "correct horse battery staple"
	salt := bytes.Repeat([]byte{0x5a}, aes256SaltSize)
	content := []byte("aes-256 protected payload, spanning more than one cipher block of data")

	keys := deriveAESKeys(password, salt)
	block, err := aes.NewCipher(keys.encKey)
	if err != nil {
		t.Fatalf("aes.NewCipher() error = %v", err)
	}
	stream := newWinZipCounter(block)
	ciphertext := make([]byte, len(content))
	stream.XORKeyStream(ciphertext, content)

	mac := hmacSum(keys.macKey, ciphertext)

	var payload bytes.Buffer
	payload.Write(salt)
	payload.Write(keys.pvv)
	payload.Write(ciphertext)
	payload.Write(mac)

	crc := crc32.ChecksumIEEE(content)
	cfg := CodecConfig{
		InputPassword:  password,
		InputSigned:    true,
		InputSignature: crc,
		CompressedSize: int64(payload.Len()),
	}
	inner := newStoreCodec(cfg)
	codec, err := newAESCodec(cfg, inner)
	if err != nil {
		t.Fatalf("newAESCodec() error = %v", err)
	}
	ctx := context.Background()
	if err := codec.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	var got bytes.Buffer
	data := payload.Bytes()
	for i := 0; i < len(data); i += 9 {
		end := i + 9
		if end > len(data) {
			end = len(data)
		}
		out, err := codec.Append(ctx, data[i:end])
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		got.Write(out)
	}
	if _, err := codec.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if !bytes.Equal(got.Bytes(), content) {
		t.Errorf("decrypted = %q, want %q", got.Bytes(), content)
	}
}

func TestAESCodecBadMACRejected(t *testing.T) {
	password := "correct horse battery staple"
	salt := bytes.Repeat([]byte{0x5a}, aes256SaltSize)
	content := []byte("short payload")

	keys := deriveAESKeys(password, salt)
	block, _ := aes.NewCipher(keys.encKey)
	stream := newWinZipCounter(block)
	ciphertext := make([]byte, len(content))
	stream.XORKeyStream(ciphertext, content)

	var payload bytes.Buffer
	payload.Write(salt)
	payload.Write(keys.pvv)
	payload.Write(ciphertext)
	payload.Write(bytes.Repeat([]byte{0x00}, aesMacSize)) // wrong MAC

	cfg := CodecConfig{InputPassword: password, CompressedSize: int64(payload.Len())}
	inner := newStoreCodec(cfg)
	codec, err := newAESCodec(cfg, inner)
	if err != nil {
		t.Fatalf("newAESCodec() error = %v", err)
	}
	ctx := context.Background()
	codec.Init(ctx)
	codec.Append(ctx, payload.Bytes())
	if _, err := codec.Flush(ctx); err == nil {
		t.Fatal("expected INVALID_PASSWORD error on MAC mismatch")
	}
}

func hmacSum(key, data []byte) []byte {
	m := hmac.New(sha1.New, key)
	m.Write(data)
	return m.Sum(nil)[:aesMacSize]
}
