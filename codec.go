package zread

import "fmt"

// EncryptionMethod names the per-entry confidentiality wrapper a Codec
// must unwrap before compression even comes into play (invariant 3).
type EncryptionMethod int

const (
	// NotEncrypted means bit 0 of the general-purpose flag is clear.
	NotEncrypted EncryptionMethod = iota
	// LegacyEncryption is the original PKWARE stream cipher ("ZipCrypto").
	LegacyEncryption
	// AES256Encryption is WinZip AE-2, vendor version 2, 256-bit key.
	AES256Encryption
)

// DefaultCodecFactory builds the Codec this reader ships out of the
// box: STORE or DEFLATE (compression.go), optionally wrapped in legacy
// ZipCrypto or WinZip AES-256 (encryption.go). The entry extraction
// path selects it unless the caller supplied a CodecFactory of their
// own.
func DefaultCodecFactory(cfg CodecConfig, method EncryptionMethod, legacyCheck byte) (Codec, error) {
	var inner Codec
	if cfg.InputCompressed {
		inner = newDeflateCodec(cfg)
	} else {
		inner = newStoreCodec(cfg)
	}

	switch method {
	case NotEncrypted:
		return inner, nil
	case LegacyEncryption:
		return newLegacyCodec(cfg, inner, legacyCheck), nil
	case AES256Encryption:
		return newAESCodec(cfg, inner)
	default:
		return nil, fmt.Errorf("zread: unknown encryption method %d", method)
	}
}
