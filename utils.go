package zread

import (
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// msDosToTime reconstructs a calendar instant from the packed MS-DOS
// date/time fields used throughout the ZIP format (APPNOTE base year
// 1980, 1-indexed month). It reports false instead of failing when the
// fields are out of range, leaving the entry's mod time unset rather
// than failing the entry.
func msDosToTime(dosDate, dosTime uint16) (time.Time, bool) {
	day := int(dosDate & 0x1F)
	month := int((dosDate >> 5) & 0x0F)
	year := int((dosDate>>9)&0x7F) + 1980

	second := int(dosTime&0x1F) * 2
	minute := int((dosTime >> 5) & 0x3F)
	hour := int((dosTime >> 11) & 0x1F)

	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC), true
}

// defaultFallbackDecoder decodes legacy single-byte filenames/comments
// when bit 11 (EFS/language-encoding) is clear. CP-437 (IBM PC) is the
// ZIP format's traditional default; windows-1252 is accepted as a
// common superset approximation, so this reader defaults to CP-437 and
// lets callers override via ReaderOption.
var defaultFallbackDecoder = decodeCP437

// decodeText picks UTF-8 when the language-encoding flag is set, the
// caller-supplied fallback otherwise.
func decodeText(raw []byte, bf BitFlag, fallback func([]byte) string) string {
	if bf.LanguageEncodingFlag {
		return string(raw)
	}
	if fallback == nil {
		fallback = defaultFallbackDecoder
	}
	return fallback(raw)
}

// decodeCP437 decodes raw bytes as IBM code page 437, the legacy
// default for ZIP filenames produced by DOS/early Windows tooling. It's
// a single-byte charmap, so every byte decodes to exactly one rune and
// this can never fail.
func decodeCP437(raw []byte) string {
	decoded, err := charmap.CodePage437.NewDecoder().Bytes(raw)
	if err != nil {
		// charmap.CodePage437 maps every byte value; this path is
		// unreachable in practice, but fall back rather than lose data.
		return decodeWindows1252(raw)
	}
	return string(decoded)
}

// decodeWindows1252 decodes raw bytes as windows-1252, the superset
// approximation of CP-437 some archivers use instead (Glossary).
func decodeWindows1252(raw []byte) string {
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

// looksLikeValidUTF8 reports whether raw is already valid UTF-8, for
// callers that want to detect filenames a writer emitted as UTF-8
// without setting the EFS bit. decodeText does not consult it.
func looksLikeValidUTF8(raw []byte) bool {
	return utf8.Valid(raw)
}
