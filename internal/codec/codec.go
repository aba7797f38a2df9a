// Package codec implements the scalar codecs used by the lobby directory
// wire format: the legacy single-byte text encoding, the 65-symbol
// fixed-width session identity encoding, and the high-bit mask applied to
// raw platform identifiers.
package codec

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// idAlphabet is the directory's custom 65-symbol alphabet: a leading
// sentinel, decimal digits, uppercase, lowercase, then two punctuation
// symbols. Each character carries 6 bits, least-significant character first.
const idAlphabet = "@0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz+-"

// IDTokenLength is the canonical encoded length of a full 64-bit identity.
const IDTokenLength = 11

// RawIDMask clears everything above bit 55 of a raw numeric identifier.
// The directory stuffs routing flags into the top byte.
const RawIDMask = uint64(0x00FFFFFFFFFFFFFF)

// c1Table maps bytes 0x80-0x9F of the legacy code page to their Unicode
// code points. 0x00-0x7F is ASCII and 0xA0-0xFF passes through verbatim.
var c1Table = [32]rune{
	0x20AC, 0x0081, 0x201A, 0x0192, 0x201E, 0x2026, 0x2020, 0x2021,
	0x02C6, 0x2030, 0x0160, 0x2039, 0x0152, 0x008D, 0x017D, 0x008F,
	0x0090, 0x2018, 0x2019, 0x201C, 0x201D, 0x2022, 0x2013, 0x2014,
	0x02DC, 0x2122, 0x0161, 0x203A, 0x0153, 0x009D, 0x017E, 0x0178,
}

// DecodeLegacyText decodes a byte sequence under the directory's legacy
// code page. Decoding stops at the first NUL byte and the result is
// trimmed of surrounding whitespace. It never fails: the worst case is a
// byte-for-byte passthrough of the input.
func DecodeLegacyText(raw []byte) string {
	var sb strings.Builder
	sb.Grow(len(raw))

	for _, b := range raw {
		if b == 0x00 {
			break
		}
		switch {
		case b < 0x80:
			sb.WriteByte(b)
		case b < 0xA0:
			sb.WriteRune(c1Table[b-0x80])
		default:
			sb.WriteRune(rune(b))
		}
	}

	return strings.TrimSpace(sb.String())
}

// DecodeFixedWidthID decodes an alphabet-encoded identity token into its
// 64-bit value. Character i contributes 6 bits at position 6*i, so the
// first character is the least significant. Characters outside the
// alphabet contribute nothing and are skipped; the second return is false
// only for an empty token.
func DecodeFixedWidthID(token string) (uint64, bool) {
	if token == "" {
		return 0, false
	}

	var id uint64
	for i := 0; i < len(token); i++ {
		v := strings.IndexByte(idAlphabet, token[i])
		if v < 0 {
			continue
		}
		id |= uint64(v) << (6 * uint(i))
	}
	return id, true
}

// EncodeFixedWidthID renders a 64-bit value as its canonical
// 11-character token. Used for diagnostics and round-trip tests; the
// directory itself only ever sends encoded tokens.
func EncodeFixedWidthID(id uint64) string {
	buf := make([]byte, IDTokenLength)
	for i := 0; i < IDTokenLength; i++ {
		buf[i] = idAlphabet[(id>>(6*uint(i)))&0x3F]
	}
	return string(buf)
}

// MaskHighBits parses rawID as an unsigned 64-bit integer, clears bits
// above bit 55, and returns the decimal form. A value that does not parse
// is returned unchanged; the directory occasionally ships garbage here
// and a lossy passthrough beats losing the record.
func MaskHighBits(rawID string) string {
	n, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		log.Warn().Str("raw_id", rawID).Msg("unparseable numeric id, passing through")
		return rawID
	}
	return strconv.FormatUint(n&RawIDMask, 10)
}
