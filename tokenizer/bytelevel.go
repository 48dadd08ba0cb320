package tokenizer

import (
	"fmt"
	"strings"
)

// The byte-level codec gives every raw byte a visible stand-in rune so
// merge rules can treat arbitrary byte sequences as ordinary text.
// Visible Latin-1 bytes map to themselves; the rest (controls, space,
// 0x7f-0xa0, 0xad) are displaced to 0x100 and up in ascending byte
// order. Byte 0x20 therefore becomes U+0120 which renders as "Ġ".
var (
	byteToGlyph [256]rune
	glyphToByte map[rune]byte
)

func init() {
	visible := func(b int) bool {
		return (b >= '!' && b <= '~') || (b >= 0xa1 && b <= 0xac) || (b >= 0xae && b <= 0xff)
	}

	glyphToByte = make(map[rune]byte, 256)
	next := rune(0x100)
	for b := range 256 {
		r := rune(b)
		if !visible(b) {
			r = next
			next++
		}

		byteToGlyph[b] = r
		glyphToByte[r] = byte(b)
	}
}

// glyphEncode rewrites the raw bytes of s as their stand-in runes.
func glyphEncode(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, b := range []byte(s) {
		sb.WriteRune(byteToGlyph[b])
	}

	return sb.String()
}

// glyphDecode recovers the raw bytes behind a glyph string. A rune
// outside the codec is reported rather than silently dropped.
func glyphDecode(s string) ([]byte, error) {
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := glyphToByte[r]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMalformedGlyph, r)
		}

		buf = append(buf, b)
	}

	return buf, nil
}
