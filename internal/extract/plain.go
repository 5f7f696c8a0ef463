package extract

import (
	"unicode/utf8"
)

// cp1252High maps bytes 0x80-0x9F to their Windows-1252 runes. Entries that are
// undefined in CP1252 fall back to the identity (Latin-1) mapping.
var cp1252High = [32]rune{
	0x20AC, 0x81, 0x201A, 0x0192, 0x201E, 0x2026, 0x2020, 0x2021,
	0x02C6, 0x2030, 0x0160, 0x2039, 0x0152, 0x8D, 0x017D, 0x8F,
	0x90, 0x2018, 0x2019, 0x201C, 0x201D, 0x2022, 0x2013, 0x2014,
	0x02DC, 0x2122, 0x0161, 0x203A, 0x0153, 0x9D, 0x017E, 0x0178,
}

// decodeText decodes bytes as text, trying UTF-8 first and falling back to a
// Windows-1252/Latin-1 single-byte decode. A single-byte decode cannot fail,
// so decodeText always produces a non-degraded Result.
func decodeText(content []byte) Result {
	if utf8.Valid(content) {
		return Result{Text: string(content)}
	}
	runes := make([]rune, 0, len(content))
	for _, b := range content {
		switch {
		case b < 0x80:
			runes = append(runes, rune(b))
		case b < 0xA0:
			runes = append(runes, cp1252High[b-0x80])
		default:
			runes = append(runes, rune(b))
		}
	}
	return Result{Text: string(runes)}
}
