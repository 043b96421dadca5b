package build

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeText checks that b is valid UTF-8 and strips a leading byte-order mark.
func decodeText(b []byte) ([]byte, error) {
	if off := invalidOffset(b); off >= 0 {
		return nil, fmt.Errorf("%w at byte %d", ErrInvalidUTF8, off)
	}
	out, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUTF8, err)
	}
	return out, nil
}

// invalidOffset returns the offset of the first invalid byte, or -1.
func invalidOffset(b []byte) int {
	if utf8.Valid(b) {
		return -1
	}
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}
