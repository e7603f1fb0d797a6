package oyster

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// HexToBytes converts a hex payload into raw frame bytes.
// Whitespace anywhere in the input and a leading 0x/0X are ignored.
// Empty input yields an empty slice, not an error.
func HexToBytes(s string) ([]byte, error) {
	clean := stripWhitespace(s)
	if strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0X") {
		clean = clean[2:]
	}
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("%w: odd number of digits (%d)", ErrInvalidHex, len(clean))
	}
	out := make([]byte, len(clean)/2)
	if _, err := hex.Decode(out, []byte(clean)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHex, err)
	}

	return out, nil
}

func stripWhitespace(s string) string {
	if strings.IndexFunc(s, unicode.IsSpace) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}
