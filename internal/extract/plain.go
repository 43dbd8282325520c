package extract

import (
	"golang.org/x/text/encoding/unicode"
)

// decodeText decodes content as UTF-8, substituting U+FFFD for invalid byte
// sequences instead of failing.
func decodeText(content []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(content)
	if err != nil {
		// The replacing decoder does not fail on bad input; keep the bytes as a last resort.
		return string(content)
	}
	return string(out)
}

// extractPlain is the fallback for unknown extensions.
func extractPlain(content []byte) (string, error) {
	return decodeText(content), nil
}

// extractCSV returns CSV content as text without parsing it.
func extractCSV(content []byte) (string, error) {
	return decodeText(content), nil
}
