package utils

import (
	"bytes"
	"unicode/utf8"
)

// sniffLength defines the maximum number of bytes inspected when detecting binary content.
const sniffLength = 8000

// IsBinary reports whether the provided byte slice appears to contain binary data.
// Only the leading sniffLength bytes are inspected.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	sample := data
	if len(sample) > sniffLength {
		sample = sample[:sniffLength]
		for trim := 0; trim < utf8.UTFMax && !utf8.Valid(sample); trim++ {
			sample = sample[:len(sample)-1]
		}
	}
	if !utf8.Valid(sample) {
		return true
	}
	return bytes.IndexByte(sample, 0) >= 0
}
