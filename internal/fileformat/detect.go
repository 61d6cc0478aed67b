// Package fileformat handles the messy edges of operator-supplied files:
// charset and delimiter sniffing for import CSVs, CIL extraction from
// spreadsheets and the zipped work-sheet archive.
package fileformat

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// delimiterSampleSize is how much decoded text the delimiter heuristic
// inspects. 50 KB covers a few hundred rows of a typical export.
const delimiterSampleSize = 50 * 1024

// DetectEncoding guesses the charset of raw file bytes by statistical
// byte-frequency analysis. Undetectable input falls back to UTF-8.
func DetectEncoding(raw []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(raw)
	if err != nil || result == nil || result.Charset == "" {
		return "UTF-8"
	}
	return result.Charset
}

// Decode converts raw bytes from the named charset to UTF-8. Unknown
// charsets and decode failures fall back to treating the input as UTF-8;
// a garbled row is skippable, a rejected file is not.
func Decode(raw []byte, charset string) []byte {
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return raw
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return raw
	}
	return decoded
}

// DetectDelimiter picks the field separator by counting comma and
// semicolon occurrences in the leading sample of decoded text. Semicolon
// wins only when it clearly dominates; quoted fields full of literal
// commas can skew this, which is an accepted limitation.
func DetectDelimiter(decoded []byte) rune {
	sample := decoded
	if len(sample) > delimiterSampleSize {
		sample = sample[:delimiterSampleSize]
	}
	commas := bytes.Count(sample, []byte{','})
	semicolons := bytes.Count(sample, []byte{';'})
	if semicolons > commas*2 {
		return ';'
	}
	return ','
}

// ReadAll drains a reader with a sanity cap so a runaway upload cannot
// exhaust memory.
func ReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

// SanitizeFilename strips characters that are invalid in file names,
// replaces spaces with underscores and caps the length.
func SanitizeFilename(name string) string {
	if name == "" {
		return "arquivo"
	}
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			// dropped
		case ' ':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return "arquivo"
	}
	if len(out) > 100 {
		out = out[:100]
	}
	return out
}
