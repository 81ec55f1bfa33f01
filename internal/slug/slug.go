// Package slug turns free-text titles into URL-safe item identifiers.
package slug

import (
	"crypto/rand"
	"regexp"
	"strings"
)

// SuffixLength is the number of random characters appended to a generated slug.
const SuffixLength = 6

// fallback is used when a title has no usable characters.
const fallback = "item"

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	valid    = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// Generate derives a slug from title: lowercased, runs of anything outside
// [a-z0-9] collapsed to one hyphen, trimmed, and suffixed with a random
// 6-character token. It does no I/O and does not guarantee uniqueness.
func Generate(title string) string {
	base := strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if base == "" {
		base = fallback
	}
	return base + "-" + randomSuffix(SuffixLength)
}

// Valid reports whether s is a well-formed slug.
func Valid(s string) bool {
	return valid.MatchString(s)
}

// randomSuffix returns n characters drawn uniformly from alphabet.
func randomSuffix(n int) string {
	// 252 is the largest multiple of len(alphabet) below 256; rejecting bytes
	// above it keeps the distribution uniform.
	const limit = 256 - 256%len(alphabet)

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		rand.Read(buf)
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}
