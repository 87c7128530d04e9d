// Package slugify derives URL-safe board identifiers from titles.
package slugify

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"unicode"
)

// maxAttempts bounds the random-suffix retry loop in Unique.
const maxAttempts = 5

// Slug lowercases the title and collapses every run of non-alphanumeric
// characters into a single hyphen. An empty result means the title had no
// usable characters.
func Slug(title string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen

	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	return strings.TrimRight(b.String(), "-")
}

// Exists reports whether a candidate slug is already taken.
type Exists func(slug string) (bool, error)

// Unique returns the plain slug when free, otherwise retries with short
// random hex suffixes. The last candidate is returned unverified when every
// attempt collides, which keeps the caller moving; the insert's uniqueness
// constraint is the final arbiter.
func Unique(title string, exists Exists) (string, error) {
	base := Slug(title)
	if base == "" {
		base = "board"
	}

	candidate := base
	for attempt := 0; attempt < maxAttempts; attempt++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + randomSuffix()
	}

	return candidate, nil
}

func randomSuffix() string {
	buf := make([]byte, 2)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
