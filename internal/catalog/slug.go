package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxSlugLen caps slug length to keep URLs and index keys bounded.
const maxSlugLen = 60

var hashSuffixRe = regexp.MustCompile(`-[0-9a-f]{8,}$`)

// Slugify derives a deterministic slug from a source identifier:
// transliterated to ASCII, lowercased, non-alphanumerics collapsed to single
// hyphens, length-capped. Returns an empty string when nothing usable
// remains; callers fall back to FallbackSlug.
func Slugify(identifier string) string {
	// Strip diacritics (NFD decompose, drop combining marks).
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, identifier)
	if err != nil {
		ascii = identifier
	}

	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(ascii) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	return slug
}

// FallbackSlug returns a content-hash slug for identifiers that normalize to
// an empty string.
func FallbackSlug(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return "server-" + hex.EncodeToString(sum[:])[:10]
}

// HasHashSuffix reports whether a slug ends in a hex hash fragment, one of
// the structural low-quality signals.
func HasHashSuffix(slug string) bool {
	return hashSuffixRe.MatchString(slug)
}

// Humanize turns a slug-like identifier into a display name: the last path
// segment, hyphens and underscores to spaces, words title-cased.
func Humanize(identifier string) string {
	segment := identifier
	if idx := strings.LastIndexAny(segment, "/@"); idx >= 0 && idx < len(segment)-1 {
		segment = segment[idx+1:]
	}

	words := strings.FieldsFunc(segment, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
