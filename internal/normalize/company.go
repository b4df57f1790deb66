package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// symbolWords maps symbol characters to the word they stand for
var symbolWords = map[rune]string{
	'&': "and",
	'@': "at",
	'+': "plus",
}

// legalSuffixes are removed only when they are the trailing word of a name
var legalSuffixes = map[string]bool{
	"inc":          true,
	"incorporated": true,
	"corp":         true,
	"corporation":  true,
	"llc":          true,
	"ltd":          true,
	"limited":      true,
	"co":           true,
	"company":      true,
	"plc":          true,
	"llp":          true,
	"lp":           true,
	"gmbh":         true,
	"ag":           true,
	"sa":           true,
	"nv":           true,
	"bv":           true,
	"pty":          true,
	"srl":          true,
}

// CompanyName canonicalizes a raw company name for comparison.
//
// The result is lowercase, holds only letters, digits and single spaces, has
// symbols spelled out and trailing legal-entity suffixes removed. A suffix is
// never stripped when it is the only word left, so "Corp" stays "corp".
// CompanyName(CompanyName(s)) == CompanyName(s) for every s.
func CompanyName(raw string) string {
	if raw == "" {
		return ""
	}

	s := strings.ToLower(foldMarks(raw))

	b := strings.Builder{}
	b.Grow(len(s))
	for _, r := range s {
		if word, ok := symbolWords[r]; ok {
			b.WriteRune(' ')
			b.WriteString(word)
			b.WriteRune(' ')
			continue
		}
		switch {
		case r == '\'' || r == '.' || r == '’':
			// dropped outright so "L.L.C." and "McDonald's" stay one word
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	return strings.Join(StripLegalSuffixes(tokens), " ")
}

// StripLegalSuffixes drops trailing legal suffix tokens, keeping at least one token
func StripLegalSuffixes(tokens []string) []string {
	for len(tokens) > 1 && legalSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// IsLegalSuffix reports whether a normalized token is a known legal-entity suffix
func IsLegalSuffix(token string) bool {
	return legalSuffixes[token]
}

// Tokens returns the words of an already normalized name
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// foldMarks decomposes compatibility characters and removes combining marks (é -> e)
func foldMarks(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
