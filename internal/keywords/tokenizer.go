package keywords

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMinTokenLength is the extraction floor: runs shorter than this never
// become candidate tokens. The grouping stage applies its own, stricter noise
// floor on top (see Grouper).
const DefaultMinTokenLength = 2

var (
	// Queries mix Arabic and Latin script freely ("فيتامين d3 1000"), so
	// extraction runs three pattern classes over the raw text. Latin runs
	// need three letters to avoid picking up unit suffixes and stray chars.
	arabicRunPattern = regexp.MustCompile(`[\p{Arabic}]{2,}`)
	latinRunPattern  = regexp.MustCompile(`[a-zA-Z]{3,}`)
	digitRunPattern  = regexp.MustCompile(`[0-9]{2,}`)
)

var tokenPatterns = []*regexp.Regexp{arabicRunPattern, latinRunPattern, digitRunPattern}

// Tokenize extracts the deduplicated, lower-cased candidate tokens from a raw
// search query. Tokens keep first-appearance order within each pattern class
// so runs over the same input are deterministic. Empty input yields nil.
func Tokenize(text string, minLength int) []string {
	if text == "" {
		return nil
	}
	if minLength <= 0 {
		minLength = DefaultMinTokenLength
	}

	seen := make(map[string]struct{})
	var tokens []string
	for _, pattern := range tokenPatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			token := strings.ToLower(match)
			if utf8.RuneCountInString(token) < minLength {
				continue
			}
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			tokens = append(tokens, token)
		}
	}
	return tokens
}
