// Package text implements language detection, tokenization, keyword
// extraction and title similarity for mixed CJK/Latin news content.
package text

import (
	"strings"
	"unicode"
)

// cjkThreshold is the share of CJK runes above which input is treated as CJK.
const cjkThreshold = 0.3

const (
	minCJKTokenLen   = 2
	minLatinTokenLen = 3
)

func isCJKRune(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

// IsCJK reports whether at least 30% of the non-space runes are CJK.
func IsCJK(s string) bool {
	var total, cjk int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if isCJKRune(r) {
			cjk++
		}
	}
	if total == 0 {
		return false
	}
	return float64(cjk)/float64(total) >= cjkThreshold
}

// Tokenize splits text into language-appropriate tokens with stopwords and
// too-short tokens removed. CJK runs are segmented into overlapping bigrams;
// Latin runs become lowercased words.
func Tokenize(s string) []string {
	cjk := IsCJK(s)

	var tokens []string
	for _, run := range splitRuns(s) {
		if run.cjk {
			tokens = append(tokens, cjkBigrams(run.runes)...)
			continue
		}
		word := strings.ToLower(string(run.runes))
		if len([]rune(word)) < minLatinTokenLen {
			continue
		}
		tokens = append(tokens, word)
	}

	filtered := tokens[:0]
	for _, tok := range tokens {
		if isStopword(tok, cjk) {
			continue
		}
		filtered = append(filtered, tok)
	}
	return filtered
}

// TokenSet returns the distinct tokens of s, for set similarity.
func TokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokenize(s) {
		set[tok] = struct{}{}
	}
	return set
}

type runSegment struct {
	runes []rune
	cjk   bool
}

// splitRuns partitions the input into maximal same-kind runs: CJK runs and
// Latin alphanumeric runs. Everything else is a separator.
func splitRuns(s string) []runSegment {
	var runs []runSegment
	var current []rune
	currentCJK := false

	flush := func() {
		if len(current) > 0 {
			runs = append(runs, runSegment{runes: current, cjk: currentCJK})
			current = nil
		}
	}

	for _, r := range s {
		switch {
		case isCJKRune(r):
			if !currentCJK {
				flush()
			}
			currentCJK = true
			current = append(current, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if currentCJK {
				flush()
			}
			currentCJK = false
			current = append(current, r)
		default:
			flush()
		}
	}
	flush()
	return runs
}

// cjkBigrams segments one CJK run into overlapping character bigrams. A run
// of exactly two characters stays whole; single characters are dropped as
// below the minimum token length. Stopword characters break the run so
// bigrams never straddle them.
func cjkBigrams(runes []rune) []string {
	var parts [][]rune
	var current []rune
	for _, r := range runes {
		if _, stop := cjkStopwords[string(r)]; stop {
			if len(current) > 0 {
				parts = append(parts, current)
				current = nil
			}
			continue
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		parts = append(parts, current)
	}

	var tokens []string
	for _, part := range parts {
		if len(part) < minCJKTokenLen {
			continue
		}
		if len(part) == minCJKTokenLen {
			tokens = append(tokens, string(part))
			continue
		}
		for i := 0; i+1 < len(part); i++ {
			tokens = append(tokens, string(part[i:i+2]))
		}
	}
	return tokens
}
