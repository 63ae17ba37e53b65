// Package similarity provides the text comparison primitives used to decide
// whether a block of text has changed enough to re-summarize: normalization,
// tokenization, Jaccard similarity, and a stable content fingerprint.
package similarity

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// Normalized inputs longer than this get token-sampled before comparison.
	maxNormalizedLength = 10000
	// Target size of the sampled view of an oversized input.
	sampleTargetLength = 5000
	// Tokens shorter than this carry no comparison signal.
	minTokenLength = 2
)

// Normalize lowercases the text, strips everything outside word characters
// and basic punctuation, collapses whitespace runs to single spaces, and
// trims. It is total: any input yields a (possibly empty) string.
func Normalize(text string) string {
	lowered := strings.ToLower(text)

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		switch r {
		case '.', ',', '!', '?', ';', ':', '\'', '-':
			return r
		}
		return -1
	}, lowered)

	// Collapse whitespace runs and trim in one pass.
	return strings.Join(strings.Fields(cleaned), " ")
}

// Tokenize normalizes the text and splits it into a set of content tokens:
// punctuation and whitespace are separators, tokens shorter than 2 runes,
// stop words, and tokens without a word character are discarded.
//
// Inputs whose normalized form exceeds 10,000 characters are uniformly
// sampled down to roughly 5,000 characters of tokens before filtering, so
// comparison latency stays bounded on large documents.
func Tokenize(text string) map[string]struct{} {
	normalized := Normalize(text)
	if normalized == "" {
		return map[string]struct{}{}
	}

	raw := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '\''
	})

	if chars := utf8.RuneCountInString(normalized); chars > maxNormalizedLength {
		raw = sampleTokens(raw, chars)
	}

	tokens := make(map[string]struct{}, len(raw))
	for _, tok := range raw {
		tok = strings.Trim(tok, "'")
		if len([]rune(tok)) < minTokenLength {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if !hasWordChar(tok) {
			continue
		}
		tokens[tok] = struct{}{}
	}
	return tokens
}

// sampleTokens retains every Nth token so the retained text is roughly
// sampleTargetLength characters.
func sampleTokens(raw []string, normalizedLen int) []string {
	step := normalizedLen / sampleTargetLength
	if step < 2 {
		return raw
	}
	sampled := make([]string, 0, len(raw)/step+1)
	for i := 0; i < len(raw); i += step {
		sampled = append(sampled, raw[i])
	}
	return sampled
}

func hasWordChar(tok string) bool {
	for _, r := range tok {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// JaccardSimilarity returns |A ∩ B| / |A ∪ B| over the content token sets of
// the two texts, in [0,1]. Byte-identical inputs short-circuit to 1.0 without
// tokenizing. Two contentless texts are considered identical (1.0); exactly
// one contentless text scores 0.0. The function never panics: any internal
// fault maps to 0.0, which forces conservative regeneration downstream.
func JaccardSimilarity(textA, textB string) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			score = 0.0
		}
	}()

	if textA == textB {
		return 1.0
	}

	tokensA := Tokenize(textA)
	tokensB := Tokenize(textB)

	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 1.0
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	// Iterate the smaller set.
	if len(tokensB) < len(tokensA) {
		tokensA, tokensB = tokensB, tokensA
	}

	intersection := 0
	for tok := range tokensA {
		if _, ok := tokensB[tok]; ok {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection

	return float64(intersection) / float64(union)
}

// Fingerprint derives a stable opaque cache key from the normalized text
// using a 32-bit rolling polynomial hash (base 31), encoded base-36 with the
// normalized length appended to cut accidental collisions between inputs of
// different sizes. Collisions are tolerated: the worst case is a spurious
// cache hit returning a stale-but-plausible summary. Consumers must treat the
// value as opaque, so a stronger hash can be substituted without touching any
// other component.
func Fingerprint(text string) string {
	normalized := Normalize(text)

	var h uint32
	for _, r := range normalized {
		h = h*31 + uint32(r)
	}

	return strconv.FormatUint(uint64(h), 36) + "-" + strconv.FormatInt(int64(len(normalized)), 36)
}
