package similarity

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases and trims", "  Hello WORLD  ", "hello world"},
		{"collapses whitespace", "one \t two\n\nthree", "one two three"},
		{"keeps basic punctuation", "Wait... really?! Yes; sure: it's fine-ish.", "wait... really?! yes; sure: it's fine-ish."},
		{"strips other symbols", "price: $100 (approx) & more*", "price: 100 approx more"},
		{"empty input", "", ""},
		{"whitespace only", "   \t\n ", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.input); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestTokenize_FiltersNoise(t *testing.T) {
	tokens := Tokenize("The cat, a dog and I went to __ the store!")

	for _, want := range []string{"cat", "dog", "went", "store"} {
		if _, ok := tokens[want]; !ok {
			t.Errorf("Expected token %q in %v", want, tokens)
		}
	}
	for _, banned := range []string{"the", "a", "and", "to", "i", "__"} {
		if _, ok := tokens[banned]; ok {
			t.Errorf("Token %q should have been filtered", banned)
		}
	}
}

func TestTokenize_SamplesLargeInput(t *testing.T) {
	// ~2000 unique 5-char words -> ~12000 normalized chars, over the
	// sampling threshold.
	var sb strings.Builder
	for i := 0; i < 2000; i++ {
		sb.WriteString("w")
		sb.WriteByte(byte('a' + i%26))
		sb.WriteByte(byte('a' + (i/26)%26))
		sb.WriteByte(byte('a' + (i/676)%26))
		sb.WriteString("x ")
	}
	text := sb.String()

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		t.Fatal("Sampling should retain some tokens")
	}
	if len(tokens) > 1200 {
		t.Errorf("Expected sampled token set (<=1200), got %d tokens", len(tokens))
	}
}

func TestTokenize_MultibyteCountsCharacters(t *testing.T) {
	// 2000 unique two-character CJK tokens: ~6,000 characters but ~14,000
	// bytes once normalized. Under the 10,000-character sampling threshold,
	// so every token must be retained.
	var sb strings.Builder
	for i := 0; i < 2000; i++ {
		sb.WriteRune(rune(0x4E00 + i%500))
		sb.WriteRune(rune(0x4E00 + i/500))
		sb.WriteString(" ")
	}

	tokens := Tokenize(sb.String())
	if len(tokens) != 2000 {
		t.Errorf("Expected all 2000 tokens retained without sampling, got %d", len(tokens))
	}
}

func TestJaccardSimilarity_Reflexive(t *testing.T) {
	texts := []string{
		"a single sentence about nothing much",
		"short",
		"The quick brown fox jumps over the lazy dog.",
	}
	for _, text := range texts {
		if got := JaccardSimilarity(text, text); got != 1.0 {
			t.Errorf("JaccardSimilarity(t, t) = %v for %q, want 1.0", got, text)
		}
	}
}

func TestJaccardSimilarity_Symmetric(t *testing.T) {
	a := "the editor rewrites paragraphs quickly"
	b := "paragraphs are rewritten by the slow editor"

	ab := JaccardSimilarity(a, b)
	ba := JaccardSimilarity(b, a)
	if ab != ba {
		t.Errorf("Similarity not symmetric: %v vs %v", ab, ba)
	}
	if ab < 0 || ab > 1 {
		t.Errorf("Similarity %v outside [0,1]", ab)
	}
}

func TestJaccardSimilarity_DisjointAfterStopWords(t *testing.T) {
	if got := JaccardSimilarity("the cat sat", "a dog ran"); got != 0.0 {
		t.Errorf("Expected 0.0 for disjoint content tokens, got %v", got)
	}
}

func TestJaccardSimilarity_PartialOverlap(t *testing.T) {
	// {quick, brown, fox} vs {quick, brown, fox, jumps}: 3/4.
	got := JaccardSimilarity("the quick brown fox", "the quick brown fox jumps")
	if got != 0.75 {
		t.Errorf("Expected 0.75, got %v", got)
	}
}

func TestJaccardSimilarity_EmptyCases(t *testing.T) {
	// Both contentless (stop words only) are identical for this purpose.
	if got := JaccardSimilarity("the a an", "of in on"); got != 1.0 {
		t.Errorf("Two contentless texts should score 1.0, got %v", got)
	}
	// Exactly one contentless.
	if got := JaccardSimilarity("", "meaningful content words"); got != 0.0 {
		t.Errorf("One contentless text should score 0.0, got %v", got)
	}
}

func TestFingerprint_StableOverNormalization(t *testing.T) {
	a := Fingerprint("Hello,   World!")
	b := Fingerprint("hello, world!")
	if a != b {
		t.Errorf("Fingerprint should be case/whitespace-insensitive: %q vs %q", a, b)
	}

	if a != Fingerprint("Hello,   World!") {
		t.Error("Fingerprint should be deterministic")
	}

	if a == Fingerprint("completely different text") {
		t.Error("Different content should produce different fingerprints")
	}

	if a == "" {
		t.Error("Fingerprint should not be empty")
	}
}
