package keywords

import (
	"math"
	"strings"

	"github.com/hbollon/go-edlib"
)

// Scorer rates how close two strings are on a 0..100 scale. Implementations
// must be case-insensitive, score identical strings 100 and score against an
// empty string 0. The grouper treats the scorer as an injected strategy, so
// every implementation has to honor the same threshold semantics.
type Scorer interface {
	Score(a, b string) int
	Name() string
}

// NewScorer selects a similarity strategy by name. Unknown names fall back to
// the edit-distance scorer; the lexical scorer exists for environments where
// an edit-distance comparison is undesirable (it is fully deterministic and
// dependency-free).
func NewScorer(name string) Scorer {
	if strings.EqualFold(name, "lexical") {
		return LexicalScorer{}
	}
	return EditDistanceScorer{}
}

// EditDistanceScorer scores with a normalized Levenshtein ratio. This is the
// primary strategy: it catches the transliteration typos that dominate
// bilingual supplement queries (مغنيسيوم/مغنسيوم, magnesium/magnisium).
type EditDistanceScorer struct{}

func (EditDistanceScorer) Name() string { return "levenshtein" }

func (EditDistanceScorer) Score(a, b string) int {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	sim, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		// Only reachable with an unknown algorithm constant; degrade to the
		// lexical strategy rather than silently scoring zero.
		return LexicalScorer{}.Score(a, b)
	}
	return clampScore(int(math.Round(float64(sim) * 100)))
}

// LexicalScorer is the library-free fallback strategy: containment scaled by
// length ratio, else a rune-set Jaccard ratio. Scores differ numerically from
// the edit-distance strategy but satisfy the same threshold contract.
type LexicalScorer struct{}

func (LexicalScorer) Name() string { return "lexical" }

func (LexicalScorer) Score(a, b string) int {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	if strings.Contains(a, b) || strings.Contains(b, a) {
		la, lb := runeLen(a), runeLen(b)
		shorter, longer := la, lb
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return clampScore(int(math.Round(float64(shorter) / float64(longer) * 90)))
	}

	sa, sb := runeSet(a), runeSet(b)
	inter := 0
	for r := range sa {
		if _, ok := sb[r]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 0
	}
	return clampScore(int(math.Round(float64(inter) / float64(union) * 80)))
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}

// charOverlap is the fraction of the variant's rune set also present in the
// token. Used as a guard on fuzzy matches: a high edit-distance ratio between
// strings built from disjoint characters is noise.
func charOverlap(token, variant string) float64 {
	sv := runeSet(variant)
	if len(sv) == 0 {
		return 0
	}
	st := runeSet(token)
	inter := 0
	for r := range sv {
		if _, ok := st[r]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(sv))
}
