package keywords

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/searchlab/keyword-insights/internal/models"
)

const (
	// DefaultMinScore is the global floor a match must clear in addition to
	// the entry's own threshold.
	DefaultMinScore = 70

	// noiseFloor drops tokens below 3 runes outright, before any matching.
	// The extraction floor is 2 runes (DefaultMinTokenLength); the grouping
	// stage is stricter because 2-rune fragments match everything and
	// nothing. One consistent floor, applied in one place.
	noiseFloor = 3

	containmentScore       = 90
	compoundScore          = 85
	containmentLengthRatio = 0.6
	fuzzyOverlapRatio      = 0.6
	containmentMinVariant  = 4
	compoundMinTokenLen    = 6
	compoundMinVariantLen  = 4
	compoundVariantWindow  = 5
)

// Grouper folds raw query records into canonical keyword groups. It is a pure
// batch transform: no I/O, no retained state between calls, safe to share
// across goroutines since the dictionary and scorer are read-only.
type Grouper struct {
	dict     *Dictionary
	scorer   Scorer
	minScore int
}

func NewGrouper(dict *Dictionary, scorer Scorer, minScore int) *Grouper {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	return &Grouper{
		dict:     dict,
		scorer:   scorer,
		minScore: minScore,
	}
}

func (g *Grouper) MinScore() int {
	return g.minScore
}

func (g *Grouper) ScorerName() string {
	return g.scorer.Name()
}

type groupAccumulator struct {
	key         string
	counts      int64
	clicks      int64
	conversions int64
	variations  map[string]struct{}
	queries     map[string]struct{}
}

// Group assigns every extracted token to exactly one keyword group and
// accumulates volume, clicks and conversions per group.
//
// A query that yields several distinct tokens contributes its full counts to
// each token's group. The resulting sum across groups therefore exceeds the
// sum of record counts whenever a query carries more than one keyword; that
// is how share-of-search per keyword is defined here, not a bug to fix.
func (g *Grouper) Group(records []models.QueryRecord) []*models.KeywordGroup {
	tokenRecords := make(map[string][]int)
	for i := range records {
		for _, token := range Tokenize(records[i].Text, DefaultMinTokenLength) {
			tokenRecords[token] = append(tokenRecords[token], i)
		}
	}
	if len(tokenRecords) == 0 {
		return []*models.KeywordGroup{}
	}

	// Longest tokens first, so a specific compound token is matched before
	// the short fragments it contains. Lexicographic tie-break keeps runs
	// deterministic regardless of map iteration order.
	tokens := make([]string, 0, len(tokenRecords))
	for token := range tokenRecords {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(tokens[i]), utf8.RuneCountInString(tokens[j])
		if li != lj {
			return li > lj
		}
		return tokens[i] < tokens[j]
	})

	groups := make(map[string]*groupAccumulator)
	for _, token := range tokens {
		if utf8.RuneCountInString(token) < noiseFloor {
			continue
		}

		key := token
		if entry, score := g.bestMatch(token); entry != nil && score >= g.minScore && score >= entry.Threshold {
			key = entry.Key
		}

		acc := groups[key]
		if acc == nil {
			acc = &groupAccumulator{
				key:        key,
				variations: make(map[string]struct{}),
				queries:    make(map[string]struct{}),
			}
			groups[key] = acc
		}
		acc.variations[token] = struct{}{}
		for _, ri := range tokenRecords[token] {
			rec := &records[ri]
			acc.counts += clampNonNegative(rec.Count)
			acc.clicks += clampNonNegative(rec.Clicks)
			acc.conversions += clampNonNegative(rec.Conversions)
			acc.queries[rec.Text] = struct{}{}
		}
	}

	out := make([]*models.KeywordGroup, 0, len(groups))
	for _, acc := range groups {
		out = append(out, &models.KeywordGroup{
			Key:              acc.key,
			TotalCounts:      acc.counts,
			TotalClicks:      acc.clicks,
			TotalConversions: acc.conversions,
			Variations:       sortedKeys(acc.variations),
			SourceQueries:    sortedKeys(acc.queries),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalCounts != out[j].TotalCounts {
			return out[i].TotalCounts > out[j].TotalCounts
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// bestMatch scores the token against every eligible entry and returns the
// single best candidate. An exact variant hit scores 100 and stops the scan;
// on a tie the entry declared first wins.
func (g *Grouper) bestMatch(token string) (*CanonicalEntry, int) {
	tokenLen := utf8.RuneCountInString(token)

	var best *CanonicalEntry
	bestScore := 0
	for i := range g.dict.entries {
		entry := &g.dict.entries[i]
		if tokenLen < entry.MinLength {
			continue
		}
		if entry.excludes(token) {
			continue
		}
		if entry.hasExactVariant(token) {
			return entry, 100
		}

		score := 0
		for _, variant := range entry.Variants {
			if s := g.containmentCandidate(token, tokenLen, variant); s > score {
				score = s
			}
			if s := g.fuzzyCandidate(token, variant, entry.Threshold); s > score {
				score = s
			}
		}
		if score < compoundScore && g.compoundCandidate(token, tokenLen, entry) {
			score = compoundScore
		}

		if score > bestScore {
			bestScore = score
			best = entry
		}
	}
	return best, bestScore
}

// containmentCandidate scores 90 when one string contains the other and the
// lengths are comparable. The length-ratio guard keeps a 4-rune variant from
// claiming a 12-rune token it happens to sit inside.
func (g *Grouper) containmentCandidate(token string, tokenLen int, variant string) int {
	variantLen := utf8.RuneCountInString(variant)
	if variantLen < containmentMinVariant {
		return 0
	}
	if !containsEither(token, variant) {
		return 0
	}
	shorter, longer := tokenLen, variantLen
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	if float64(shorter)/float64(longer) < containmentLengthRatio {
		return 0
	}
	return containmentScore
}

// fuzzyCandidate scores with the injected similarity strategy, gated by the
// entry threshold and by rune overlap with the variant.
func (g *Grouper) fuzzyCandidate(token, variant string, threshold int) int {
	s := g.scorer.Score(token, variant)
	if s < threshold {
		return 0
	}
	if charOverlap(token, variant) < fuzzyOverlapRatio {
		return 0
	}
	return s
}

// compoundCandidate recognizes long tokens that glue a canonical variant to a
// qualifier, e.g. "مغنيسيوم400" or "vitamind3". Only the leading variants are
// consulted; the tail of a variant list is typo spellings, too loose to anchor
// a compound.
func (g *Grouper) compoundCandidate(token string, tokenLen int, entry *CanonicalEntry) bool {
	if tokenLen < compoundMinTokenLen || len(entry.Compounds) == 0 {
		return false
	}

	window := entry.Variants
	if len(window) > compoundVariantWindow {
		window = window[:compoundVariantWindow]
	}
	anchored := false
	for _, variant := range window {
		if utf8.RuneCountInString(variant) < compoundMinVariantLen {
			continue
		}
		if containsFold(token, variant) {
			anchored = true
			break
		}
	}
	if !anchored {
		return false
	}

	for _, qualifier := range entry.Compounds {
		if qualifier != "" && containsFold(token, qualifier) {
			return true
		}
	}
	return false
}

// containsEither reports whether one string contains the other, ignoring
// case. Tokens arrive lower-cased already; dictionary variants may not be.
func containsEither(a, b string) bool {
	return containsFold(a, b) || containsFold(b, a)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func clampNonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
