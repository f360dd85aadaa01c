package keywords

import (
	"reflect"
	"testing"
	"unicode/utf8"

	"github.com/searchlab/keyword-insights/internal/models"
)

// stubScorer returns a fixed score for any pair, which lets tests pin the
// fuzzy path to exact boundary values.
type stubScorer struct {
	score int
}

func (s stubScorer) Score(a, b string) int { return s.score }
func (s stubScorer) Name() string          { return "stub" }

func newTestGrouper(t *testing.T) *Grouper {
	t.Helper()
	dict, err := NewDictionary(DefaultEntries())
	if err != nil {
		t.Fatalf("building default dictionary: %v", err)
	}
	return NewGrouper(dict, EditDistanceScorer{}, DefaultMinScore)
}

func findGroup(t *testing.T, groups []*models.KeywordGroup, key string) *models.KeywordGroup {
	t.Helper()
	for _, g := range groups {
		if g.Key == key {
			return g
		}
	}
	t.Fatalf("no group with key %q in %v", key, groupKeys(groups))
	return nil
}

func groupKeys(groups []*models.KeywordGroup) []string {
	keys := make([]string, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
	}
	return keys
}

func TestGroupExactVariant(t *testing.T) {
	g := newTestGrouper(t)

	groups := g.Group([]models.QueryRecord{
		{Text: "مغنيسيوم", Count: 10, Clicks: 4, Conversions: 1},
	})

	if len(groups) != 1 {
		t.Fatalf("got %d groups %v, want 1", len(groups), groupKeys(groups))
	}
	got := groups[0]
	if got.Key != "مغنيسيوم" {
		t.Errorf("group key = %q, want %q", got.Key, "مغنيسيوم")
	}
	if got.TotalCounts != 10 || got.TotalClicks != 4 || got.TotalConversions != 1 {
		t.Errorf("totals = %d/%d/%d, want 10/4/1", got.TotalCounts, got.TotalClicks, got.TotalConversions)
	}
}

func TestGroupTypoFoldsIntoCanonical(t *testing.T) {
	g := newTestGrouper(t)

	groups := g.Group([]models.QueryRecord{
		{Text: "مغنيسيوم", Count: 10},
		{Text: "magnesium glycinate", Count: 7},
		{Text: "magnesim", Count: 3},
	})

	mag := findGroup(t, groups, "مغنيسيوم")
	if mag.TotalCounts != 20 {
		t.Errorf("TotalCounts = %d, want 20", mag.TotalCounts)
	}
	wantVariations := []string{"magnesim", "magnesium", "مغنيسيوم"}
	if !reflect.DeepEqual(mag.Variations, wantVariations) {
		t.Errorf("Variations = %v, want %v", mag.Variations, wantVariations)
	}
	wantQueries := []string{"magnesim", "magnesium glycinate", "مغنيسيوم"}
	if !reflect.DeepEqual(mag.SourceQueries, wantQueries) {
		t.Errorf("SourceQueries = %v, want %v", mag.SourceQueries, wantQueries)
	}
}

func TestGroupFarsiYehVariant(t *testing.T) {
	g := newTestGrouper(t)

	groups := g.Group([]models.QueryRecord{
		{Text: "فیتامین", Count: 8},
	})

	vit := findGroup(t, groups, "فيتامين")
	if vit.TotalCounts != 8 {
		t.Errorf("TotalCounts = %d, want 8", vit.TotalCounts)
	}
}

func TestGroupExclusionVeto(t *testing.T) {
	g := newTestGrouper(t)

	groups := g.Group([]models.QueryRecord{
		{Text: "فيتنس", Count: 12},
	})

	if len(groups) != 1 {
		t.Fatalf("got %d groups %v, want 1", len(groups), groupKeys(groups))
	}
	if groups[0].Key != "فيتنس" {
		t.Errorf("group key = %q, want the token itself as a singleton", groups[0].Key)
	}
}

func TestGroupContainment(t *testing.T) {
	g := newTestGrouper(t)

	groups := g.Group([]models.QueryRecord{
		{Text: "omegas", Count: 6},
	})

	om := findGroup(t, groups, "اوميغا")
	if om.TotalCounts != 6 {
		t.Errorf("TotalCounts = %d, want 6", om.TotalCounts)
	}
}

func TestGroupCompoundToken(t *testing.T) {
	g := newTestGrouper(t)

	groups := g.Group([]models.QueryRecord{
		{Text: "vitamincomplex", Count: 9},
	})

	vit := findGroup(t, groups, "فيتامين")
	if vit.TotalCounts != 9 {
		t.Errorf("TotalCounts = %d, want 9", vit.TotalCounts)
	}
}

func TestGroupThresholdBoundary(t *testing.T) {
	dict, err := NewDictionary([]CanonicalEntry{
		{Key: "acme", Variants: []string{"abcdef"}, Threshold: 70, MinLength: 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	records := []models.QueryRecord{{Text: "abcdxx", Count: 5}}

	t.Run("one below threshold stays singleton", func(t *testing.T) {
		g := NewGrouper(dict, stubScorer{score: 69}, 70)
		groups := g.Group(records)
		if len(groups) != 1 || groups[0].Key != "abcdxx" {
			t.Fatalf("groups = %v, want singleton abcdxx", groupKeys(groups))
		}
	})

	t.Run("at threshold folds into entry", func(t *testing.T) {
		g := NewGrouper(dict, stubScorer{score: 70}, 70)
		groups := g.Group(records)
		if len(groups) != 1 || groups[0].Key != "acme" {
			t.Fatalf("groups = %v, want acme", groupKeys(groups))
		}
	})
}

func TestGroupTieGoesToFirstEntry(t *testing.T) {
	dict, err := NewDictionary([]CanonicalEntry{
		{Key: "alpha", Variants: []string{"abcdef"}, Threshold: 70, MinLength: 3},
		{Key: "beta", Variants: []string{"abcdgh"}, Threshold: 70, MinLength: 3},
	})
	if err != nil {
		t.Fatal(err)
	}

	g := NewGrouper(dict, stubScorer{score: 80}, 70)
	groups := g.Group([]models.QueryRecord{{Text: "abcdxx", Count: 5}})

	if len(groups) != 1 || groups[0].Key != "alpha" {
		t.Fatalf("groups = %v, want alpha to win the tie", groupKeys(groups))
	}
}

func TestGroupMultiTokenQueryCountsPerToken(t *testing.T) {
	g := newTestGrouper(t)

	groups := g.Group([]models.QueryRecord{
		{Text: "vitamin c 1000mg", Count: 100},
	})

	vit := findGroup(t, groups, "فيتامين")
	num := findGroup(t, groups, "1000")
	if vit.TotalCounts != 100 {
		t.Errorf("vitamin TotalCounts = %d, want 100", vit.TotalCounts)
	}
	if num.TotalCounts != 100 {
		t.Errorf("1000 TotalCounts = %d, want 100", num.TotalCounts)
	}

	// Each token carries the full record counts, so the per-group sum is
	// allowed to exceed the record total.
	var sum int64
	for _, grp := range groups {
		sum += grp.TotalCounts
	}
	if sum != 200 {
		t.Errorf("summed TotalCounts = %d, want 200", sum)
	}
}

func TestGroupNegativeMetricsClamped(t *testing.T) {
	g := newTestGrouper(t)

	groups := g.Group([]models.QueryRecord{
		{Text: "مغنيسيوم", Count: -5, Clicks: -2, Conversions: -1},
	})

	mag := findGroup(t, groups, "مغنيسيوم")
	if mag.TotalCounts != 0 || mag.TotalClicks != 0 || mag.TotalConversions != 0 {
		t.Errorf("totals = %d/%d/%d, want all clamped to 0",
			mag.TotalCounts, mag.TotalClicks, mag.TotalConversions)
	}
}

func TestGroupNoiseFloor(t *testing.T) {
	g := newTestGrouper(t)

	groups := g.Group([]models.QueryRecord{
		{Text: "مج", Count: 5},
	})

	if len(groups) != 0 {
		t.Fatalf("got groups %v, want none for sub-floor tokens", groupKeys(groups))
	}
}

func TestGroupEmptyInput(t *testing.T) {
	g := newTestGrouper(t)

	for _, records := range [][]models.QueryRecord{
		nil,
		{},
		{{Text: "!!! ---", Count: 5}},
	} {
		groups := g.Group(records)
		if groups == nil {
			t.Fatal("Group returned nil, want empty slice")
		}
		if len(groups) != 0 {
			t.Fatalf("got groups %v, want none", groupKeys(groups))
		}
	}
}

func TestGroupOutputOrdering(t *testing.T) {
	g := newTestGrouper(t)

	groups := g.Group([]models.QueryRecord{
		{Text: "cccc", Count: 20},
		{Text: "bbbb", Count: 10},
		{Text: "aaaa", Count: 10},
	})

	want := []string{"cccc", "aaaa", "bbbb"}
	if got := groupKeys(groups); !reflect.DeepEqual(got, want) {
		t.Errorf("group order = %v, want %v", got, want)
	}
}

func TestGroupTokenPartition(t *testing.T) {
	g := newTestGrouper(t)
	records := []models.QueryRecord{
		{Text: "مغنيسيوم جلايسينات", Count: 40},
		{Text: "magnesim 400", Count: 15},
		{Text: "فيتامين د 5000", Count: 90},
		{Text: "omega 369", Count: 22},
		{Text: "bestseller", Count: 7},
	}

	want := make(map[string]struct{})
	for _, r := range records {
		for _, token := range Tokenize(r.Text, DefaultMinTokenLength) {
			if utf8.RuneCountInString(token) >= 3 {
				want[token] = struct{}{}
			}
		}
	}

	seen := make(map[string]int)
	for _, grp := range g.Group(records) {
		for _, v := range grp.Variations {
			seen[v]++
		}
	}

	for token := range want {
		if seen[token] != 1 {
			t.Errorf("token %q appears in %d groups, want exactly 1", token, seen[token])
		}
	}
	for token := range seen {
		if _, ok := want[token]; !ok {
			t.Errorf("unexpected variation %q not produced by the tokenizer", token)
		}
	}
}

func TestGroupDeterministic(t *testing.T) {
	g := newTestGrouper(t)
	records := []models.QueryRecord{
		{Text: "مغنيسيوم جلايسينات", Count: 40, Clicks: 12},
		{Text: "magnesim 400", Count: 15, Clicks: 3},
		{Text: "فيتامين د 5000", Count: 90, Clicks: 31, Conversions: 4},
		{Text: "omega 369", Count: 22},
		{Text: "bestseller", Count: 7},
	}

	first := g.Group(records)
	for i := 0; i < 10; i++ {
		if got := g.Group(records); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d diverged from first run", i)
		}
	}
}
