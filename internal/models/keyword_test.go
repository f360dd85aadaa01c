package models

import "testing"

func TestKeywordGroupRates(t *testing.T) {
	g := &KeywordGroup{
		Key:              "مغنيسيوم",
		TotalCounts:      200,
		TotalClicks:      50,
		TotalConversions: 5,
	}

	if got := g.AvgCTR(); got != 25.0 {
		t.Errorf("AvgCTR() = %v, want 25.0", got)
	}
	if got := g.ClassicCR(); got != 10.0 {
		t.Errorf("ClassicCR() = %v, want 10.0", got)
	}
	if got := g.HealthCR(); got != 2.5 {
		t.Errorf("HealthCR() = %v, want 2.5", got)
	}
}

func TestKeywordGroupRatesZeroDenominator(t *testing.T) {
	g := &KeywordGroup{Key: "عسل"}

	if got := g.AvgCTR(); got != 0 {
		t.Errorf("AvgCTR() = %v, want 0 with no volume", got)
	}
	if got := g.ClassicCR(); got != 0 {
		t.Errorf("ClassicCR() = %v, want 0 with no clicks", got)
	}
	if got := g.HealthCR(); got != 0 {
		t.Errorf("HealthCR() = %v, want 0 with no volume", got)
	}
}

func TestKeywordGroupShare(t *testing.T) {
	g := &KeywordGroup{Key: "كولاجين", TotalCounts: 30}

	if got := g.Share(120); got != 25.0 {
		t.Errorf("Share(120) = %v, want 25.0", got)
	}
	if got := g.Share(0); got != 0 {
		t.Errorf("Share(0) = %v, want 0", got)
	}
	if got := g.Share(-10); got != 0 {
		t.Errorf("Share(-10) = %v, want 0", got)
	}
}

func TestKeywordGroupCounts(t *testing.T) {
	g := &KeywordGroup{
		Variations:    []string{"collagen", "كولاجين"},
		SourceQueries: []string{"collagen powder", "كولاجين بحري", "كولاجين"},
	}

	if got := g.VariationCount(); got != 2 {
		t.Errorf("VariationCount() = %d, want 2", got)
	}
	if got := g.UniqueQueryCount(); got != 3 {
		t.Errorf("UniqueQueryCount() = %d, want 3", got)
	}
}

func TestSearchEventRecord(t *testing.T) {
	e := &SearchEvent{Query: "فيتامين د", Count: 12, Clicks: 3, Conversions: 1, Region: "sa"}

	got := e.Record()
	want := QueryRecord{Text: "فيتامين د", Count: 12, Clicks: 3, Conversions: 1}
	if got != want {
		t.Errorf("Record() = %+v, want %+v", got, want)
	}
}
