package cache

import (
	"strings"
	"testing"

	"github.com/searchlab/keyword-insights/internal/models"
)

func TestHashString(t *testing.T) {
	h1 := hashString("test")
	h2 := hashString("test")
	if h1 != h2 {
		t.Errorf("hashString not deterministic: %q != %q", h1, h2)
	}

	h3 := hashString("other")
	if h1 == h3 {
		t.Error("different inputs should produce different hashes")
	}

	if h1 == "" {
		t.Error("hash should not be empty")
	}

	h4 := hashString("")
	if h4 == "" {
		t.Error("hash of empty string should not be empty")
	}
}

func TestHashRecords_Deterministic(t *testing.T) {
	records := []models.QueryRecord{
		{Text: "فيتامين د", Count: 100, Clicks: 20, Conversions: 2},
		{Text: "magnesium", Count: 50, Clicks: 5},
	}

	h1 := HashRecords(records)
	h2 := HashRecords(records)
	if h1 != h2 {
		t.Errorf("HashRecords not deterministic: %q != %q", h1, h2)
	}
	if h1 == "" {
		t.Error("expected non-empty hash")
	}
}

func TestHashRecords_SensitiveToContent(t *testing.T) {
	base := []models.QueryRecord{{Text: "فيتامين د", Count: 100}}

	tests := []struct {
		name    string
		records []models.QueryRecord
	}{
		{"different text", []models.QueryRecord{{Text: "فيتامين سي", Count: 100}}},
		{"different count", []models.QueryRecord{{Text: "فيتامين د", Count: 101}}},
		{"different clicks", []models.QueryRecord{{Text: "فيتامين د", Count: 100, Clicks: 1}}},
		{"extra record", []models.QueryRecord{{Text: "فيتامين د", Count: 100}, {Text: "zinc"}}},
	}

	baseHash := HashRecords(base)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HashRecords(tt.records); got == baseHash {
				t.Error("expected different hash for modified dataset")
			}
		})
	}
}

func TestHashRecords_OrderSensitive(t *testing.T) {
	a := []models.QueryRecord{{Text: "zinc", Count: 1}, {Text: "iron", Count: 2}}
	b := []models.QueryRecord{{Text: "iron", Count: 2}, {Text: "zinc", Count: 1}}

	if HashRecords(a) == HashRecords(b) {
		t.Error("expected record order to affect the hash")
	}
}

func TestHashRecords_NoFieldBleed(t *testing.T) {
	// Separator must keep text+count from colliding across field boundaries.
	a := []models.QueryRecord{{Text: "zinc1", Count: 0}}
	b := []models.QueryRecord{{Text: "zinc", Count: 10}}

	if HashRecords(a) == HashRecords(b) {
		t.Error("expected distinct hashes for distinct field layouts")
	}
}

func TestBuildGroupingKey(t *testing.T) {
	key := buildGroupingKey("abc123")
	if key != "kg:abc123" {
		t.Errorf("buildGroupingKey = %q, want kg:abc123", key)
	}
}

func TestBuildStaleKey_DifferentFromGroupingKey(t *testing.T) {
	fresh := buildGroupingKey("abc123")
	stale := buildStaleKey("abc123")

	if fresh == stale {
		t.Error("fresh and stale keys should differ")
	}
	if !strings.HasPrefix(stale, "kg:stale:") {
		t.Errorf("expected 'kg:stale:' prefix, got %q", stale)
	}
}

func TestBuildTopKey(t *testing.T) {
	if k1, k2 := buildTopKey(10), buildTopKey(50); k1 == k2 {
		t.Error("different limits should produce different keys")
	}
}
