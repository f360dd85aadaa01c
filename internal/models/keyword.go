package models

// QueryRecord is one normalized row of search analytics: a raw query string
// with its search volume, click and conversion counts. Rows arrive from the
// ingestion layer (Kafka events or the ClickHouse store) already
// column-normalized; the grouping engine never parses spreadsheets itself.
//
// clicks <= count and conversions <= clicks are expected but not enforced
// upstream. Rates above 100% are reported as-is rather than rejected.
type QueryRecord struct {
	Text        string `json:"text"`
	Count       int64  `json:"count"`
	Clicks      int64  `json:"clicks"`
	Conversions int64  `json:"conversions"`
}

// KeywordGroup aggregates every query that matched one canonical keyword, or
// a singleton token that matched no dictionary entry. Totals are sums over
// all contributing records; rates are derived on read, never stored.
type KeywordGroup struct {
	Key              string   `json:"group_key"`
	TotalCounts      int64    `json:"total_counts"`
	TotalClicks      int64    `json:"total_clicks"`
	TotalConversions int64    `json:"total_conversions"`
	Variations       []string `json:"variations"`
	SourceQueries    []string `json:"source_queries"`
}

// AvgCTR is clicks over search volume, as a percentage.
func (g *KeywordGroup) AvgCTR() float64 {
	if g.TotalCounts == 0 {
		return 0
	}
	return float64(g.TotalClicks) / float64(g.TotalCounts) * 100
}

// ClassicCR is conversions over clicks, as a percentage.
func (g *KeywordGroup) ClassicCR() float64 {
	if g.TotalClicks == 0 {
		return 0
	}
	return float64(g.TotalConversions) / float64(g.TotalClicks) * 100
}

// HealthCR is conversions over search volume, as a percentage.
func (g *KeywordGroup) HealthCR() float64 {
	if g.TotalCounts == 0 {
		return 0
	}
	return float64(g.TotalConversions) / float64(g.TotalCounts) * 100
}

// Share is the group's fraction of the given total search volume, as a
// percentage. Callers pass the sum of TotalCounts across all groups.
func (g *KeywordGroup) Share(totalCounts int64) float64 {
	if totalCounts <= 0 {
		return 0
	}
	return float64(g.TotalCounts) / float64(totalCounts) * 100
}

func (g *KeywordGroup) VariationCount() int {
	return len(g.Variations)
}

func (g *KeywordGroup) UniqueQueryCount() int {
	return len(g.SourceQueries)
}

// GroupingResult is the full output of one grouping run, cacheable as a unit.
type GroupingResult struct {
	Groups      []*KeywordGroup `json:"groups"`
	TotalCounts int64           `json:"total_counts"`
	RecordCount int             `json:"record_count"`
	TokenCount  int             `json:"token_count"`
	TookMs      int64           `json:"took_ms"`
	Source      string          `json:"source"`
	Metadata    ResultMetadata  `json:"metadata"`
}

type ResultMetadata struct {
	RequestID   string `json:"request_id,omitempty"`
	CacheHit    bool   `json:"cache_hit"`
	Scorer      string `json:"scorer,omitempty"`
	MinScore    int    `json:"min_score"`
	DatasetHash string `json:"dataset_hash,omitempty"`
}

// TopKeyword is one row of the keyword_groups rollup in ClickHouse.
type TopKeyword struct {
	Key              string  `json:"group_key"`
	TotalCounts      int64   `json:"total_counts"`
	TotalClicks      int64   `json:"total_clicks"`
	TotalConversions int64   `json:"total_conversions"`
	AvgCTR           float64 `json:"avg_ctr"`
	HealthCR         float64 `json:"health_cr"`
	Variations       uint64  `json:"variations"`
}
