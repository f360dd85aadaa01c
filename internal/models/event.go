package models

import "time"

// SearchEvent is one search interaction published to the ingest stream by
// upstream storefront services. Events are rolled up into QueryRecords by
// the aggregation pipeline.
type SearchEvent struct {
	Query       string    `json:"query"`
	Count       int64     `json:"count"`
	Clicks      int64     `json:"clicks"`
	Conversions int64     `json:"conversions"`
	Region      string    `json:"region,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Record converts the event into the grouping engine's input shape.
func (e *SearchEvent) Record() QueryRecord {
	return QueryRecord{
		Text:        e.Query,
		Count:       e.Count,
		Clicks:      e.Clicks,
		Conversions: e.Conversions,
	}
}

// RunEvent captures the performance of one grouping run for the analytics
// store. Written asynchronously by the slow-run detector.
type RunEvent struct {
	EventType   string    `json:"event_type"`
	RunType     string    `json:"run_type"`
	DatasetHash string    `json:"dataset_hash"`
	DurationMs  float64   `json:"duration_ms"`
	Records     int64     `json:"records"`
	Groups      int64     `json:"groups"`
	Timestamp   time.Time `json:"timestamp"`
	TraceID     string    `json:"trace_id"`
}
