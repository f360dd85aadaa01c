package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/searchlab/keyword-insights/internal/config"
	"github.com/searchlab/keyword-insights/internal/models"
	"github.com/searchlab/keyword-insights/internal/observability"
)

type Client struct {
	conn   driver.Conn
	logger *zap.Logger
}

func NewClient(cfg config.ClickHouseConfig, logger *zap.Logger) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addresses,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": int(cfg.QueryTimeout.Seconds()),
		},
		DialTimeout:  cfg.DialTimeout,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("opening clickhouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging clickhouse: %w", err)
	}

	logger.Info("clickhouse client connected", zap.Strings("addresses", cfg.Addresses))

	return &Client{
		conn:   conn,
		logger: logger,
	}, nil
}

// InsertSearchEvents appends a batch of raw search events to the events log.
func (c *Client) InsertSearchEvents(ctx context.Context, events []*models.SearchEvent) error {
	if len(events) == 0 {
		return nil
	}

	start := time.Now()
	batch, err := c.conn.PrepareBatch(ctx, `
		INSERT INTO search_queries (query, count, clicks, conversions, region, timestamp)
	`)
	if err != nil {
		observability.CHQueryDuration.WithLabelValues("insert_events", "error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("preparing search events batch: %w", err)
	}

	for _, e := range events {
		if err := batch.Append(e.Query, e.Count, e.Clicks, e.Conversions, e.Region, e.Timestamp); err != nil {
			return fmt.Errorf("appending search event: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		observability.CHQueryDuration.WithLabelValues("insert_events", "error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("sending search events batch: %w", err)
	}

	observability.CHQueryDuration.WithLabelValues("insert_events", "success").Observe(time.Since(start).Seconds())
	return nil
}

// ReadQueryRecords rolls the event log up into one record per distinct query
// text over the given window. A zero window reads the whole log.
func (c *Client) ReadQueryRecords(ctx context.Context, window time.Duration, limit int) ([]models.QueryRecord, error) {
	ctx, span := observability.StartSpan(ctx, "ch.read_query_records",
		attribute.Int("limit", limit),
	)
	defer span.End()

	start := time.Now()

	query := `
		SELECT
			query,
			sum(count) AS counts,
			sum(clicks) AS clicks,
			sum(conversions) AS conversions
		FROM search_queries
		WHERE ? = 0 OR timestamp >= now() - toIntervalSecond(?)
		GROUP BY query
		ORDER BY counts DESC
		LIMIT ?
	`

	windowSec := int64(window.Seconds())
	rows, err := c.conn.Query(ctx, query, windowSec, windowSec, limit)
	if err != nil {
		observability.CHQueryDuration.WithLabelValues("read_records", "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("ch query records: %w", err)
	}
	defer rows.Close()

	var records []models.QueryRecord
	for rows.Next() {
		var r models.QueryRecord
		if err := rows.Scan(&r.Text, &r.Count, &r.Clicks, &r.Conversions); err != nil {
			return nil, fmt.Errorf("scanning query record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query records: %w", err)
	}

	observability.CHQueryDuration.WithLabelValues("read_records", "success").Observe(time.Since(start).Seconds())
	return records, nil
}

// InsertKeywordGroups writes one grouping run's output to the rollup table.
func (c *Client) InsertKeywordGroups(ctx context.Context, datasetHash string, groups []*models.KeywordGroup) error {
	if len(groups) == 0 {
		return nil
	}

	ctx, span := observability.StartSpan(ctx, "ch.insert_keyword_groups",
		attribute.Int("groups", len(groups)),
	)
	defer span.End()

	start := time.Now()
	batch, err := c.conn.PrepareBatch(ctx, `
		INSERT INTO keyword_groups (
			group_key, total_counts, total_clicks, total_conversions,
			avg_ctr, health_cr, variations, dataset_hash, computed_at
		)
	`)
	if err != nil {
		observability.CHQueryDuration.WithLabelValues("insert_groups", "error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("preparing keyword groups batch: %w", err)
	}

	now := time.Now().UTC()
	for _, g := range groups {
		if err := batch.Append(
			g.Key,
			g.TotalCounts,
			g.TotalClicks,
			g.TotalConversions,
			g.AvgCTR(),
			g.HealthCR(),
			uint64(g.VariationCount()),
			datasetHash,
			now,
		); err != nil {
			return fmt.Errorf("appending keyword group: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		observability.CHQueryDuration.WithLabelValues("insert_groups", "error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("sending keyword groups batch: %w", err)
	}

	observability.CHQueryDuration.WithLabelValues("insert_groups", "success").Observe(time.Since(start).Seconds())
	return nil
}

// TopKeywords returns the highest-volume groups from the latest rollup.
func (c *Client) TopKeywords(ctx context.Context, limit int) ([]models.TopKeyword, error) {
	ctx, span := observability.StartSpan(ctx, "ch.top_keywords",
		attribute.Int("limit", limit),
	)
	defer span.End()

	start := time.Now()

	query := `
		SELECT
			group_key,
			total_counts,
			total_clicks,
			total_conversions,
			avg_ctr,
			health_cr,
			variations
		FROM keyword_groups
		WHERE computed_at = (SELECT max(computed_at) FROM keyword_groups)
		ORDER BY total_counts DESC, group_key ASC
		LIMIT ?
	`

	rows, err := c.conn.Query(ctx, query, limit)
	if err != nil {
		observability.CHQueryDuration.WithLabelValues("top_keywords", "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("ch top keywords: %w", err)
	}
	defer rows.Close()

	var top []models.TopKeyword
	for rows.Next() {
		var k models.TopKeyword
		if err := rows.Scan(&k.Key, &k.TotalCounts, &k.TotalClicks, &k.TotalConversions,
			&k.AvgCTR, &k.HealthCR, &k.Variations); err != nil {
			return nil, fmt.Errorf("scanning top keyword: %w", err)
		}
		top = append(top, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating top keywords: %w", err)
	}

	observability.CHQueryDuration.WithLabelValues("top_keywords", "success").Observe(time.Since(start).Seconds())
	return top, nil
}

// WriteRunStats records one grouping run's performance for the slow-run log.
func (c *Client) WriteRunStats(ctx context.Context, event *models.RunEvent) error {
	query := `
		INSERT INTO grouping_runs (
			event_type, run_type, dataset_hash, duration_ms,
			records, groups, timestamp, trace_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	return c.conn.Exec(ctx, query,
		event.EventType,
		event.RunType,
		event.DatasetHash,
		event.DurationMs,
		event.Records,
		event.Groups,
		event.Timestamp,
		event.TraceID,
	)
}

func (c *Client) HealthCheck(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) EnsureTables(ctx context.Context) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS search_queries (
			query String,
			count Int64,
			clicks Int64,
			conversions Int64,
			region String,
			timestamp DateTime
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(timestamp)
		ORDER BY (timestamp, query)`,

		`CREATE TABLE IF NOT EXISTS keyword_groups (
			group_key String,
			total_counts Int64,
			total_clicks Int64,
			total_conversions Int64,
			avg_ctr Float64,
			health_cr Float64,
			variations UInt64,
			dataset_hash String,
			computed_at DateTime
		) ENGINE = ReplacingMergeTree(computed_at)
		PARTITION BY toYYYYMM(computed_at)
		ORDER BY (computed_at, group_key)`,

		`CREATE TABLE IF NOT EXISTS grouping_runs (
			event_type String,
			run_type String,
			dataset_hash String,
			duration_ms Float64,
			records Int64,
			groups Int64,
			timestamp DateTime,
			trace_id String
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(timestamp)
		ORDER BY (timestamp, dataset_hash)`,
	}

	for _, ddl := range tables {
		if err := c.conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}
	}

	c.logger.Info("clickhouse tables ensured")
	return nil
}
