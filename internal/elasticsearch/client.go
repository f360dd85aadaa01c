package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/searchlab/keyword-insights/internal/config"
	"github.com/searchlab/keyword-insights/internal/models"
	"github.com/searchlab/keyword-insights/internal/observability"
	"github.com/searchlab/keyword-insights/internal/resilience"
)

// Client exports keyword groups to Elasticsearch and answers variant lookups
// against the exported index. Reads go through a circuit breaker with retry;
// exports are bulk writes from the aggregation pipeline.
type Client struct {
	es       *elasticsearch.Client
	cb       *gobreaker.CircuitBreaker
	cfg      config.ElasticsearchConfig
	retryCfg resilience.RetryConfig
	logger   *zap.Logger
}

func NewClient(cfg config.ElasticsearchConfig, groupingCfg config.GroupingConfig, logger *zap.Logger) (*Client, error) {
	esCfg := elasticsearch.Config{
		Addresses:  cfg.Addresses,
		Username:   cfg.Username,
		Password:   cfg.Password,
		MaxRetries: cfg.MaxRetries,
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}

	res, err := es.Ping()
	if err != nil {
		return nil, fmt.Errorf("pinging elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch ping returned status: %s", res.Status())
	}

	cb := resilience.NewCircuitBreaker("elasticsearch-groups", groupingCfg.CircuitBreaker, logger)

	logger.Info("elasticsearch client connected", zap.Strings("addresses", cfg.Addresses))

	return &Client{
		es:  es,
		cb:  cb,
		cfg: cfg,
		retryCfg: resilience.RetryConfig{
			MaxAttempts: groupingCfg.Retry.MaxAttempts,
			InitialWait: groupingCfg.Retry.InitialWait,
			MaxWait:     groupingCfg.Retry.MaxWait,
			Multiplier:  groupingCfg.Retry.Multiplier,
		},
		logger: logger,
	}, nil
}

// GroupsIndex is the monthly index the exporter writes into.
func (c *Client) GroupsIndex() string {
	return fmt.Sprintf("%s-groups-%s", c.cfg.IndexPrefix, time.Now().UTC().Format("2006.01"))
}

type groupDoc struct {
	Key              string    `json:"group_key"`
	TotalCounts      int64     `json:"total_counts"`
	TotalClicks      int64     `json:"total_clicks"`
	TotalConversions int64     `json:"total_conversions"`
	AvgCTR           float64   `json:"avg_ctr"`
	ClassicCR        float64   `json:"classic_cr"`
	HealthCR         float64   `json:"health_cr"`
	Variations       []string  `json:"variations"`
	SourceQueries    []string  `json:"source_queries"`
	DatasetHash      string    `json:"dataset_hash"`
	ComputedAt       time.Time `json:"computed_at"`
}

// ExportGroups bulk-indexes a grouping run so variant lookups and dashboards
// can query it. Group key doubles as document ID, so re-exports overwrite.
func (c *Client) ExportGroups(ctx context.Context, datasetHash string, groups []*models.KeywordGroup) error {
	if len(groups) == 0 {
		return nil
	}

	ctx, span := observability.StartSpan(ctx, "es.export_groups",
		attribute.Int("batch_size", len(groups)),
	)
	defer span.End()

	index := c.GroupsIndex()
	now := time.Now().UTC()

	var buf bytes.Buffer
	for _, g := range groups {
		meta := map[string]any{
			"index": map[string]any{
				"_index": index,
				"_id":    g.Key,
			},
		}
		metaLine, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshaling bulk meta: %w", err)
		}
		buf.Write(metaLine)
		buf.WriteByte('\n')

		doc := groupDoc{
			Key:              g.Key,
			TotalCounts:      g.TotalCounts,
			TotalClicks:      g.TotalClicks,
			TotalConversions: g.TotalConversions,
			AvgCTR:           g.AvgCTR(),
			ClassicCR:        g.ClassicCR(),
			HealthCR:         g.HealthCR(),
			Variations:       g.Variations,
			SourceQueries:    g.SourceQueries,
			DatasetHash:      datasetHash,
			ComputedAt:       now,
		}
		bodyLine, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshaling group doc: %w", err)
		}
		buf.Write(bodyLine)
		buf.WriteByte('\n')
	}

	res, err := c.es.Bulk(
		bytes.NewReader(buf.Bytes()),
		c.es.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("executing bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		return fmt.Errorf("bulk request error status=%s body=%s", res.Status(), string(bodyBytes))
	}

	var bulkResp bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("decoding bulk response: %w", err)
	}

	if bulkResp.Errors {
		var errMsgs []string
		for _, item := range bulkResp.Items {
			for _, result := range item {
				if result.Error != nil {
					errMsgs = append(errMsgs, fmt.Sprintf("id=%s: %s", result.ID, result.Error.Reason))
				}
			}
		}
		return fmt.Errorf("group export had errors: %s", strings.Join(errMsgs, "; "))
	}

	return nil
}

// VariantHit is one group matched by a variant lookup.
type VariantHit struct {
	Key         string   `json:"group_key"`
	Score       float64  `json:"score"`
	TotalCounts int64    `json:"total_counts"`
	Variations  []string `json:"variations"`
}

// SearchVariants finds groups whose key or recorded variations match the
// given term. Fuzziness is left to ES here; the grouping engine itself owns
// the authoritative matching.
func (c *Client) SearchVariants(ctx context.Context, term string, limit int) ([]VariantHit, error) {
	ctx, span := observability.StartSpan(ctx, "es.search_variants",
		attribute.String("term", term),
	)
	defer span.End()

	index := c.GroupsIndex()
	start := time.Now()

	query := map[string]any{
		"size": limit,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     term,
				"fields":    []string{"group_key^2", "variations"},
				"fuzziness": "AUTO",
			},
		},
	}

	cbResult, err := c.cb.Execute(func() (any, error) {
		var hits []VariantHit
		retryErr := resilience.Retry(ctx, c.retryCfg, func() error {
			var execErr error
			hits, execErr = c.executeVariantSearch(ctx, index, query)
			return execErr
		})
		return hits, retryErr
	})

	duration := time.Since(start)
	if err != nil {
		observability.ESQueryDuration.WithLabelValues(index, "error").Observe(duration.Seconds())
		return nil, fmt.Errorf("es variant search (index=%s): %w", index, err)
	}

	hits, ok := cbResult.([]VariantHit)
	if !ok {
		observability.ESQueryDuration.WithLabelValues(index, "error").Observe(duration.Seconds())
		return nil, fmt.Errorf("es variant search (index=%s): unexpected result type from circuit breaker", index)
	}
	observability.ESQueryDuration.WithLabelValues(index, "success").Observe(duration.Seconds())

	return hits, nil
}

func (c *Client) executeVariantSearch(ctx context.Context, index string, query map[string]any) ([]VariantHit, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshaling es query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
		c.es.Search.WithTimeout(c.cfg.RequestTimeout),
		c.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("executing es search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("es search error status=%s body=%s", res.Status(), string(bodyBytes))
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("decoding es response: %w", err)
	}

	hits := make([]VariantHit, 0, len(esResp.Hits.Hits))
	for _, h := range esResp.Hits.Hits {
		hit := VariantHit{
			Key:   h.ID,
			Score: h.Score,
		}
		if h.Source != nil {
			if v, ok := h.Source["group_key"].(string); ok {
				hit.Key = v
			}
			if v, ok := h.Source["total_counts"].(float64); ok {
				hit.TotalCounts = int64(v)
			}
			if vars, ok := h.Source["variations"].([]any); ok {
				for _, t := range vars {
					if s, ok := t.(string); ok {
						hit.Variations = append(hit.Variations, s)
					}
				}
			}
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

func (c *Client) HealthCheck(ctx context.Context) (string, error) {
	res, err := c.es.Cluster.Health(
		c.es.Cluster.Health.WithContext(ctx),
	)
	if err != nil {
		return "red", fmt.Errorf("es health check: %w", err)
	}
	defer res.Body.Close()

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&health); err != nil {
		return "red", fmt.Errorf("decoding health response: %w", err)
	}
	return health.Status, nil
}

func (c *Client) Close() error {
	return nil
}

// ES response types

type esSearchResponse struct {
	Took     int64 `json:"took"`
	TimedOut bool  `json:"timed_out"`
	Shards   struct {
		Total      int `json:"total"`
		Successful int `json:"successful"`
		Skipped    int `json:"skipped"`
		Failed     int `json:"failed"`
	} `json:"_shards"`
	Hits struct {
		Total struct {
			Value    int64  `json:"value"`
			Relation string `json:"relation"`
		} `json:"total"`
		Hits []esHit `json:"hits"`
	} `json:"hits"`
}

type esHit struct {
	Index  string         `json:"_index"`
	ID     string         `json:"_id"`
	Score  float64        `json:"_score"`
	Source map[string]any `json:"_source"`
}

type bulkResponse struct {
	Errors bool                        `json:"errors"`
	Items  []map[string]bulkItemResult `json:"items"`
}

type bulkItemResult struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error,omitempty"`
}
