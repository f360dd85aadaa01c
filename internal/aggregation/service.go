package aggregation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/searchlab/keyword-insights/internal/cache"
	"github.com/searchlab/keyword-insights/internal/config"
	"github.com/searchlab/keyword-insights/internal/elasticsearch"
	"github.com/searchlab/keyword-insights/internal/keywords"
	"github.com/searchlab/keyword-insights/internal/models"
	"github.com/searchlab/keyword-insights/internal/observability"
)

// ErrDatasetTooLarge is returned when a request carries more records than the
// configured per-request limit.
var ErrDatasetTooLarge = errors.New("dataset exceeds record limit")

// ErrStoreUnavailable is returned by store-backed operations when no record
// store was configured at startup.
var ErrStoreUnavailable = errors.New("record store unavailable")

// RecordStore is the analytics store side of the service: the rolled-up
// query log in and the computed rollups out.
type RecordStore interface {
	ReadQueryRecords(ctx context.Context, window time.Duration, limit int) ([]models.QueryRecord, error)
	InsertKeywordGroups(ctx context.Context, datasetHash string, groups []*models.KeywordGroup) error
	TopKeywords(ctx context.Context, limit int) ([]models.TopKeyword, error)
}

// GroupExporter pushes finished runs to the search index for variant lookups.
type GroupExporter interface {
	ExportGroups(ctx context.Context, datasetHash string, groups []*models.KeywordGroup) error
	SearchVariants(ctx context.Context, term string, limit int) ([]elasticsearch.VariantHit, error)
}

// ResultCache caches whole grouping runs keyed by dataset hash.
type ResultCache interface {
	GetGrouping(ctx context.Context, datasetHash string) (*models.GroupingResult, error)
	SetGrouping(ctx context.Context, datasetHash string, result *models.GroupingResult) error
	GetStaleGrouping(ctx context.Context, datasetHash string) (*models.GroupingResult, error)
	GetTopKeywords(ctx context.Context, limit int) ([]models.TopKeyword, error)
	SetTopKeywords(ctx context.Context, limit int, top []models.TopKeyword) error
	InvalidateGroupings(ctx context.Context) error
}

// Service runs the grouping engine over datasets from the API or the store,
// with the cache in front and the rollup/export writes behind.
type Service struct {
	grouper  *keywords.Grouper
	store    RecordStore
	exporter GroupExporter
	cache    ResultCache
	slowRun  *observability.SlowRunDetector
	cfg      config.GroupingConfig
	logger   *zap.Logger
}

func NewService(
	grouper *keywords.Grouper,
	store RecordStore,
	exporter GroupExporter,
	resultCache ResultCache,
	slowRun *observability.SlowRunDetector,
	cfg config.GroupingConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		grouper:  grouper,
		store:    store,
		exporter: exporter,
		cache:    resultCache,
		slowRun:  slowRun,
		cfg:      cfg,
		logger:   logger,
	}
}

// GroupRecords runs one grouping pass over the given dataset. Identical
// datasets are served from cache unless forceFresh is set.
func (s *Service) GroupRecords(ctx context.Context, records []models.QueryRecord, source string, forceFresh bool) (*models.GroupingResult, error) {
	if len(records) > s.cfg.MaxRecordsPerRequest {
		return nil, fmt.Errorf("%w: %d records, limit %d", ErrDatasetTooLarge, len(records), s.cfg.MaxRecordsPerRequest)
	}

	start := time.Now()
	datasetHash := cache.HashRecords(records)

	ctx, span := observability.StartSpan(ctx, "aggregation.group_records",
		attribute.String("dataset_hash", datasetHash),
		attribute.Int("records", len(records)),
		attribute.String("source", source),
	)
	defer span.End()

	if s.cache != nil && !forceFresh {
		cached, err := s.cache.GetGrouping(ctx, datasetHash)
		if err != nil {
			s.logger.Warn("cache lookup error", zap.Error(err))
		}
		if cached != nil {
			cached.Metadata.CacheHit = true
			cached.TookMs = time.Since(start).Milliseconds()
			observability.GroupingRunsTotal.WithLabelValues(source, "cache_hit").Inc()
			return cached, nil
		}
	}

	groups := s.grouper.Group(records)

	var totalCounts int64
	tokenCount := 0
	for _, g := range groups {
		totalCounts += g.TotalCounts
		tokenCount += g.VariationCount()
	}

	duration := time.Since(start)
	result := &models.GroupingResult{
		Groups:      groups,
		TotalCounts: totalCounts,
		RecordCount: len(records),
		TokenCount:  tokenCount,
		TookMs:      duration.Milliseconds(),
		Source:      source,
		Metadata: models.ResultMetadata{
			Scorer:      s.grouper.ScorerName(),
			MinScore:    s.grouper.MinScore(),
			DatasetHash: datasetHash,
		},
	}

	observability.GroupingRunsTotal.WithLabelValues(source, "success").Inc()
	observability.GroupingRunDuration.WithLabelValues(source, "success").Observe(duration.Seconds())
	observability.TokensPerRun.Observe(float64(tokenCount))
	observability.GroupsPerRun.Observe(float64(len(groups)))

	if s.slowRun != nil {
		s.slowRun.Intercept(ctx, datasetHash, source, duration, int64(len(records)), int64(len(groups)))
	}

	if s.cache != nil {
		if err := s.cache.SetGrouping(ctx, datasetHash, result); err != nil {
			s.logger.Warn("cache set error", zap.Error(err))
		}
	}

	return result, nil
}

// GroupFromStore re-groups the query log accumulated in the store without
// persisting a new rollup. A zero window covers the whole log.
func (s *Service) GroupFromStore(ctx context.Context, window time.Duration, forceFresh bool) (*models.GroupingResult, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}

	records, err := s.store.ReadQueryRecords(ctx, window, s.cfg.MaxRecordsPerRequest)
	if err != nil {
		return nil, fmt.Errorf("reading query records: %w", err)
	}

	return s.GroupRecords(ctx, records, "store", forceFresh)
}

// RebuildFromStore re-groups the query log accumulated in ClickHouse and
// persists the rollup. A zero window covers the whole log.
func (s *Service) RebuildFromStore(ctx context.Context, window time.Duration) (*models.GroupingResult, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}

	ctx, span := observability.StartSpan(ctx, "aggregation.rebuild_from_store",
		attribute.Int64("window_seconds", int64(window.Seconds())),
	)
	defer span.End()

	records, err := s.store.ReadQueryRecords(ctx, window, s.cfg.MaxRecordsPerRequest)
	if err != nil {
		observability.GroupingRunsTotal.WithLabelValues("store", "error").Inc()
		return nil, fmt.Errorf("reading query records: %w", err)
	}

	// Drop previous rollup caches first so the fresh result set below wins.
	if s.cache != nil {
		if err := s.cache.InvalidateGroupings(ctx); err != nil {
			s.logger.Warn("cache invalidation error", zap.Error(err))
		}
	}

	result, err := s.GroupRecords(ctx, records, "store", true)
	if err != nil {
		return nil, err
	}

	if err := s.store.InsertKeywordGroups(ctx, result.Metadata.DatasetHash, result.Groups); err != nil {
		s.logger.Error("persisting keyword groups failed", zap.Error(err))
		return result, fmt.Errorf("persisting keyword groups: %w", err)
	}

	if s.exporter != nil {
		if err := s.exporter.ExportGroups(ctx, result.Metadata.DatasetHash, result.Groups); err != nil {
			// Export is best-effort; the rollup in ClickHouse is authoritative.
			s.logger.Warn("group export failed", zap.Error(err))
		}
	}

	s.logger.Info("rebuild completed",
		zap.String("dataset_hash", result.Metadata.DatasetHash),
		zap.Int("records", result.RecordCount),
		zap.Int("groups", len(result.Groups)),
		zap.Int64("took_ms", result.TookMs),
	)

	return result, nil
}

// TopKeywords serves the latest rollup's highest-volume groups, cache first.
func (s *Service) TopKeywords(ctx context.Context, limit int) ([]models.TopKeyword, error) {
	if s.cache != nil {
		cached, err := s.cache.GetTopKeywords(ctx, limit)
		if err != nil {
			s.logger.Warn("top keywords cache lookup error", zap.Error(err))
		}
		if cached != nil {
			return cached, nil
		}
	}

	if s.store == nil {
		return nil, ErrStoreUnavailable
	}

	top, err := s.store.TopKeywords(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("reading top keywords: %w", err)
	}

	if s.cache != nil && len(top) > 0 {
		if err := s.cache.SetTopKeywords(ctx, limit, top); err != nil {
			s.logger.Warn("top keywords cache set error", zap.Error(err))
		}
	}

	return top, nil
}

// SearchVariants answers variant lookups against the exported group index.
func (s *Service) SearchVariants(ctx context.Context, term string, limit int) ([]elasticsearch.VariantHit, error) {
	if s.exporter == nil {
		return nil, fmt.Errorf("variant search unavailable")
	}
	return s.exporter.SearchVariants(ctx, term, limit)
}
