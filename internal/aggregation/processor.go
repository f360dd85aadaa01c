package aggregation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/searchlab/keyword-insights/internal/config"
	"github.com/searchlab/keyword-insights/internal/models"
	"github.com/searchlab/keyword-insights/internal/observability"
)

// EventSink receives flushed event batches, normally the ClickHouse client.
type EventSink interface {
	InsertSearchEvents(ctx context.Context, events []*models.SearchEvent) error
}

// Rebuilder re-groups the store after new data lands, normally the Service.
type Rebuilder interface {
	RebuildFromStore(ctx context.Context, window time.Duration) (*models.GroupingResult, error)
}

// StreamProcessor buffers search events off the ingest stream and flushes
// them to the store in batches. On a slower cadence it triggers a grouping
// rebuild so rollups track the incoming traffic.
type StreamProcessor struct {
	sink      EventSink
	rebuilder Rebuilder
	cfg       config.AggregationConfig
	logger    *zap.Logger

	mu          sync.Mutex
	buffer      []*models.SearchEvent
	flushTicker *time.Ticker
	groupTicker *time.Ticker
	done        chan struct{}
	wg          sync.WaitGroup
}

func NewStreamProcessor(
	sink EventSink,
	rebuilder Rebuilder,
	cfg config.AggregationConfig,
	logger *zap.Logger,
) *StreamProcessor {
	sp := &StreamProcessor{
		sink:        sink,
		rebuilder:   rebuilder,
		cfg:         cfg,
		logger:      logger,
		buffer:      make([]*models.SearchEvent, 0, cfg.MaxBuffer),
		flushTicker: time.NewTicker(cfg.FlushInterval),
		groupTicker: time.NewTicker(cfg.GroupWindow),
		done:        make(chan struct{}),
	}

	sp.wg.Add(1)
	go sp.loop()

	return sp
}

// HandleEvent is the Kafka consumer callback. Buffering is in-memory; the
// consumer only commits after this returns, so a crash loses at most one
// uncommitted message, not the buffer's worth of acknowledged ones on the
// broker side.
func (sp *StreamProcessor) HandleEvent(ctx context.Context, event *models.SearchEvent) error {
	if event.Query == "" {
		return fmt.Errorf("search event with empty query")
	}

	sp.mu.Lock()
	sp.buffer = append(sp.buffer, event)
	shouldFlush := len(sp.buffer) >= sp.cfg.MaxBuffer
	sp.mu.Unlock()

	if shouldFlush {
		if err := sp.flush(ctx); err != nil {
			sp.logger.Error("flush on buffer full failed", zap.Error(err))
		}
	}

	return nil
}

func (sp *StreamProcessor) loop() {
	defer sp.wg.Done()
	for {
		select {
		case <-sp.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := sp.flush(ctx); err != nil {
				sp.logger.Error("periodic flush failed", zap.Error(err))
			}
			cancel()

		case <-sp.groupTicker.C:
			sp.rebuild()

		case <-sp.done:
			return
		}
	}
}

func (sp *StreamProcessor) flush(ctx context.Context) error {
	sp.mu.Lock()
	if len(sp.buffer) == 0 {
		sp.mu.Unlock()
		return nil
	}
	batch := make([]*models.SearchEvent, len(sp.buffer))
	copy(batch, sp.buffer)
	sp.buffer = sp.buffer[:0]
	sp.mu.Unlock()

	start := time.Now()
	if sp.sink == nil {
		observability.IngestEventsTotal.WithLabelValues("flush", "dropped").Add(float64(len(batch)))
		sp.logger.Warn("event sink unavailable, dropping batch", zap.Int("count", len(batch)))
		return nil
	}

	if err := sp.sink.InsertSearchEvents(ctx, batch); err != nil {
		// Put the failed batch back for the next flush attempt.
		sp.mu.Lock()
		sp.buffer = append(batch, sp.buffer...)
		sp.mu.Unlock()

		observability.IngestEventsTotal.WithLabelValues("flush", "error").Inc()
		return fmt.Errorf("event batch flush: %w", err)
	}

	observability.IngestEventsTotal.WithLabelValues("flush", "success").Add(float64(len(batch)))
	sp.logger.Info("event batch flushed",
		zap.Int("count", len(batch)),
		zap.Duration("duration", time.Since(start)),
	)

	return nil
}

func (sp *StreamProcessor) rebuild() {
	if sp.rebuilder == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Flush pending events first so the rebuild sees them.
	if err := sp.flush(ctx); err != nil {
		sp.logger.Error("pre-rebuild flush failed", zap.Error(err))
	}

	if _, err := sp.rebuilder.RebuildFromStore(ctx, 0); err != nil {
		sp.logger.Error("scheduled rebuild failed", zap.Error(err))
	}
}

func (sp *StreamProcessor) Stop() error {
	sp.flushTicker.Stop()
	sp.groupTicker.Stop()
	close(sp.done)
	sp.wg.Wait()

	// Final flush
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return sp.flush(ctx)
}
