package aggregation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/searchlab/keyword-insights/internal/config"
	"github.com/searchlab/keyword-insights/internal/models"
)

type fakeSink struct {
	mu      sync.Mutex
	batches [][]*models.SearchEvent
	err     error
}

func (f *fakeSink) InsertSearchEvents(ctx context.Context, events []*models.SearchEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, events)
	return nil
}

func (f *fakeSink) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSink) totalEvents() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func (f *fakeSink) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

type fakeRebuilder struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeRebuilder) RebuildFromStore(ctx context.Context, window time.Duration) (*models.GroupingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &models.GroupingResult{}, nil
}

func (f *fakeRebuilder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func quietAggregationConfig() config.AggregationConfig {
	return config.AggregationConfig{
		FlushInterval: time.Hour,
		MaxBuffer:     1000,
		GroupWindow:   time.Hour,
	}
}

func TestHandleEvent_RejectsEmptyQuery(t *testing.T) {
	sp := NewStreamProcessor(&fakeSink{}, nil, quietAggregationConfig(), zap.NewNop())
	defer sp.Stop()

	if err := sp.HandleEvent(context.Background(), &models.SearchEvent{Query: ""}); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestHandleEvent_FlushesAtMaxBuffer(t *testing.T) {
	sink := &fakeSink{}
	cfg := quietAggregationConfig()
	cfg.MaxBuffer = 3
	sp := NewStreamProcessor(sink, nil, cfg, zap.NewNop())
	defer sp.Stop()

	for i := 0; i < 2; i++ {
		if err := sp.HandleEvent(context.Background(), &models.SearchEvent{Query: "فيتامين د", Count: 1}); err != nil {
			t.Fatal(err)
		}
	}
	if sink.batchCount() != 0 {
		t.Fatalf("flushed before buffer full, %d batches", sink.batchCount())
	}

	if err := sp.HandleEvent(context.Background(), &models.SearchEvent{Query: "magnesium", Count: 1}); err != nil {
		t.Fatal(err)
	}
	if sink.batchCount() != 1 {
		t.Fatalf("expected 1 batch after buffer filled, got %d", sink.batchCount())
	}
	if sink.totalEvents() != 3 {
		t.Errorf("expected 3 events flushed, got %d", sink.totalEvents())
	}
}

func TestStop_FlushesRemainingEvents(t *testing.T) {
	sink := &fakeSink{}
	sp := NewStreamProcessor(sink, nil, quietAggregationConfig(), zap.NewNop())

	for i := 0; i < 5; i++ {
		if err := sp.HandleEvent(context.Background(), &models.SearchEvent{Query: "collagen", Count: 1}); err != nil {
			t.Fatal(err)
		}
	}

	if err := sp.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if sink.totalEvents() != 5 {
		t.Errorf("expected 5 events flushed on stop, got %d", sink.totalEvents())
	}
}

func TestFlush_FailureRequeuesBatch(t *testing.T) {
	sink := &fakeSink{err: errors.New("store down")}
	cfg := quietAggregationConfig()
	cfg.MaxBuffer = 2
	sp := NewStreamProcessor(sink, nil, cfg, zap.NewNop())

	for i := 0; i < 2; i++ {
		if err := sp.HandleEvent(context.Background(), &models.SearchEvent{Query: "zinc", Count: 1}); err != nil {
			t.Fatal(err)
		}
	}
	if sink.totalEvents() != 0 {
		t.Fatal("sink should have rejected the batch")
	}

	// Once the sink recovers, the requeued events flush on shutdown.
	sink.setErr(nil)
	if err := sp.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if sink.totalEvents() != 2 {
		t.Errorf("expected requeued events flushed, got %d", sink.totalEvents())
	}
}

func TestPeriodicFlush(t *testing.T) {
	sink := &fakeSink{}
	cfg := quietAggregationConfig()
	cfg.FlushInterval = 20 * time.Millisecond
	sp := NewStreamProcessor(sink, nil, cfg, zap.NewNop())
	defer sp.Stop()

	if err := sp.HandleEvent(context.Background(), &models.SearchEvent{Query: "ashwagandha", Count: 1}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.totalEvents() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sink.totalEvents() != 1 {
		t.Errorf("expected periodic flush to deliver 1 event, got %d", sink.totalEvents())
	}
}

func TestScheduledRebuild(t *testing.T) {
	rebuilder := &fakeRebuilder{}
	cfg := quietAggregationConfig()
	cfg.GroupWindow = 20 * time.Millisecond
	sp := NewStreamProcessor(&fakeSink{}, rebuilder, cfg, zap.NewNop())
	defer sp.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for rebuilder.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if rebuilder.callCount() == 0 {
		t.Error("expected at least one scheduled rebuild")
	}
}

func TestNilSinkDropsBatch(t *testing.T) {
	cfg := quietAggregationConfig()
	cfg.MaxBuffer = 1
	sp := NewStreamProcessor(nil, nil, cfg, zap.NewNop())

	if err := sp.HandleEvent(context.Background(), &models.SearchEvent{Query: "biotin", Count: 1}); err != nil {
		t.Fatal(err)
	}
	if err := sp.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}
