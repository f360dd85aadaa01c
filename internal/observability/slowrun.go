package observability

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/searchlab/keyword-insights/internal/models"
)

type SlowRunDetector struct {
	warningThreshold  time.Duration
	criticalThreshold time.Duration
	logger            *zap.Logger
	analyticsWriter   AnalyticsWriter
}

type AnalyticsWriter interface {
	WriteRunStats(ctx context.Context, event *models.RunEvent) error
}

func NewSlowRunDetector(warning, critical time.Duration, logger *zap.Logger, aw AnalyticsWriter) *SlowRunDetector {
	return &SlowRunDetector{
		warningThreshold:  warning,
		criticalThreshold: critical,
		logger:            logger,
		analyticsWriter:   aw,
	}
}

// Intercept records a grouping run that exceeded the warning threshold. Fast
// runs return immediately with zero overhead.
func (srd *SlowRunDetector) Intercept(ctx context.Context, datasetHash, runType string, duration time.Duration, records, groups int64) {
	if duration <= srd.warningThreshold {
		return
	}

	traceID := TraceIDFromContext(ctx)
	severity := srd.classifySeverity(duration)

	SlowRunCounter.WithLabelValues(severity, runType).Inc()

	srd.logger.Warn("slow grouping run detected",
		zap.String("trace_id", traceID),
		zap.String("dataset_hash", datasetHash),
		zap.String("run_type", runType),
		zap.Float64("duration_ms", float64(duration.Milliseconds())),
		zap.Int64("records", records),
		zap.Int64("groups", groups),
		zap.String("severity", severity),
	)

	// Write to ClickHouse asynchronously so it doesn't block the response.
	if srd.analyticsWriter != nil {
		event := &models.RunEvent{
			EventType:   "run_performance",
			RunType:     runType,
			DatasetHash: datasetHash,
			DurationMs:  float64(duration.Milliseconds()),
			Records:     records,
			Groups:      groups,
			Timestamp:   time.Now().UTC(),
			TraceID:     traceID,
		}
		go func() {
			writeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srd.analyticsWriter.WriteRunStats(writeCtx, event); err != nil {
				srd.logger.Error("failed to write run analytics",
					zap.String("trace_id", traceID),
					zap.Error(err),
				)
			}
		}()
	}
}

func (srd *SlowRunDetector) classifySeverity(d time.Duration) string {
	if d > srd.criticalThreshold {
		return "critical"
	}
	if d > srd.warningThreshold {
		return "warning"
	}
	return "normal"
}
