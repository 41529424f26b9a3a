package ticker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/outreach/internal/enrichment"
	"github.com/dennisdiepolder/monti/outreach/internal/metrics"
)

// DepthSource reports the queued id count per enrichment queue
type DepthSource interface {
	Depths() map[enrichment.Kind]int
}

// Ticker periodically samples enrichment queue depths into the metrics
type Ticker struct {
	queues   DepthSource
	metrics  *metrics.Metrics
	interval time.Duration
	logger   zerolog.Logger
}

// NewTicker creates a new Ticker
func NewTicker(queues DepthSource, m *metrics.Metrics, interval time.Duration, logger zerolog.Logger) *Ticker {
	return &Ticker{
		queues:   queues,
		metrics:  m,
		interval: interval,
		logger:   logger.With().Str("component", "queue_ticker").Logger(),
	}
}

// Start samples queue depths until ctx is cancelled
func (t *Ticker) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info().Dur("interval", t.interval).Msg("ticker started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info().Msg("ticker stopped")
			return

		case <-ticker.C:
			t.Sample()
		}
	}
}

// Sample records the current depth of every queue and returns the total
func (t *Ticker) Sample() int {
	total := 0
	depths := t.queues.Depths()
	for _, kind := range enrichment.Kinds {
		depth := depths[kind]
		total += depth
		t.metrics.SetQueueDepth(string(kind), depth)
	}
	if total > 0 {
		t.logger.Debug().
			Int("missing_info", depths[enrichment.KindMissingInfo]).
			Int("contact_time", depths[enrichment.KindContactTime]).
			Int("valid_application", depths[enrichment.KindValidApplication]).
			Int("attendance", depths[enrichment.KindAttendance]).
			Msg("enrichment backlog")
	}
	return total
}
