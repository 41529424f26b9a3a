package enrichment

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dennisdiepolder/monti/outreach/internal/metrics"
)

// FetchFunc performs the work for one queued id
type FetchFunc func(ctx context.Context, id int64) error

// QueueConfig is the shape of one FIFO enrichment queue
type QueueConfig struct {
	Name      string
	BatchSize int
	Delay     time.Duration
	// Satisfied reports that id needs no fetch
	Satisfied func(id int64) bool
	// Busy reports that a fetch for id is already running elsewhere
	Busy  func(id int64) bool
	Fetch FetchFunc
}

// Queue is a deduplicated FIFO of candidate ids drained in fixed-size
// concurrent batches with a pause between batches. Only one batch runs
// at a time.
type Queue struct {
	cfg     QueueConfig
	mu      sync.Mutex
	items   []int64
	pending map[int64]struct{}
	active  bool
	wake    chan struct{}
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewQueue creates a queue; call Run to start draining it
func NewQueue(cfg QueueConfig, m *metrics.Metrics, logger zerolog.Logger) *Queue {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	return &Queue{
		cfg:     cfg,
		pending: make(map[int64]struct{}),
		wake:    make(chan struct{}, 1),
		metrics: m,
		logger:  logger.With().Str("queue", cfg.Name).Logger(),
	}
}

// Name returns the queue name
func (q *Queue) Name() string {
	return q.cfg.Name
}

// Enqueue adds id unless it is invalid, already satisfied, being fetched
// or already queued. It reports whether the id was added.
func (q *Queue) Enqueue(id int64) bool {
	if id <= 0 {
		return false
	}
	if q.cfg.Satisfied != nil && q.cfg.Satisfied(id) {
		return false
	}
	if q.cfg.Busy != nil && q.cfg.Busy(id) {
		return false
	}

	q.mu.Lock()
	if _, queued := q.pending[id]; queued {
		q.mu.Unlock()
		return false
	}
	q.pending[id] = struct{}{}
	q.items = append(q.items, id)
	depth := len(q.items)
	q.mu.Unlock()

	q.metrics.RecordEnqueue(q.cfg.Name, depth)
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Len returns the number of queued ids
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Active reports whether a batch is being processed
func (q *Queue) Active() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Run drains the queue until ctx is cancelled
func (q *Queue) Run(ctx context.Context) {
	q.logger.Debug().Int("batch_size", q.cfg.BatchSize).Dur("delay", q.cfg.Delay).Msg("queue started")
	for {
		select {
		case <-ctx.Done():
			q.logger.Debug().Msg("queue stopped")
			return
		case <-q.wake:
		}

		for q.processBatch(ctx) {
			timer := time.NewTimer(q.cfg.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				q.logger.Debug().Msg("queue stopped")
				return
			case <-timer.C:
			}
		}
	}
}

// processBatch pops and fetches up to BatchSize ids. It returns false,
// marking the queue idle, when there was nothing to do.
func (q *Queue) processBatch(ctx context.Context) bool {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.active = false
		q.mu.Unlock()
		return false
	}
	q.active = true
	n := q.cfg.BatchSize
	if n > len(q.items) {
		n = len(q.items)
	}
	batch := make([]int64, n)
	copy(batch, q.items[:n])
	q.items = q.items[n:]
	for _, id := range batch {
		delete(q.pending, id)
	}
	depth := len(q.items)
	q.mu.Unlock()

	q.metrics.SetQueueDepth(q.cfg.Name, depth)

	var g errgroup.Group
	for _, id := range batch {
		g.Go(func() error {
			return q.cfg.Fetch(ctx, id)
		})
	}
	if err := g.Wait(); err != nil {
		q.logger.Debug().Err(err).Int("batch", len(batch)).Msg("batch finished with failures")
	}
	return true
}
