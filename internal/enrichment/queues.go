package enrichment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/outreach/internal/metrics"
)

// Kind names one enrichment queue
type Kind string

const (
	KindMissingInfo      Kind = "missing_info"
	KindContactTime      Kind = "contact_time"
	KindValidApplication Kind = "valid_application"
	KindAttendance       Kind = "attendance"
)

// Kinds lists the queues in a stable order
var Kinds = []Kind{KindMissingInfo, KindContactTime, KindValidApplication, KindAttendance}

// ParseKind validates a queue name
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown enrichment queue %q", s)
}

// BatchSizes sets the batch size per queue
type BatchSizes struct {
	MissingInfo      int
	ContactTime      int
	ValidApplication int
	Attendance       int
}

// DefaultBatchSizes mirrors the dashboard defaults
func DefaultBatchSizes() BatchSizes {
	return BatchSizes{MissingInfo: 20, ContactTime: 10, ValidApplication: 10, Attendance: 10}
}

// Queues are the four enrichment queues sharing one Service
type Queues struct {
	svc    *Service
	queues map[Kind]*Queue
}

// NewQueues wires the four queues onto svc
func NewQueues(svc *Service, sizes BatchSizes, delay time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Queues {
	logger = logger.With().Str("component", "enrichment_queue").Logger()
	fetch := func(ctx context.Context, id int64) error {
		_, err := svc.Fetch(ctx, id)
		return err
	}
	mk := func(kind Kind, size int, satisfied func(int64) bool) *Queue {
		return NewQueue(QueueConfig{
			Name:      string(kind),
			BatchSize: size,
			Delay:     delay,
			Satisfied: satisfied,
			Busy:      svc.InFlight,
			Fetch:     fetch,
		}, m, logger)
	}

	cache := svc.Cache()
	return &Queues{
		svc: svc,
		queues: map[Kind]*Queue{
			KindMissingInfo: mk(KindMissingInfo, sizes.MissingInfo, func(id int64) bool {
				e, ok := cache.Get(id)
				return ok && e.DetailFetched
			}),
			KindContactTime: mk(KindContactTime, sizes.ContactTime, func(id int64) bool {
				e, ok := cache.Get(id)
				return ok && (e.HasContactTime() || e.ContactTimeFetched)
			}),
			// Eligibility is only worth fetching once rules are known
			KindValidApplication: mk(KindValidApplication, sizes.ValidApplication, func(id int64) bool {
				if svc.Rules() == nil {
					return true
				}
				if _, ok := cache.ValidApplication(id); ok {
					return true
				}
				e, ok := cache.Get(id)
				return ok && e.DetailFetched
			}),
			KindAttendance: mk(KindAttendance, sizes.Attendance, func(id int64) bool {
				if _, ok := cache.Attendance(id); ok {
					return true
				}
				e, ok := cache.Get(id)
				return ok && (e.AttendanceConfirmed != nil || e.DetailFetched)
			}),
		},
	}
}

// Get returns the queue of kind
func (q *Queues) Get(kind Kind) *Queue {
	return q.queues[kind]
}

// Enqueue adds ids to the queue of kind and returns how many were accepted
func (q *Queues) Enqueue(kind Kind, ids ...int64) (int, error) {
	queue, ok := q.queues[kind]
	if !ok {
		return 0, fmt.Errorf("unknown enrichment queue %q", kind)
	}
	added := 0
	for _, id := range ids {
		if queue.Enqueue(id) {
			added++
		}
	}
	return added, nil
}

// Depths reports the queued count per kind
func (q *Queues) Depths() map[Kind]int {
	out := make(map[Kind]int, len(q.queues))
	for kind, queue := range q.queues {
		out[kind] = queue.Len()
	}
	return out
}

// Run drains all four queues until ctx is cancelled
func (q *Queues) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, kind := range Kinds {
		queue := q.queues[kind]
		wg.Add(1)
		go func() {
			defer wg.Done()
			queue.Run(ctx)
		}()
	}
	wg.Wait()
}
