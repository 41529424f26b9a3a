// Package enrichment backfills candidate fields the bulk listing lacks.
// A shared detail cache sits behind a deduplicated detail fetch, and four
// throttled queues feed it.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/dennisdiepolder/monti/outreach/internal/metrics"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// ErrInvalidCandidateID is returned for ids that are not positive
var ErrInvalidCandidateID = errors.New("invalid candidate id")

// DetailFetcher loads one candidate's detail record. It must be safe to
// call concurrently for different ids.
type DetailFetcher interface {
	FetchCandidateDetail(ctx context.Context, id int64) (types.Candidate, error)
}

// Notifier is told when enrichment changed data the dashboard depends on
type Notifier interface {
	Request()
}

// Mirror persists entries outside the process
type Mirror interface {
	Load(ctx context.Context, id int64) (*types.EnrichmentEntry, error)
	Save(ctx context.Context, entry types.EnrichmentEntry) error
	Clear(ctx context.Context) error
}

// Service owns the detail cache and the deduplicated detail fetch
type Service struct {
	cache   *Cache
	fetcher DetailFetcher
	notify  Notifier
	mirror  Mirror
	metrics *metrics.Metrics
	logger  zerolog.Logger
	timeout time.Duration
	now     func() time.Time

	group    singleflight.Group
	flightMu sync.Mutex
	inFlight map[int64]struct{}

	rulesMu sync.RWMutex
	rules   *Rules
}

// Option configures a Service
type Option func(*Service)

// WithMirror attaches an external mirror of the cache
func WithMirror(m Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

// WithNotifier sets who is told about completed fetches
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithMetrics records fetch metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides time.Now, for age computation in tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service. timeout bounds every detail fetch
// independently of the caller's context.
func NewService(fetcher DetailFetcher, timeout time.Duration, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		cache:    NewCache(),
		fetcher:  fetcher,
		logger:   logger.With().Str("component", "enrichment").Logger(),
		timeout:  timeout,
		now:      time.Now,
		inFlight: make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cache exposes the underlying cache
func (s *Service) Cache() *Cache {
	return s.cache
}

// InFlight reports whether a detail fetch for id is running
func (s *Service) InFlight(id int64) bool {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	_, ok := s.inFlight[id]
	return ok
}

// Fetch returns the detail entry of id, fetching it at most once. Callers
// asking for an id that is already being fetched share that fetch. The
// fetch keeps running if ctx is cancelled so its result still warms the
// cache.
func (s *Service) Fetch(ctx context.Context, id int64) (types.EnrichmentEntry, error) {
	if id <= 0 {
		return types.EnrichmentEntry{}, fmt.Errorf("fetch candidate %d: %w", id, ErrInvalidCandidateID)
	}
	if entry, ok := s.cache.Get(id); ok && entry.DetailFetched {
		s.metrics.RecordDetailFetch("cached", 0)
		return entry, nil
	}

	ch := s.group.DoChan(strconv.FormatInt(id, 10), func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), id)
	})
	select {
	case res := <-ch:
		entry, _ := res.Val.(types.EnrichmentEntry)
		return entry, res.Err
	case <-ctx.Done():
		return types.EnrichmentEntry{}, ctx.Err()
	}
}

func (s *Service) fetch(ctx context.Context, id int64) (types.EnrichmentEntry, error) {
	s.flightMu.Lock()
	s.inFlight[id] = struct{}{}
	s.flightMu.Unlock()
	defer func() {
		s.flightMu.Lock()
		delete(s.inFlight, id)
		s.flightMu.Unlock()
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if entry, ok := s.loadMirror(ctx, id); ok {
		s.metrics.RecordDetailFetch("cached", 0)
		return entry, nil
	}

	start := time.Now()
	detail, err := s.fetcher.FetchCandidateDetail(ctx, id)
	if err != nil {
		s.metrics.RecordDetailFetch("error", time.Since(start))
		s.logger.Warn().Err(err).Int64("candidate_id", id).Msg("candidate detail fetch failed")
		_, after := s.cache.Update(id, func(e *types.EnrichmentEntry) {
			e.DetailFetched = true
			e.ContactTimeFetched = true
		})
		return after, fmt.Errorf("fetch candidate %d: %w", id, err)
	}
	s.metrics.RecordDetailFetch("ok", time.Since(start))

	before, after := s.cache.Update(id, func(e *types.EnrichmentEntry) {
		e.Candidate = mergeCandidate(e.Candidate, detail)
		e.DetailFetched = true
		e.ContactTimeFetched = true
	})
	validChanged := s.evaluate(after.Candidate)

	if s.mirror != nil {
		if err := s.mirror.Save(ctx, after); err != nil {
			s.logger.Debug().Err(err).Int64("candidate_id", id).Msg("mirror save failed")
		}
	}

	if validChanged || changed(before, after) {
		s.request()
	}
	return after, nil
}

func (s *Service) loadMirror(ctx context.Context, id int64) (types.EnrichmentEntry, bool) {
	if s.mirror == nil {
		return types.EnrichmentEntry{}, false
	}
	entry, err := s.mirror.Load(ctx, id)
	if err != nil {
		s.logger.Debug().Err(err).Int64("candidate_id", id).Msg("mirror load failed")
		return types.EnrichmentEntry{}, false
	}
	if entry == nil || !entry.DetailFetched {
		return types.EnrichmentEntry{}, false
	}
	_, after := s.cache.Update(id, func(e *types.EnrichmentEntry) {
		e.Candidate = mergeCandidate(e.Candidate, entry.Candidate)
		e.DetailFetched = true
		e.ContactTimeFetched = true
	})
	s.evaluate(after.Candidate)
	s.request()
	return after, true
}

func changed(before, after types.EnrichmentEntry) bool {
	if before.ContactPreferredTime != after.ContactPreferredTime {
		return true
	}
	if (before.AttendanceConfirmed == nil) != (after.AttendanceConfirmed == nil) {
		return true
	}
	if before.AttendanceConfirmed != nil && *before.AttendanceConfirmed != *after.AttendanceConfirmed {
		return true
	}
	if (before.FirstInterviewDate == nil) != (after.FirstInterviewDate == nil) {
		return true
	}
	return before.Phone != after.Phone || (before.Age == nil) != (after.Age == nil)
}

func (s *Service) request() {
	if s.notify != nil {
		s.notify.Request()
	}
}

// SetRules installs screening rules and re-evaluates every cached entry
func (s *Service) SetRules(rules *Rules) {
	s.rulesMu.Lock()
	s.rules = rules
	s.rulesMu.Unlock()

	for _, entry := range s.cache.Entries() {
		s.evaluate(entry.Candidate)
	}
}

// Rules returns the installed screening rules, nil when none are loaded
func (s *Service) Rules() *Rules {
	s.rulesMu.RLock()
	defer s.rulesMu.RUnlock()
	return s.rules
}

// evaluate refreshes the cached eligibility of c and reports a change
func (s *Service) evaluate(c types.Candidate) bool {
	rules := s.Rules()
	if rules == nil {
		if c.ValidApplication != nil {
			return s.cache.SetValidApplication(c.ID, c.ValidApplication)
		}
		return false
	}
	return s.cache.SetValidApplication(c.ID, ResolveValidApplication(c, *rules, s.now()))
}

// Seed merges a bulk candidate listing into the cache
func (s *Service) Seed(candidates []types.Candidate) {
	s.cache.Seed(candidates)
	for _, c := range candidates {
		if entry, ok := s.cache.Get(c.ID); ok {
			s.evaluate(entry.Candidate)
		}
	}
}

// Reset clears the cache and the mirror; used on a full reload
func (s *Service) Reset(ctx context.Context) {
	s.cache.Clear()
	if s.mirror != nil {
		if err := s.mirror.Clear(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("mirror clear failed")
		}
	}
}
