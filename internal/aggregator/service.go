package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dennisdiepolder/monti/outreach/internal/attempts"
	"github.com/dennisdiepolder/monti/outreach/internal/cache"
	"github.com/dennisdiepolder/monti/outreach/internal/enrichment"
	"github.com/dennisdiepolder/monti/outreach/internal/identity"
	"github.com/dennisdiepolder/monti/outreach/internal/ingestion"
	"github.com/dennisdiepolder/monti/outreach/internal/insight"
	"github.com/dennisdiepolder/monti/outreach/internal/metrics"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// LogPageSize is the number of logs per page of the log listing
const LogPageSize = 30

// Source is the upstream the working set is loaded from
type Source interface {
	ingestion.Source
	FetchScreeningRules(ctx context.Context) (ingestion.Record, error)
	FetchRateTargets(ctx context.Context, period time.Time) (ingestion.Record, error)
	CreateLog(ctx context.Context, rec ingestion.Record) (ingestion.Record, error)
}

// Broadcaster pushes encoded messages to connected clients
type Broadcaster interface {
	Broadcast(data []byte)
}

// Config tunes the service loop
type Config struct {
	PollInterval time.Duration
	LogRangeDays int
	Region       string
	RateMode     types.RateMode
	Thresholds   insight.Thresholds
}

// LogPage is one page of the filtered log listing, newest first
type LogPage struct {
	Items      []types.CallLogEntry `json:"items"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"pageSize"`
	Total      int                  `json:"total"`
	TotalPages int                  `json:"totalPages"`
}

// Status describes the loaded working set
type Status struct {
	Logs       int       `json:"logs"`
	Pending    int       `json:"pending"`
	Candidates int       `json:"candidates"`
	Cached     int       `json:"cachedCandidates"`
	LoadedAt   time.Time `json:"loadedAt"`
}

// Aggregator loads the working set from upstream, keeps enrichment queues
// fed and recomputes the default dashboard whenever its inputs change
type Aggregator struct {
	store     *cache.Store
	source    Source
	processor *ingestion.Processor
	enrich    *enrichment.Service
	queues    *enrichment.Queues
	trigger   *enrichment.Trigger
	hub       Broadcaster
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	cfg       Config
	now       func() time.Time

	reloadMu sync.Mutex
	// recomputeMu orders compute, store and broadcast across callers
	recomputeMu sync.Mutex

	mu      sync.RWMutex
	current *types.Dashboard
}

// New creates an Aggregator. hub, queues and trigger may be nil.
func New(store *cache.Store, source Source, processor *ingestion.Processor, enrich *enrichment.Service,
	queues *enrichment.Queues, trigger *enrichment.Trigger, hub Broadcaster, m *metrics.Metrics,
	cfg Config, logger zerolog.Logger) *Aggregator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.LogRangeDays <= 0 {
		cfg.LogRangeDays = 180
	}
	if cfg.Region == "" {
		cfg.Region = identity.DefaultRegion
	}
	if cfg.RateMode != types.RateModeStep {
		cfg.RateMode = types.RateModeContact
	}
	return &Aggregator{
		store:     store,
		source:    source,
		processor: processor,
		enrich:    enrich,
		queues:    queues,
		trigger:   trigger,
		hub:       hub,
		metrics:   m,
		logger:    logger.With().Str("component", "aggregator").Logger(),
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start loads immediately, then reloads every poll interval and recomputes
// whenever the trigger fires
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	var refresh <-chan struct{}
	if a.trigger != nil {
		refresh = a.trigger.C()
		defer a.trigger.Stop()
	}

	a.logger.Info().Dur("poll_interval", a.cfg.PollInterval).Msg("aggregator started")
	a.reload(ctx)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("aggregator stopped")
			return

		case <-ticker.C:
			a.reload(ctx)

		case <-refresh:
			a.Recompute()
		}
	}
}

func (a *Aggregator) reload(ctx context.Context) {
	if err := a.Reload(ctx, false); err != nil && ctx.Err() == nil {
		a.logger.Error().Err(err).Msg("reload failed")
	}
}

// Reload refetches logs, candidates, screening rules and rate targets,
// installs the new working set, queues enrichment and recomputes. A full
// reload drops the enrichment cache first.
func (a *Aggregator) Reload(ctx context.Context, full bool) error {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	if full {
		a.enrich.Reset(ctx)
	}

	now := a.now().In(a.processor.Mapper().Location())
	from := now.AddDate(0, 0, -a.cfg.LogRangeDays)

	var (
		logRecs, candRecs []ingestion.Record
		rulesRec          ingestion.Record
		targetsRec        ingestion.Record
		rulesOK           bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		logRecs, err = a.source.ListLogs(gctx, from, now)
		if err != nil {
			return fmt.Errorf("list logs: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		candRecs, err = a.source.ListCandidates(gctx)
		if err != nil {
			return fmt.Errorf("list candidates: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		rec, err := a.source.FetchScreeningRules(gctx)
		if err != nil {
			a.logger.Warn().Err(err).Msg("screening rules unavailable, keeping previous")
			return nil
		}
		rulesRec, rulesOK = rec, true
		return nil
	})
	g.Go(func() error {
		rec, err := a.source.FetchRateTargets(gctx, now)
		if err != nil {
			a.logger.Warn().Err(err).Msg("rate targets unavailable")
			return nil
		}
		targetsRec = rec
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}

	candidates := a.processor.NormalizeCandidates(candRecs)
	a.enrich.Seed(candidates)
	if rulesOK {
		rules := enrichment.NormalizeRules(rulesRec)
		if rules.HasConstraints() {
			a.enrich.SetRules(&rules)
		} else {
			a.enrich.SetRules(nil)
		}
	}

	resolver := identity.NewResolver(a.cfg.Region, candidates)
	logs := resolver.Hydrate(a.processor.NormalizeLogs(logRecs))
	_, stillPending := ingestion.MergePending(logs, a.store.Pending())

	a.store.Replace(cache.Snapshot{
		Logs:       logs,
		Candidates: candidates,
		Resolver:   resolver,
		Targets:    NormalizeRateTargets(targetsRec),
		LoadedAt:   now,
	}, stillPending)

	a.logger.Info().
		Int("logs", len(logs)).
		Int("candidates", len(candidates)).
		Int("pending", len(stillPending)).
		Bool("full", full).
		Msg("working set loaded")

	a.prefetch(candidates)
	a.Recompute()
	return nil
}

// prefetch queues the enrichment the dashboard needs for the current set
func (a *Aggregator) prefetch(candidates []types.Candidate) {
	if a.queues == nil {
		return
	}
	logs := a.WorkingLogs()

	var contact, attendance []int64
	for _, entry := range logs {
		if entry.CandidateID <= 0 {
			continue
		}
		contact = append(contact, entry.CandidateID)
		if entry.ResultCode == types.ResultSet {
			attendance = append(attendance, entry.CandidateID)
		}
	}
	valid := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		valid = append(valid, c.ID)
	}
	var missing []int64
	for _, row := range a.enrich.MissingInfoRows() {
		if row.NeedsDetail {
			missing = append(missing, row.CandidateID)
		}
	}

	ids := map[enrichment.Kind][]int64{
		enrichment.KindContactTime:      contact,
		enrichment.KindAttendance:       attendance,
		enrichment.KindValidApplication: valid,
		enrichment.KindMissingInfo:      missing,
	}
	for _, kind := range enrichment.Kinds {
		added, err := a.queues.Enqueue(kind, ids[kind]...)
		if err != nil {
			a.logger.Warn().Err(err).Msg("prefetch enqueue failed")
			continue
		}
		if added > 0 {
			a.logger.Debug().Str("queue", string(kind)).Int("added", added).Msg("prefetch queued")
		}
	}
}

// WorkingLogs returns the server logs merged with pending local logs,
// hydrated and numbered by attempt
func (a *Aggregator) WorkingLogs() []types.CallLogEntry {
	snap := a.store.Snapshot()
	merged, _ := ingestion.MergePending(snap.Logs, a.store.Pending())
	return attempts.Annotate(snap.Resolver.Hydrate(merged))
}

// DefaultOptions returns the options of the broadcast dashboard
func (a *Aggregator) DefaultOptions() Options {
	return Options{
		RateMode:   a.cfg.RateMode,
		Targets:    a.store.Snapshot().Targets,
		Thresholds: a.cfg.Thresholds,
	}
}

// CallSummary rolls up the working logs of one candidate, matched by id
// then by name
func (a *Aggregator) CallSummary(candidateID int64, name string) (types.CallSummary, bool) {
	return attempts.Summaries(a.WorkingLogs(), a.enrich).Lookup(candidateID, name)
}

// Targets returns the loaded KPI goals
func (a *Aggregator) Targets() RateTargets {
	return a.store.Snapshot().Targets
}

// Status summarizes the working set for the admin view
func (a *Aggregator) Status() Status {
	snap := a.store.Snapshot()
	return Status{
		Logs:       len(snap.Logs),
		Pending:    len(a.store.Pending()),
		Candidates: len(snap.Candidates),
		Cached:     a.enrich.Cache().Len(),
		LoadedAt:   snap.LoadedAt,
	}
}

// Dashboard computes a dashboard for opts over the current working set.
// Targets default to the loaded KPI targets.
func (a *Aggregator) Dashboard(opts Options) types.Dashboard {
	if opts.Targets == nil {
		opts.Targets = a.store.Snapshot().Targets
	}
	if opts.Thresholds == (insight.Thresholds{}) {
		opts.Thresholds = a.cfg.Thresholds
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = a.now()
	}
	return Compute(a.WorkingLogs(), a.enrich, opts)
}

// Current returns the last broadcast dashboard
func (a *Aggregator) Current() (types.Dashboard, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return types.Dashboard{}, false
	}
	return *a.current, true
}

// Recompute rebuilds the default dashboard and broadcasts it. Runs are
// serialized so a slower run never replaces a newer dashboard.
func (a *Aggregator) Recompute() {
	a.recomputeMu.Lock()
	defer a.recomputeMu.Unlock()

	start := time.Now()
	dash := a.Dashboard(a.DefaultOptions())
	a.metrics.RecordAggregation(time.Since(start))

	a.mu.Lock()
	a.current = &dash
	a.mu.Unlock()

	if a.hub == nil {
		return
	}
	data, err := json.Marshal(types.Message{
		Type:      types.MessageTypeDashboard,
		Timestamp: dash.GeneratedAt,
		Data:      dash,
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to marshal dashboard")
		return
	}
	a.hub.Broadcast(data)

	a.logger.Debug().
		Int("logs", dash.LogCount).
		Str("insight", dash.Insight.Source).
		Dur("duration", time.Since(start)).
		Msg("dashboard broadcasted")
}

// Logs returns one page of the filtered logs, newest first. Missing contact
// times are filled from the enrichment cache.
func (a *Aggregator) Logs(f Filter, page int) LogPage {
	logs := f.Apply(a.WorkingLogs(), a.enrich)
	sort.SliceStable(logs, func(i, j int) bool {
		ti, tj := logs[i].Timestamp, logs[j].Timestamp
		if ti.IsZero() != tj.IsZero() {
			return !ti.IsZero()
		}
		return ti.After(tj)
	})

	total := len(logs)
	pages := (total + LogPageSize - 1) / LogPageSize
	if page < 1 {
		page = 1
	}
	start := (page - 1) * LogPageSize
	if start > total {
		start = total
	}
	end := min(start+LogPageSize, total)

	items := make([]types.CallLogEntry, 0, end-start)
	for _, entry := range logs[start:end] {
		if entry.ContactPreferredTime == "" && entry.CandidateID > 0 {
			if e, ok := a.enrich.Cache().Get(entry.CandidateID); ok {
				entry.ContactPreferredTime = e.ContactPreferredTime
			}
		}
		items = append(items, entry)
	}
	return LogPage{
		Items:      items,
		Page:       page,
		PageSize:   LogPageSize,
		Total:      total,
		TotalPages: pages,
	}
}

// AddLog posts a new log upstream and keeps it as pending until the
// listing returns it
func (a *Aggregator) AddLog(ctx context.Context, rec ingestion.Record) (types.CallLogEntry, error) {
	mapper := a.processor.Mapper()
	entry := mapper.MapLog(rec)

	stored, err := a.source.CreateLog(ctx, rec)
	if err != nil {
		return types.CallLogEntry{}, fmt.Errorf("create log: %w", err)
	}
	if id := stored.String("id", "log_id", "logId", "logID"); id != "" {
		entry.ID = id
		entry = ingestion.Finalize(entry)
	}

	a.store.AddPending(entry)
	if entry.CandidateID <= 0 {
		entry.CandidateID = a.store.Snapshot().Resolver.ResolveCandidateID(entry)
	}
	if a.queues != nil && entry.CandidateID > 0 {
		_, _ = a.queues.Enqueue(enrichment.KindContactTime, entry.CandidateID)
		if entry.ResultCode == types.ResultSet {
			_, _ = a.queues.Enqueue(enrichment.KindAttendance, entry.CandidateID)
		}
	}

	a.logger.Info().
		Str("log_ref", entry.Ref).
		Int64("candidate_id", entry.CandidateID).
		Msg("log added")
	a.Recompute()
	return entry, nil
}
