package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dennisdiepolder/monti/outreach/internal/cache"
	"github.com/dennisdiepolder/monti/outreach/internal/enrichment"
	"github.com/dennisdiepolder/monti/outreach/internal/ingestion"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

type fakeSource struct {
	mu         sync.Mutex
	logs       []ingestion.Record
	candidates []ingestion.Record
	rules      ingestion.Record
	rulesErr   error
	logsErr    error
	created    []ingestion.Record
}

func (f *fakeSource) ListLogs(ctx context.Context, from, to time.Time) ([]ingestion.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logs, f.logsErr
}

func (f *fakeSource) ListCandidates(ctx context.Context) ([]ingestion.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.candidates, nil
}

func (f *fakeSource) FetchScreeningRules(ctx context.Context) (ingestion.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rules, f.rulesErr
}

func (f *fakeSource) FetchRateTargets(ctx context.Context, period time.Time) (ingestion.Record, error) {
	return ingestion.Record{TargetConnectionRate: 40}, nil
}

func (f *fakeSource) CreateLog(ctx context.Context, rec ingestion.Record) (ingestion.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, rec)
	id := "srv-9"
	if n := len(f.created); n > 1 {
		id = fmt.Sprintf("srv-9-%d", n)
	}
	return ingestion.Record{"id": id}, nil
}

type nopFetcher struct{}

func (nopFetcher) FetchCandidateDetail(ctx context.Context, id int64) (types.Candidate, error) {
	return types.Candidate{ID: id}, nil
}

type recordingHub struct {
	mu       sync.Mutex
	messages [][]byte
}

func (h *recordingHub) Broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, data)
}

func (h *recordingHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

func sampleSource() *fakeSource {
	return &fakeSource{
		logs: []ingestion.Record{
			{"id": "1", "datetime": "2025/03/03 09:10", "target": "山田 太郎", "result": "不在", "employee": "佐藤"},
			{"id": "2", "datetime": "2025/03/03 10:00", "target": "山田 太郎", "result": "通電", "employee": "佐藤"},
			{"id": "3", "datetime": "2025/03/04 11:00", "target": "山田　太郎", "result": "設定", "employee": "佐藤"},
		},
		candidates: []ingestion.Record{
			{"candidateId": 7, "candidateName": "山田 太郎"},
			{"candidateId": 8, "candidateName": "鈴木 花子"},
		},
		rules: ingestion.Record{},
	}
}

func newTestAggregator(src Source, hub Broadcaster) (*Aggregator, *enrichment.Queues) {
	logger := zerolog.Nop()
	svc := enrichment.NewService(nopFetcher{}, time.Second, logger)
	queues := enrichment.NewQueues(svc, enrichment.DefaultBatchSizes(), 0, nil, logger)
	processor := ingestion.NewProcessor(ingestion.NewMapper(time.UTC), logger)
	agg := New(cache.NewStore(), src, processor, svc, queues, nil, hub, nil, Config{}, logger)
	return agg, queues
}

func TestReload_LoadsAndBroadcasts(t *testing.T) {
	hub := &recordingHub{}
	agg, queues := newTestAggregator(sampleSource(), hub)

	require.NoError(t, agg.Reload(context.Background(), false))

	dash, ok := agg.Current()
	require.True(t, ok)
	assert.Equal(t, 3, dash.LogCount)
	assert.Equal(t, 1, dash.KPI.Total.Scheduled)
	assert.Equal(t, LevelGood, dash.RateLevels["contactRate"])

	require.Equal(t, 1, hub.count())
	var msg types.Message
	require.NoError(t, json.Unmarshal(hub.messages[0], &msg))
	assert.Equal(t, types.MessageTypeDashboard, msg.Type)

	for _, entry := range agg.WorkingLogs() {
		assert.Equal(t, int64(7), entry.CandidateID, entry.ID)
	}

	depths := queues.Depths()
	assert.Equal(t, 1, depths[enrichment.KindContactTime])
	assert.Equal(t, 1, depths[enrichment.KindAttendance])
	assert.Equal(t, 0, depths[enrichment.KindValidApplication])
	assert.Equal(t, 2, depths[enrichment.KindMissingInfo])
}

func TestReload_RulesFailureIsNotFatal(t *testing.T) {
	src := sampleSource()
	src.rulesErr = errors.New("unavailable")
	agg, _ := newTestAggregator(src, nil)

	require.NoError(t, agg.Reload(context.Background(), false))
	_, ok := agg.Current()
	assert.True(t, ok)
}

func TestReload_LogsFailure(t *testing.T) {
	src := sampleSource()
	src.logsErr = errors.New("boom")
	agg, _ := newTestAggregator(src, nil)

	err := agg.Reload(context.Background(), false)
	require.Error(t, err)
	_, ok := agg.Current()
	assert.False(t, ok)
}

func TestLogs_NewestFirstAndPaged(t *testing.T) {
	agg, _ := newTestAggregator(sampleSource(), nil)
	require.NoError(t, agg.Reload(context.Background(), false))

	page := agg.Logs(Filter{}, 1)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "3", page.Items[0].ID)
	assert.Equal(t, 1, page.Items[2].CallAttemptNumber)

	empty := agg.Logs(Filter{}, 5)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 3, empty.Total)
}

func TestAddLog_StaysPendingUntilListed(t *testing.T) {
	src := sampleSource()
	agg, _ := newTestAggregator(src, nil)
	require.NoError(t, agg.Reload(context.Background(), false))

	entry, err := agg.AddLog(context.Background(), ingestion.Record{
		"datetime": "2025/03/05 15:00",
		"target":   "鈴木 花子",
		"result":   "通電",
		"employee": "佐藤",
	})
	require.NoError(t, err)
	assert.Equal(t, "srv-9", entry.ID)
	assert.Equal(t, int64(8), entry.CandidateID)
	assert.Len(t, src.created, 1)

	dash, ok := agg.Current()
	require.True(t, ok)
	assert.Equal(t, 4, dash.LogCount)

	src.mu.Lock()
	src.logs = append(src.logs, ingestion.Record{
		"id": "srv-9", "datetime": "2025/03/05 15:00", "target": "鈴木 花子", "result": "通電", "employee": "佐藤",
	})
	src.mu.Unlock()

	require.NoError(t, agg.Reload(context.Background(), false))
	assert.Equal(t, 4, agg.store.Size())
	assert.Empty(t, agg.store.Pending())
	dash, _ = agg.Current()
	assert.Equal(t, 4, dash.LogCount)
}

func TestRecompute_ConcurrentCallersKeepLatest(t *testing.T) {
	hub := &recordingHub{}
	agg, _ := newTestAggregator(sampleSource(), hub)
	ctx := context.Background()
	require.NoError(t, agg.Reload(ctx, false))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := agg.AddLog(ctx, ingestion.Record{
				"datetime": fmt.Sprintf("2025/03/05 %02d:00", 9+i),
				"target":   "鈴木 花子",
				"result":   "通電",
				"employee": "佐藤",
			})
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			agg.Recompute()
		}()
	}
	wg.Wait()

	dash, ok := agg.Current()
	require.True(t, ok)
	assert.Equal(t, 11, dash.LogCount)
	assert.Len(t, agg.WorkingLogs(), 11)

	hub.mu.Lock()
	last := hub.messages[len(hub.messages)-1]
	hub.mu.Unlock()
	var msg struct {
		Data types.Dashboard `json:"data"`
	}
	require.NoError(t, json.Unmarshal(last, &msg))
	assert.Equal(t, 11, msg.Data.LogCount)
}
