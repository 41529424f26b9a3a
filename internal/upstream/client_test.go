package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/api/", Token: "secret"}, nil, nil, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestListLogs_QueryAndAuth(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":"1","datetime":"2025-03-03 10:00"}]}`))
	}))

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	logs, err := c.ListLogs(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	require.NotNil(t, got)
	assert.Equal(t, "/api/teleapo/logs", got.URL.Path)
	assert.Equal(t, "2025-03-01", got.URL.Query().Get("from"))
	assert.Equal(t, "2025-04-01", got.URL.Query().Get("to"))
	assert.Equal(t, "2000", got.URL.Query().Get("limit"))
	assert.Equal(t, "0", got.URL.Query().Get("offset"))
	assert.Equal(t, "Bearer secret", got.Header.Get("Authorization"))
}

func TestListLogs_Pages(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		size := logPageSize
		if n > 1 {
			size = 3
		}
		page := make([]map[string]any, size)
		for i := range page {
			page[i] = map[string]any{"id": i}
		}
		_ = json.NewEncoder(w).Encode(page)
	}))

	logs, err := c.ListLogs(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
	assert.Len(t, logs, logPageSize+3)
	assert.Equal(t, int32(2), calls.Load())
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	_, err := c.ListCandidates(context.Background())
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, "list_candidates", se.Op)
	assert.Equal(t, "boom", se.Body)
}

func TestFetchCandidateDetail(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/candidates/42", r.URL.Path)
		_, _ = w.Write([]byte(`{"candidate":{"candidateName":"山田 太郎","phone":"090-1234-5678"}}`))
	}))

	detail, err := c.FetchCandidateDetail(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), detail.ID)
	assert.Equal(t, "山田 太郎", detail.Name)
	assert.Equal(t, "090-1234-5678", detail.Phone)
}

func TestFetchRateTargets_Unwraps(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-03", r.URL.Query().Get("period"))
		_, _ = w.Write([]byte(`{"targets":{"connectionRate":30}}`))
	}))

	rec, err := c.FetchRateTargets(context.Background(), time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, float64(30), rec["connectionRate"])
}

func TestCreateLog(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body["id"] = "srv-1"
		_ = json.NewEncoder(w).Encode(map[string]any{"item": body})
	}))

	out, err := c.CreateLog(context.Background(), map[string]any{"result": "通電"})
	require.NoError(t, err)
	assert.Equal(t, "srv-1", out["id"])
	assert.Equal(t, "通電", out["result"])
}

func TestRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, RPS: 0.001, Burst: 1}, nil, nil, zerolog.Nop())
	require.NoError(t, err)

	_, err = c.ListCandidates(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.ListCandidates(ctx)
	assert.Error(t, err)
}
