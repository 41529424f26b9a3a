// Package upstream talks to the recruiting dashboard API the call logs,
// candidates, screening rules and KPI targets come from.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/dennisdiepolder/monti/outreach/internal/ingestion"
	"github.com/dennisdiepolder/monti/outreach/internal/metrics"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

const (
	logsPath     = "/teleapo/logs"
	candidates   = "/candidates"
	rulesPath    = "/settings-screening-rules"
	targetsPath  = "/kpi-targets"
	logPageSize  = 2000
	maxErrorBody = 512
)

// StatusError is returned for non-2xx upstream responses
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// Config configures a Client
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	RPS     float64
	Burst   int
}

// Client is a rate-limited JSON client for the upstream API
type Client struct {
	base    *url.URL
	token   string
	http    *http.Client
	limiter *rate.Limiter
	mapper  *ingestion.Mapper
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New creates a Client
func New(cfg Config, mapper *ingestion.Mapper, m *metrics.Metrics, logger zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base URL: %w", err)
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if mapper == nil {
		mapper = ingestion.NewMapper(time.Local)
	}
	return &Client{
		base:    base,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		mapper:  mapper,
		metrics: m,
		logger:  logger.With().Str("component", "upstream").Logger(),
	}, nil
}

// ListLogs returns raw logs called in [from, to], paging through the listing
func (c *Client) ListLogs(ctx context.Context, from, to time.Time) ([]ingestion.Record, error) {
	var all []ingestion.Record
	for offset := 0; ; offset += logPageSize {
		q := url.Values{}
		q.Set("from", from.Format("2006-01-02"))
		q.Set("to", to.AddDate(0, 0, 1).Format("2006-01-02"))
		q.Set("limit", strconv.Itoa(logPageSize))
		q.Set("offset", strconv.Itoa(offset))

		body, err := c.do(ctx, "list_logs", http.MethodGet, logsPath, q, nil)
		if err != nil {
			return nil, err
		}
		page, err := ingestion.DecodeRecords(body)
		if err != nil {
			return nil, fmt.Errorf("list logs: %w", err)
		}
		all = append(all, page...)
		if len(page) < logPageSize {
			return all, nil
		}
	}
}

// ListCandidates returns the raw candidate master
func (c *Client) ListCandidates(ctx context.Context) ([]ingestion.Record, error) {
	body, err := c.do(ctx, "list_candidates", http.MethodGet, candidates, nil, nil)
	if err != nil {
		return nil, err
	}
	list, err := ingestion.DecodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return list, nil
}

// FetchCandidateDetail loads and maps one candidate's detail record
func (c *Client) FetchCandidateDetail(ctx context.Context, id int64) (types.Candidate, error) {
	rec, err := c.getRecord(ctx, "candidate_detail", candidates+"/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return types.Candidate{}, err
	}
	detail := c.mapper.MapDetail(rec)
	if detail.ID <= 0 {
		detail.ID = id
	}
	return detail, nil
}

// FetchScreeningRules returns the raw screening rule payload
func (c *Client) FetchScreeningRules(ctx context.Context) (ingestion.Record, error) {
	return c.getRecord(ctx, "screening_rules", rulesPath, nil)
}

// FetchRateTargets returns the raw KPI targets of the month containing period
func (c *Client) FetchRateTargets(ctx context.Context, period time.Time) (ingestion.Record, error) {
	q := url.Values{}
	q.Set("period", period.Format("2006-01"))
	rec, err := c.getRecord(ctx, "rate_targets", targetsPath, q)
	if err != nil {
		return nil, err
	}
	for _, key := range []string{"targets", "item", "data"} {
		if inner, ok := rec[key].(map[string]any); ok {
			return ingestion.Record(inner), nil
		}
	}
	return rec, nil
}

// CreateLog posts a new call log and returns the stored record
func (c *Client) CreateLog(ctx context.Context, rec ingestion.Record) (ingestion.Record, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode log: %w", err)
	}
	body, err := c.do(ctx, "create_log", http.MethodPost, logsPath, nil, payload)
	if err != nil {
		return nil, err
	}
	out := ingestion.Record{}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode created log: %w", err)
	}
	if inner, ok := out["item"].(map[string]any); ok {
		return ingestion.Record(inner), nil
	}
	return out, nil
}

func (c *Client) getRecord(ctx context.Context, op, path string, q url.Values) (ingestion.Record, error) {
	body, err := c.do(ctx, op, http.MethodGet, path, q, nil)
	if err != nil {
		return nil, err
	}
	rec := ingestion.Record{}
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return rec, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u := *c.base
	u.Path = c.base.Path + path
	if q != nil {
		u.RawQuery = q.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordUpstream(op, 0)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	c.metrics.RecordUpstream(op, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}

	c.logger.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("upstream request")
	return body, nil
}
