package ingestion

import (
	"context"
	"time"

	"github.com/dennisdiepolder/monti/outreach/internal/types"
	"github.com/rs/zerolog"
)

// Source lists raw records from the upstream dashboard API
type Source interface {
	ListLogs(ctx context.Context, from, to time.Time) ([]Record, error)
	ListCandidates(ctx context.Context) ([]Record, error)
}

// Processor normalizes raw batches and reports what it had to degrade
type Processor struct {
	mapper *Mapper
	logger zerolog.Logger
}

// NewProcessor creates a new Processor
func NewProcessor(mapper *Mapper, logger zerolog.Logger) *Processor {
	return &Processor{
		mapper: mapper,
		logger: logger.With().Str("component", "ingestion").Logger(),
	}
}

// Mapper returns the underlying record mapper
func (p *Processor) Mapper() *Mapper {
	return p.mapper
}

// NormalizeLogs maps every record; malformed ones are kept with a zero timestamp
func (p *Processor) NormalizeLogs(records []Record) []types.CallLogEntry {
	logs := make([]types.CallLogEntry, 0, len(records))
	untimed := 0
	unknownResult := 0
	for _, r := range records {
		entry := p.mapper.MapLog(r)
		if !entry.HasTimestamp() {
			untimed++
			p.logger.Debug().
				Str("log_id", entry.ID).
				Str("datetime", entry.Datetime).
				Msg("log has unparseable timestamp")
		}
		if entry.ResultCode != "" && entry.ResultCode.Label() == "" {
			unknownResult++
		}
		logs = append(logs, entry)
	}

	if untimed > 0 || unknownResult > 0 {
		p.logger.Warn().
			Int("total", len(records)).
			Int("untimed", untimed).
			Int("unknown_result", unknownResult).
			Msg("normalized logs with degraded records")
	}
	return logs
}

// NormalizeCandidates maps candidate records, dropping ones without a positive id
func (p *Processor) NormalizeCandidates(records []Record) []types.Candidate {
	out := make([]types.Candidate, 0, len(records))
	for _, r := range records {
		c := p.mapper.MapCandidate(r)
		if c.ID <= 0 {
			p.logger.Debug().Str("name", c.Name).Msg("skipping candidate without id")
			continue
		}
		out = append(out, c)
	}
	return out
}
