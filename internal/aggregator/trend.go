package aggregator

import (
	"fmt"
	"sort"
	"time"

	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

var weekdayLabels = [...]string{"日", "月", "火", "水", "木", "金", "土"}

const day = 24 * time.Hour

// ParseTrendMode accepts the named modes; anything else means auto
func ParseTrendMode(s string) (types.TrendMode, bool) {
	switch m := types.TrendMode(s); m {
	case types.TrendHour, types.TrendWeekday, types.TrendWeek, types.TrendMonth, types.TrendYear:
		return m, true
	}
	return "", s == "" || s == "auto"
}

// SelectTrendMode picks the granularity from the span of the data
func SelectTrendMode(first, last time.Time) types.TrendMode {
	span := last.Sub(first)
	switch {
	case span <= day:
		return types.TrendHour
	case span <= 7*day:
		return types.TrendWeekday
	case span <= 31*day:
		return types.TrendWeek
	case span > 730*day:
		return types.TrendYear
	}
	return types.TrendMonth
}

// WeekOfMonth numbers weeks from 1, starting each on Sunday
func WeekOfMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).Weekday()
	return (int(first)+t.Day()-1)/7 + 1
}

// DateRange returns the earliest and latest timestamp among logs
func DateRange(logs []types.CallLogEntry) (first, last time.Time, ok bool) {
	for _, entry := range logs {
		if !entry.HasTimestamp() {
			continue
		}
		ts := entry.Timestamp
		if !ok || ts.Before(first) {
			first = ts
		}
		if !ok || ts.After(last) {
			last = ts
		}
		ok = true
	}
	return first, last, ok
}

type trendBucket struct {
	point types.TrendPoint
	order int64
	b     types.Bucket
}

// Trend buckets timed logs by the chosen granularity; an empty override
// selects it from the data span
func (a *Accounting) Trend(logs []types.CallLogEntry, override types.TrendMode) types.Trend {
	first, last, ok := DateRange(logs)
	mode := override
	if !ok {
		if mode == "" {
			mode = types.TrendMonth
		}
		return types.Trend{Mode: mode, Points: []types.TrendPoint{}}
	}
	if mode == "" {
		mode = SelectTrendMode(first, last)
	}

	buckets := make(map[string]*trendBucket)
	for _, entry := range logs {
		if !entry.HasTimestamp() {
			continue
		}
		key, label, start, order := trendKey(entry.Timestamp, mode)
		tb, exists := buckets[key]
		if !exists {
			tb = &trendBucket{point: types.TrendPoint{Key: key, Label: label, Start: start}, order: order}
			buckets[key] = tb
		}
		a.Add(&tb.b, entry)
	}

	ordered := make([]*trendBucket, 0, len(buckets))
	for _, tb := range buckets {
		ordered = append(ordered, tb)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].order != ordered[j].order {
			return ordered[i].order < ordered[j].order
		}
		return ordered[i].point.Key < ordered[j].point.Key
	})

	points := make([]types.TrendPoint, 0, len(ordered))
	for _, tb := range ordered {
		p := tb.point
		p.KPI = NewKPI(tb.b, a.mode)
		points = append(points, p)
	}
	return types.Trend{Mode: mode, Points: points}
}

func trendKey(t time.Time, mode types.TrendMode) (key, label string, start *time.Time, order int64) {
	loc := t.Location()
	at := func(y int, m time.Month, d int) *time.Time {
		s := time.Date(y, m, d, 0, 0, 0, 0, loc)
		return &s
	}

	switch mode {
	case types.TrendHour:
		h := t.Hour()
		return fmt.Sprintf("%02d", h), fmt.Sprintf("%02d:00", h), nil, int64(h)
	case types.TrendWeekday:
		wd := t.Weekday()
		return fmt.Sprintf("%d", wd), weekdayLabels[wd], nil, int64(wd)
	case types.TrendWeek:
		w := WeekOfMonth(t)
		s := at(t.Year(), t.Month(), (w-1)*7+1)
		return fmt.Sprintf("%d-%02d-W%d", t.Year(), t.Month(), w),
			fmt.Sprintf("%d月%d週", t.Month(), w), s, s.Unix()
	case types.TrendYear:
		s := at(t.Year(), time.January, 1)
		return fmt.Sprintf("%d", t.Year()), fmt.Sprintf("%d年", t.Year()), s, s.Unix()
	}
	s := at(t.Year(), t.Month(), 1)
	return fmt.Sprintf("%d-%02d", t.Year(), t.Month()), fmt.Sprintf("%d/%02d", t.Year(), t.Month()), s, s.Unix()
}
