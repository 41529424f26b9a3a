package aggregator

import (
	"time"

	"github.com/dennisdiepolder/monti/outreach/internal/classify"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

var (
	heatmapDays  = []string{"月", "火", "水", "木", "金"}
	heatmapSlots = []string{"09-11", "11-13", "13-15", "15-17", "17-19"}
)

// EmptyHeatmap returns the fixed 5x5 grid with zero counts
func EmptyHeatmap() types.Heatmap {
	h := types.Heatmap{
		Days:  append([]string(nil), heatmapDays...),
		Slots: append([]string(nil), heatmapSlots...),
		Cells: make([][]types.HeatmapCell, len(heatmapSlots)),
	}
	for s, slot := range heatmapSlots {
		h.Cells[s] = make([]types.HeatmapCell, len(heatmapDays))
		for d, name := range heatmapDays {
			h.Cells[s][d] = types.HeatmapCell{Day: name, Slot: slot}
		}
	}
	return h
}

// slotIndex maps an hour to its slot; hours before 9 fold into the first
// slot and hours from 19 on are outside the grid
func slotIndex(hour int) int {
	switch {
	case hour < 11:
		return 0
	case hour < 13:
		return 1
	case hour < 15:
		return 2
	case hour < 17:
		return 3
	case hour < 19:
		return 4
	}
	return -1
}

// BuildHeatmap counts timed phone logs on weekdays by 2-hour slot
func BuildHeatmap(logs []types.CallLogEntry, facts classify.FactSource) types.Heatmap {
	h := EmptyHeatmap()
	for _, entry := range logs {
		if !entry.IsPhone() || !entry.HasTimestamp() {
			continue
		}
		wd := entry.Timestamp.Weekday()
		if wd < time.Monday || wd > time.Friday {
			continue
		}
		s := slotIndex(entry.Timestamp.Hour())
		if s < 0 {
			continue
		}
		cell := &h.Cells[s][int(wd)-1]
		cell.Dials++
		if classify.With(facts, entry).IsConnect {
			cell.Connects++
		}
	}
	for s := range h.Cells {
		for d := range h.Cells[s] {
			c := &h.Cells[s][d]
			c.Rate = percentOf(c.Connects, c.Dials)
		}
	}
	return h
}
