package insight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

var (
	testDays  = []string{"月", "火", "水", "木", "金"}
	testSlots = []string{"09-11", "11-13", "13-15", "15-17", "17-19"}
)

func grid() types.Heatmap {
	h := types.Heatmap{Days: testDays, Slots: testSlots, Cells: make([][]types.HeatmapCell, len(testSlots))}
	for s, slot := range testSlots {
		h.Cells[s] = make([]types.HeatmapCell, len(testDays))
		for d, day := range testDays {
			h.Cells[s][d] = types.HeatmapCell{Day: day, Slot: slot}
		}
	}
	return h
}

func set(h types.Heatmap, slot, day, dials, connects int) {
	c := &h.Cells[slot][day]
	c.Dials = dials
	c.Connects = connects
	if dials > 0 {
		r := float64(connects) / float64(dials) * 100
		c.Rate = &r
	}
}

func dist(buckets ...[2]int) types.AttemptDistribution {
	var d types.AttemptDistribution
	for i, b := range buckets {
		r := float64(b[1]) / float64(b[0]) * 100
		d.Buckets = append(d.Buckets, types.AttemptBucket{Attempt: i + 1, Dials: b[0], Connected: b[1], Rate: &r})
		d.SampleDials += b[0]
	}
	return d
}

func TestMinSamples(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, 5, th.MinSamples(0))
	assert.Equal(t, 5, th.MinSamples(100))
	assert.Equal(t, 6, th.MinSamples(101))
	assert.Equal(t, 50, th.MinSamples(1000))
}

func TestHeatmapInsight_Lift(t *testing.T) {
	h := grid()
	set(h, 0, 0, 100, 60)
	set(h, 1, 0, 100, 20)
	set(h, 2, 1, 100, 20)
	set(h, 3, 2, 100, 20)

	f := HeatmapInsight(h, "全体", DefaultThresholds())
	require.NotNil(t, f)
	assert.Equal(t, types.FindingLift, f.Type)
	assert.Equal(t, "月", f.Day)
	assert.Equal(t, "09-11", f.Slot)
	assert.InDelta(t, 30.0, f.BaselineRate, 1e-9)
	assert.InDelta(t, 30.0, f.Lift, 1e-9)
	assert.Equal(t, 20, f.MinSamples)
	assert.Equal(t, 400, f.TotalDials)
}

func TestHeatmapInsight_Volume(t *testing.T) {
	h := grid()
	set(h, 0, 0, 200, 35)
	set(h, 1, 1, 100, 27)
	set(h, 2, 2, 100, 25)

	f := HeatmapInsight(h, "全体", DefaultThresholds())
	require.NotNil(t, f)
	assert.Equal(t, types.FindingVolume, f.Type)
	assert.Equal(t, "月", f.Day)
	assert.Equal(t, "09-11", f.Slot)
	assert.Equal(t, 200, f.Dials)
}

func TestHeatmapInsight_LowSample(t *testing.T) {
	h := grid()
	set(h, 0, 0, 4, 4)

	f := HeatmapInsight(h, "全体", DefaultThresholds())
	require.NotNil(t, f)
	assert.Equal(t, types.FindingLowSample, f.Type)
	assert.Empty(t, f.Day)
}

func TestHeatmapInsight_EmptyGrid(t *testing.T) {
	f := HeatmapInsight(grid(), "全体", DefaultThresholds())
	require.NotNil(t, f)
	assert.Equal(t, types.FindingLowSample, f.Type)
	assert.Zero(t, f.TotalDials)
	assert.Zero(t, f.BaselineRate)
	assert.Equal(t, 5, f.MinSamples)
}

func TestHeatmapInsight_NoCells(t *testing.T) {
	assert.Nil(t, HeatmapInsight(types.Heatmap{}, "全体", DefaultThresholds()))
}

func TestHeatmapInsight_SmallCellNeverReported(t *testing.T) {
	h := grid()
	// 3 perfect dials in a 1000-dial dataset stay below the 50-dial floor
	set(h, 0, 0, 3, 3)
	set(h, 1, 1, 250, 75)
	set(h, 2, 2, 250, 80)
	set(h, 3, 3, 250, 70)
	set(h, 4, 4, 247, 75)

	f := HeatmapInsight(h, "全体", DefaultThresholds())
	require.NotNil(t, f)
	assert.Equal(t, 50, f.MinSamples)
	assert.False(t, f.Day == "月" && f.Slot == "09-11", "under-sampled cell was reported")
}

func TestAttemptInsight(t *testing.T) {
	th := DefaultThresholds()

	f := AttemptInsight(dist([2]int{100, 20}, [2]int{100, 40}), th)
	require.NotNil(t, f)
	assert.Equal(t, 2, f.Attempt)
	assert.False(t, f.LowSignal)
	assert.InDelta(t, 40.0, f.Rate, 1e-9)

	f = AttemptInsight(dist([2]int{100, 31}, [2]int{100, 29}), th)
	require.NotNil(t, f)
	assert.Equal(t, 1, f.Attempt)
	assert.True(t, f.LowSignal)

	assert.Nil(t, AttemptInsight(types.AttemptDistribution{}, th))
	assert.Nil(t, AttemptInsight(dist([2]int{2, 1}, [2]int{2, 1}), th))
}

func TestCompose(t *testing.T) {
	th := DefaultThresholds()

	liftGrid := grid()
	set(liftGrid, 0, 0, 100, 60)
	set(liftGrid, 1, 0, 100, 20)
	set(liftGrid, 2, 1, 100, 20)
	set(liftGrid, 3, 2, 100, 20)

	tests := []struct {
		name   string
		in     Input
		source string
		text   string
	}{
		{
			name:   "no phone logs",
			in:     Input{},
			source: SourceNoPhoneLogs,
			text:   "データがまだ少なめです！ログを増やせば勝ちパターンが見えてきますよ！",
		},
		{
			name: "attempt with heatmap lift",
			in: Input{
				PhoneLogs: 400,
				Heatmap:   liftGrid,
				Attempts:  dist([2]int{100, 20}, [2]int{100, 40}),
			},
			source: SourceAttemptLift,
			text:   "通電は2回目が勝負！全体の月09-11帯は通電率60%（60/100件）で平均30%より30ポイント高い（母数20件以上の中で）ため、ここを集中攻略しましょう！",
		},
		{
			name: "heatmap lift alone",
			in: Input{
				PhoneLogs:  400,
				Heatmap:    liftGrid,
				ScopeLabel: "佐藤さん",
			},
			source: SourceHeatmapLift,
			text:   "佐藤さんの月09-11帯は通電率60%（60/100件）で平均30%より30ポイント高く好調（母数20件以上の中で）！この時間帯を攻めて伸ばしましょう！",
		},
		{
			name: "attempt with no dial in the grid",
			in: Input{
				PhoneLogs: 200,
				Heatmap:   grid(),
				Attempts:  dist([2]int{100, 20}, [2]int{100, 40}),
			},
			source: SourceAttemptLowSample,
			text:   "通電は2回目が勝負！ヒートマップは母数が少なめなので、まず件数を積み上げましょう！",
		},
		{
			name:   "no dial in the grid",
			in:     Input{PhoneLogs: 3, Heatmap: grid()},
			source: SourceHeatmapLowSample,
			text:   "ヒートマップは母数が少なめです！まずは件数を増やして勝ち時間帯を見つけましょう！",
		},
		{
			name: "attempt alone",
			in: Input{
				PhoneLogs: 200,
				Attempts:  dist([2]int{100, 20}, [2]int{100, 40}),
			},
			source: SourceAttempt,
			text:   "2回目の通電率が40%！ 粘りが結果につながっています、あと一押し行きましょう！",
		},
		{
			name:   "nothing to say",
			in:     Input{PhoneLogs: 3},
			source: SourceNone,
			text:   "傾向がまだ出ていません！まずは母数を増やして、勝ち筋を掴みましょう！",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compose(tt.in, th)
			assert.Equal(t, tt.source, got.Source)
			assert.Equal(t, tt.text, got.Text)
		})
	}
}

func TestCompose_LowSampleHeatmap(t *testing.T) {
	h := grid()
	set(h, 0, 0, 4, 4)

	got := Compose(Input{PhoneLogs: 4, Heatmap: h}, DefaultThresholds())
	assert.Equal(t, SourceHeatmapLowSample, got.Source)
	assert.Equal(t, "ヒートマップは母数が少なめです！まずは件数を増やして勝ち時間帯を見つけましょう！", got.Text)

	got = Compose(Input{PhoneLogs: 4, Heatmap: h, Attempts: dist([2]int{100, 20}, [2]int{100, 40})}, DefaultThresholds())
	assert.Equal(t, SourceAttemptLowSample, got.Source)
	assert.Equal(t, "通電は2回目が勝負！ヒートマップは母数が少なめなので、まず件数を積み上げましょう！", got.Text)
}
