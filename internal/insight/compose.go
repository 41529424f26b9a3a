package insight

import (
	"fmt"
	"math"

	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// Source values reported alongside the insight text
const (
	SourceNoPhoneLogs      = "no_phone_logs"
	SourceAttemptLift      = "attempt_lift"
	SourceAttemptVolume    = "attempt_volume"
	SourceAttemptLowSample = "attempt_low_sample"
	SourceAttempt          = "attempt"
	SourceHeatmapLift      = "heatmap_lift"
	SourceHeatmapVolume    = "heatmap_volume"
	SourceHeatmapLowSample = "heatmap_low_sample"
	SourceNone             = "none"
)

const (
	defaultScopeLabel = "全体"
	fallbackText      = "傾向がまだ出ていません！まずは母数を増やして、勝ち筋を掴みましょう！"
)

// Input is the analysis slice an insight is computed from
type Input struct {
	PhoneLogs  int
	Heatmap    types.Heatmap
	Attempts   types.AttemptDistribution
	ScopeLabel string
}

// Compose runs both heuristics and picks the message by priority:
// attempt with a heatmap finding, attempt alone, heatmap alone.
func Compose(in Input, th Thresholds) types.Insight {
	if in.PhoneLogs == 0 {
		return types.Insight{
			Text:   "データがまだ少なめです！ログを増やせば勝ちパターンが見えてきますよ！",
			Source: SourceNoPhoneLogs,
		}
	}

	scope := in.ScopeLabel
	if scope == "" {
		scope = defaultScopeLabel
	}
	hm := HeatmapInsight(in.Heatmap, scope, th)
	at := AttemptInsight(in.Attempts, th)

	out := types.Insight{Heatmap: hm, Attempt: at}

	if at != nil && hm != nil {
		switch hm.Type {
		case types.FindingLift:
			out.Source = SourceAttemptLift
			out.Text = fmt.Sprintf("通電は%d回目が勝負！%sの%s%s帯は通電率%s（%d/%d件）で平均%sより%dポイント高い%sため、ここを集中攻略しましょう！",
				at.Attempt, hm.ScopeLabel, hm.Day, hm.Slot, pct(hm.Rate), hm.Connects, hm.Dials,
				pct(hm.BaselineRate), int(math.Round(hm.Lift)), sampleNote(hm.MinSamples))
		case types.FindingVolume:
			out.Source = SourceAttemptVolume
			out.Text = fmt.Sprintf("通電は%d回目が勝負！%sの%s%s帯が母数最多（%d件）なので、ここを底上げすると伸びます！",
				at.Attempt, hm.ScopeLabel, hm.Day, hm.Slot, hm.Dials)
		default:
			out.Source = SourceAttemptLowSample
			out.Text = fmt.Sprintf("通電は%d回目が勝負！ヒートマップは母数が少なめなので、まず件数を積み上げましょう！", at.Attempt)
		}
		return out
	}

	if at != nil {
		out.Source = SourceAttempt
		out.Text = AttemptText(*at)
		return out
	}

	if hm == nil {
		out.Source = SourceNone
		out.Text = fallbackText
		return out
	}

	switch hm.Type {
	case types.FindingLift:
		out.Source = SourceHeatmapLift
		out.Text = fmt.Sprintf("%sの%s%s帯は通電率%s（%d/%d件）で平均%sより%dポイント高く好調%s！この時間帯を攻めて伸ばしましょう！",
			hm.ScopeLabel, hm.Day, hm.Slot, pct(hm.Rate), hm.Connects, hm.Dials,
			pct(hm.BaselineRate), int(math.Round(hm.Lift)), sampleNote(hm.MinSamples))
	case types.FindingVolume:
		out.Source = SourceHeatmapVolume
		out.Text = fmt.Sprintf("%sの%s%s帯が母数最多（%d件）！ここを磨けば全体が伸びます！",
			hm.ScopeLabel, hm.Day, hm.Slot, hm.Dials)
	case types.FindingLowSample:
		out.Source = SourceHeatmapLowSample
		out.Text = "ヒートマップは母数が少なめです！まずは件数を増やして勝ち時間帯を見つけましょう！"
	default:
		out.Source = SourceNone
		out.Text = fallbackText
	}
	return out
}

// AttemptText is the standalone attempt message used when the heatmap
// has no finding.
func AttemptText(at types.AttemptFinding) string {
	base := fmt.Sprintf("%d回目の通電率が%.0f%%！", at.Attempt, at.Rate)
	if at.LowSignal {
		return base + " ただし差は小さめなので、まずは母数を増やして精度を上げましょう！"
	}
	return base + " 粘りが結果につながっています、あと一押し行きましょう！"
}

func pct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", v)
}

func sampleNote(minSamples int) string {
	if minSamples <= 0 {
		return ""
	}
	return fmt.Sprintf("（母数%d件以上の中で）", minSamples)
}
