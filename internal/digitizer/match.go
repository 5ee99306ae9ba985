package digitizer

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/sells-group/estimates-cli/internal/ocr"
)

// match pairs a value with the quarter tick it was printed above.
type match struct {
	Quarter string
	Value   decimal.Decimal
	Box     ocr.Rect
	DX      float64
}

// matchValues assigns each value token to the quarter token with the nearest
// horizontal center.
//
// Ties between equidistant quarters go to the leftmost quarter. A value
// farther than maxOffsetRatio times the median quarter spacing from every
// quarter is dropped. When several values land on one quarter the closest
// wins, ties going to the value seen first. Duplicate quarter labels keep
// their first occurrence. Results are ordered left to right.
func matchValues(quarters []quarterToken, values []valueToken, maxOffsetRatio float64) []match {
	ticks := dedupeQuarters(quarters)
	if len(ticks) == 0 || len(values) == 0 {
		return nil
	}
	sort.SliceStable(ticks, func(i, j int) bool { return ticks[i].X < ticks[j].X })

	maxOffset := math.Inf(1)
	if spacing := medianSpacing(ticks); spacing > 0 && maxOffsetRatio > 0 {
		maxOffset = spacing * maxOffsetRatio
	}

	best := make(map[int]match, len(ticks))
	bestOrder := make(map[int]int, len(ticks))
	for _, v := range values {
		cx := v.Box.CenterX()
		idx := -1
		dist := math.Inf(1)
		for i, q := range ticks {
			if d := math.Abs(cx - q.X); d < dist {
				idx, dist = i, d
			}
		}
		if idx < 0 || dist > maxOffset {
			continue
		}
		cur, ok := best[idx]
		if ok && (cur.DX < dist || (cur.DX == dist && bestOrder[idx] < v.Order)) {
			continue
		}
		best[idx] = match{Quarter: ticks[idx].Label, Value: v.Value, Box: v.Box, DX: dist}
		bestOrder[idx] = v.Order
	}

	out := make([]match, 0, len(best))
	for i := range ticks {
		if m, ok := best[i]; ok {
			out = append(out, m)
		}
	}
	return out
}

func dedupeQuarters(quarters []quarterToken) []quarterToken {
	seen := make(map[string]bool, len(quarters))
	out := make([]quarterToken, 0, len(quarters))
	for _, q := range quarters {
		if seen[q.Label] {
			continue
		}
		seen[q.Label] = true
		out = append(out, q)
	}
	return out
}

// medianSpacing is the median gap between adjacent sorted ticks, or 0 with
// fewer than two ticks.
func medianSpacing(ticks []quarterToken) float64 {
	if len(ticks) < 2 {
		return 0
	}
	gaps := make([]float64, 0, len(ticks)-1)
	for i := 1; i < len(ticks); i++ {
		gaps = append(gaps, ticks[i].X-ticks[i-1].X)
	}
	sort.Float64s(gaps)
	n := len(gaps)
	if n%2 == 1 {
		return gaps[n/2]
	}
	return (gaps[n/2-1] + gaps[n/2]) / 2
}
