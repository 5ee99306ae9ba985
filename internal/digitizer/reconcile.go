package digitizer

import (
	"github.com/shopspring/decimal"

	"github.com/sells-group/estimates-cli/internal/model"
)

// variantResult is the set of observations read from one preprocessing variant.
type variantResult struct {
	Variant      string
	Observations []model.QuarterObservation
}

// reconcile folds per-variant observations into one observation per quarter.
//
// With a single variant every observation is high confidence. With several:
// a quarter seen by two or more variants that all agree within tolerance is
// high; a quarter seen by only one variant is medium; on disagreement the
// value of the first variant in priority that saw the quarter is taken at
// medium, and when priority names none of them the first variant in
// generation order wins at low confidence.
//
// Quarters keep the order in which they were first seen.
func reconcile(results []variantResult, priority []string, tolerance decimal.Decimal) []model.QuarterObservation {
	var order []string
	byQuarter := make(map[string][]model.QuarterObservation)
	for _, r := range results {
		for _, o := range r.Observations {
			if _, ok := byQuarter[o.Quarter]; !ok {
				order = append(order, o.Quarter)
			}
			byQuarter[o.Quarter] = append(byQuarter[o.Quarter], o)
		}
	}

	multi := len(results) > 1
	out := make([]model.QuarterObservation, 0, len(order))
	for _, q := range order {
		seen := byQuarter[q]
		switch {
		case !multi:
			o := seen[0]
			o.Confidence = model.ConfidenceHigh
			out = append(out, o)
		case len(seen) == 1:
			o := seen[0]
			o.Confidence = model.ConfidenceMedium
			out = append(out, o)
		case agree(seen, tolerance):
			o := preferred(seen, priority)
			o.Confidence = model.ConfidenceHigh
			out = append(out, o)
		default:
			o, ok := byPriority(seen, priority)
			if ok {
				o.Confidence = model.ConfidenceMedium
			} else {
				o = seen[0]
				o.Confidence = model.ConfidenceLow
			}
			out = append(out, o)
		}
	}
	return out
}

// agree reports whether every value lies within tolerance of every other.
func agree(obs []model.QuarterObservation, tolerance decimal.Decimal) bool {
	lo, hi := obs[0].EPS, obs[0].EPS
	for _, o := range obs[1:] {
		if o.EPS.LessThan(lo) {
			lo = o.EPS
		}
		if o.EPS.GreaterThan(hi) {
			hi = o.EPS
		}
	}
	return hi.Sub(lo).LessThanOrEqual(tolerance)
}

func byPriority(obs []model.QuarterObservation, priority []string) (model.QuarterObservation, bool) {
	for _, name := range priority {
		for _, o := range obs {
			if o.Variant == name {
				return o, true
			}
		}
	}
	return model.QuarterObservation{}, false
}

func preferred(obs []model.QuarterObservation, priority []string) model.QuarterObservation {
	if o, ok := byPriority(obs, priority); ok {
		return o
	}
	return obs[0]
}
