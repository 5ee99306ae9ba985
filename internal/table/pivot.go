package table

import (
	"github.com/sells-group/estimates-cli/internal/model"
)

// Pivot turns the observations of one chart into a row of each table. The
// estimates row holds EPS values, the confidence row holds Label() values.
// Quarter order is the order of obs.
func Pivot(date string, obs []model.QuarterObservation) (estimates, confidence Row, order []string) {
	estimates = Row{Date: date, Cells: make(map[string]string, len(obs))}
	confidence = Row{Date: date, Cells: make(map[string]string, len(obs))}
	for _, o := range obs {
		if o.Quarter == "" {
			continue
		}
		if _, dup := estimates.Cells[o.Quarter]; dup {
			continue
		}
		estimates.Cells[o.Quarter] = o.EPS.String()
		confidence.Cells[o.Quarter] = o.Label()
		order = append(order, o.Quarter)
	}
	return estimates, confidence, order
}

// Batch accumulates pivoted rows for both tables in lock-step.
type Batch struct {
	Estimates  *Table
	Confidence *Table
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{Estimates: New(), Confidence: New()}
}

// Add pivots obs and appends one row to each table. Empty observation sets
// add nothing.
func (b *Batch) Add(date string, obs []model.QuarterObservation) bool {
	est, conf, order := Pivot(date, obs)
	if len(order) == 0 {
		return false
	}
	b.Estimates.Append(est, order)
	b.Confidence.Append(conf, order)
	return true
}

// Len is the number of rows accumulated.
func (b *Batch) Len() int {
	return b.Estimates.Len()
}
