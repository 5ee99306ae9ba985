package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BarColor is the palette bucket sampled beneath a value label.
type BarColor string

const (
	BarColorDark    BarColor = "dark"  // realized / actual
	BarColorLight   BarColor = "light" // forward estimate
	BarColorUnknown BarColor = "unknown"
)

// Confidence grades how much a digitized value can be trusted.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Confidence table cell values.
const (
	LabelActual   = "actual"
	LabelEstimate = "estimate"
	LabelLow      = "low"
)

// QuarterObservation is one digitized (quarter, value) pair of a chart.
type QuarterObservation struct {
	ReportDate time.Time       `json:"report_date"`
	Quarter    string          `json:"quarter"`
	EPS        decimal.Decimal `json:"eps"`
	BarColor   BarColor        `json:"bar_color"`
	Confidence Confidence      `json:"confidence"`
	Variant    string          `json:"variant,omitempty"`
}

// Label is the value written to the confidence table for this observation.
// Low-confidence values and unclassified bars are flagged "low"; otherwise
// the bar color decides between actual and estimate.
func (o QuarterObservation) Label() string {
	if o.Confidence == ConfidenceLow {
		return LabelLow
	}
	switch o.BarColor {
	case BarColorDark:
		return LabelActual
	case BarColorLight:
		return LabelEstimate
	default:
		return LabelLow
	}
}
