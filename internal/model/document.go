package model

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	// DateKeyLayout is the ISO layout of the Report_Date table key.
	DateKeyLayout = "2006-01-02"
	// FileDateLayout is the 8-digit layout used in PDF and image filenames.
	FileDateLayout = "20060102"
)

// SourceDocument is one downloaded report. The first encoding that fetched
// successfully for a date is recorded and never changes afterwards.
type SourceDocument struct {
	ReportDate time.Time `json:"report_date" yaml:"-"`
	Date       string    `json:"date" yaml:"date"`
	Encoding   string    `json:"encoding" yaml:"encoding"`
	SourceURL  string    `json:"source_url" yaml:"source_url"`
	LocalPath  string    `json:"local_path" yaml:"local_path"`
	SizeBytes  int64     `json:"size_bytes" yaml:"size_bytes"`
}

// ChartPage is the rasterized chart page of one SourceDocument.
type ChartPage struct {
	ReportDate time.Time `json:"report_date"`
	ImagePath  string    `json:"image_path"`
	Resolution int       `json:"resolution"`
	PageNumber int       `json:"page_number"` // 1-based; 0 when served from cache
	Cached     bool      `json:"cached"`
}

// DateKey formats t as a Report_Date key.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// ReportDateFromPDF derives the report date from a downloaded PDF name such
// as EarningsInsight_20161209_120916.pdf.
func ReportDateFromPDF(path string) (time.Time, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.Split(stem, "_")
	if len(parts) < 2 {
		return time.Time{}, eris.Errorf("model: no date segment in %q", filepath.Base(path))
	}
	t, err := time.Parse(FileDateLayout, parts[1])
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "model: parse date segment of %q", filepath.Base(path))
	}
	return t, nil
}

// ReportDateFromImage derives the report date from a chart image name whose
// stem starts with the 8-digit date, e.g. 20161209.png or 20161209-6.png.
func ReportDateFromImage(path string) (time.Time, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if len(stem) < 8 {
		return time.Time{}, eris.Errorf("model: image name %q too short for a date", filepath.Base(path))
	}
	t, err := time.Parse(FileDateLayout, stem[:8])
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "model: parse date of %q", filepath.Base(path))
	}
	return t, nil
}
