package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportDateFromPDF(t *testing.T) {
	t.Parallel()

	got, err := ReportDateFromPDF("/tmp/pdfs/EarningsInsight_20161209_120916.pdf")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2016, 12, 9, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, "2016-12-09", DateKey(got))
}

func TestReportDateFromPDF_Malformed(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"report.pdf", "EarningsInsight_latest.pdf", "EarningsInsight_20161340_x.pdf"} {
		_, err := ReportDateFromPDF(name)
		assert.Error(t, err, name)
	}
}

func TestReportDateFromImage(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"20240105.png", "out/20240105-6.png"} {
		got, err := ReportDateFromImage(name)
		require.NoError(t, err, name)
		assert.Equal(t, "2024-01-05", DateKey(got))
	}

	_, err := ReportDateFromImage("chart.png")
	assert.Error(t, err)
	_, err = ReportDateFromImage("2024.png")
	assert.Error(t, err)
}
