package digitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/estimates-cli/internal/ocr"
)

func TestParseQuarter(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Q1'24", "Q1'24", true},
		{"Q4’19", "Q4'19", true},
		{"q2 23", "Q2'23", true},
		{"QI'24", "Q1'24", true},
		{"Q3'2O", "Q3'20", true},
		{"Q124", "Q1'24", true},
		{"Q5'24", "", false},
		{"Q1'2024", "", false},
		{"Quarter", "", false},
		{"1.23", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseQuarter(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"52.59", "52.59", true},
		{"$52.59", "52.59", true},
		{"52,59", "52.59", true},
		{"5Z.S9", "52.59", true},
		{"S52.59", "52.59", true},
		{"s52.59", "52.59", true},
		{"S.52", "5.52", true},
		{"O.98", "0.98", true},
		{"l4.1", "14.1", true},
		{"(1.25)", "-1.25", true},
		{"−0.50", "-0.5", true},
		{"2024", "", false},
		{"EPS", "", false},
		{"12.3.4", "", false},
		{"Q1'24", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseValue(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestClassify(t *testing.T) {
	anns := []ocr.Annotation{
		ann("Bottom-Up", 0, 0, 50, 10),
		ann("Q1'24", 88, 280, 108, 290),
		ann("1.23", 90, 100, 110, 112),
		ann("?.4x", 150, 100, 160, 112),
		ann("Q2'24", 192, 280, 212, 290),
	}
	quarters, values := classify(anns)

	assert.Equal(t, []quarterToken{
		{Label: "Q1'24", X: 98, Order: 1},
		{Label: "Q2'24", X: 202, Order: 4},
	}, quarters)
	if assert.Len(t, values, 1) {
		assert.Equal(t, "1.23", values[0].Value.String())
		assert.Equal(t, 2, values[0].Order)
	}
}

func ann(text string, x0, y0, x1, y1 float64) ocr.Annotation {
	return ocr.Annotation{Text: text, Polygon: []ocr.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}}
}
