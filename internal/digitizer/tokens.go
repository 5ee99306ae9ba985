package digitizer

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/estimates-cli/internal/ocr"
)

var (
	quarterRe = regexp.MustCompile(`^Q([1-4])'?(\d{2})$`)
	valueRe   = regexp.MustCompile(`^-?\d{1,4}\.\d{1,3}$`)
)

// digitFolds maps letters OCR commonly confuses with digits.
var digitFolds = strings.NewReplacer(
	"O", "0", "o", "0", "D", "0",
	"I", "1", "l", "1", "|", "1", "i", "1",
	"S", "5", "s", "5",
	"B", "8",
	"Z", "2", "z", "2",
	"G", "6",
)

var apostrophes = strings.NewReplacer(
	"‘", "'", "’", "'", "ʼ", "'", "´", "'", "`", "'",
)

type quarterToken struct {
	Label string
	X     float64
	Order int
}

type valueToken struct {
	Value decimal.Decimal
	Box   ocr.Rect
	Order int
}

// fold applies Unicode compatibility folding and unifies apostrophes and
// minus signs.
func fold(s string) string {
	s = norm.NFKC.String(strings.TrimSpace(s))
	s = apostrophes.Replace(s)
	return strings.ReplaceAll(s, "−", "-")
}

// parseQuarter returns the canonical label, e.g. "Q1'24", for tokens such as
// "Q1'24", "Q1’24", "q1 24" or "QI'24".
func parseQuarter(raw string) (string, bool) {
	s := strings.ReplaceAll(fold(raw), " ", "")
	if len(s) < 4 || (s[0] != 'Q' && s[0] != 'q') {
		return "", false
	}
	s = "Q" + digitFolds.Replace(s[1:])
	m := quarterRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return "Q" + m[1] + "'" + m[2], true
}

// parseValue returns the EPS figure in tokens such as "52.59", "$52.59",
// "52,59" or "5Z.S9". A leading S is read as a misrecognized "$" whenever the
// rest of the token is a number, so "S52.59" is 52.59. ok is false for
// anything that does not normalize to a decimal number.
func parseValue(raw string) (decimal.Decimal, bool) {
	s := strings.TrimRight(fold(raw), "*")
	if rest, found := strings.CutPrefix(s, "$"); found {
		return parseNumber(rest)
	}
	if len(s) > 1 && (s[0] == 'S' || s[0] == 's') {
		if d, ok := parseNumber(s[1:]); ok {
			return d, true
		}
	}
	return parseNumber(s)
}

func parseNumber(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(s, ",", ".")
	s = digitFolds.Replace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	if !valueRe.MatchString(s) {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// classify splits annotations into quarter and value tokens. Everything else,
// including numeric-looking tokens that fail to parse, is dropped.
func classify(anns []ocr.Annotation) ([]quarterToken, []valueToken) {
	var (
		quarters []quarterToken
		values   []valueToken
	)
	for i, a := range anns {
		if label, ok := parseQuarter(a.Text); ok {
			quarters = append(quarters, quarterToken{Label: label, X: a.Bounds().CenterX(), Order: i})
			continue
		}
		if v, ok := parseValue(a.Text); ok {
			values = append(values, valueToken{Value: v, Box: a.Bounds(), Order: i})
		}
	}
	return quarters, values
}
