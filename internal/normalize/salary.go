package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/law-makers/jobcrawl/pkg/models"
)

// Salary is the result of ParseSalary. All fields are nil when no amount was found.
type Salary struct {
	Amount *float64
	Max    *float64
	Type   *models.SalaryType
}

var (
	// Thousands may also be grouped by a plain or non-breaking space: "800 000".
	amountRe     = regexp.MustCompile(`\d[\d.,]*(?:[ \x{00A0}\x{202F}]\d{3}\b)*`)
	groupSpacing = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "")

	hourlyWords = newKeywords("hora", "hour", "/hr", "hourly")
	yearlyWords = newKeywords("año", "year", "anual", "annual", "/yr")
)

// ParseSalary extracts up to two amounts (a range) and the pay period.
// The period defaults to monthly when an amount has no unit keyword.
func ParseSalary(raw string) Salary {
	var s Salary
	t := newText(raw)
	if t.empty() {
		return s
	}

	var amounts []float64
	for _, tok := range amountRe.FindAllString(t.lower, -1) {
		if v, ok := parseAmount(tok); ok {
			amounts = append(amounts, v)
		}
		if len(amounts) == 2 {
			break
		}
	}
	if len(amounts) == 0 {
		return s
	}

	s.Amount = models.Ptr(amounts[0])
	if len(amounts) > 1 {
		s.Max = models.Ptr(amounts[1])
	}

	unit := models.SalaryMonthly
	switch {
	case hasRaw(t, hourlyWords):
		unit = models.SalaryHourly
	case hasRaw(t, yearlyWords):
		unit = models.SalaryYearly
	}
	s.Type = models.Ptr(unit)
	return s
}

// hasRaw matches without accent folding: "año" must not match "humano".
func hasRaw(t text, ks []keyword) bool {
	for _, k := range ks {
		if strings.Contains(t.lower, k.text) {
			return true
		}
	}
	return false
}

// parseAmount reads "500,000", "1.500.000", "800 000", "15.50" or "1.234,56".
// Commas are thousands separators unless a dot precedes them.
func parseAmount(tok string) (float64, bool) {
	tok = strings.TrimRight(groupSpacing.Replace(tok), ".,")
	if tok == "" {
		return 0, false
	}
	lastDot := strings.LastIndex(tok, ".")
	lastComma := strings.LastIndex(tok, ",")

	switch {
	case lastDot >= 0 && lastComma > lastDot:
		// 1.234,56
		tok = strings.ReplaceAll(tok, ".", "")
		tok = strings.Replace(tok, ",", ".", 1)
	case lastDot >= 0:
		tok = strings.ReplaceAll(tok, ",", "")
		if dotThousands(tok) {
			tok = strings.ReplaceAll(tok, ".", "")
		}
	default:
		tok = strings.ReplaceAll(tok, ",", "")
	}

	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// dotThousands reports whether every dot-separated group after the first has
// exactly three digits, e.g. "750.000".
func dotThousands(tok string) bool {
	parts := strings.Split(tok, ".")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}
