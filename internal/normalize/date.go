package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISODate is the layout used for every date field.
const ISODate = "2006-01-02"

var (
	numberRe = regexp.MustCompile(`\d+`)
	wordRe   = regexp.MustCompile(`[\p{L}]+`)

	todayWords = newKeywords("hoy", "today", "just posted", "recién publicado", "publicado recientemente")
	agoWords   = newKeywords("hace", "ago")

	// Unit patterns run against the accent-folded text and accept plurals.
	hourUnit  = regexp.MustCompile(`\b(?:horas?|hours?|hrs?|minutos?|minutes?|mins?)\b`)
	weekUnit  = regexp.MustCompile(`\b(?:semanas?|weeks?)\b`)
	monthUnit = regexp.MustCompile(`\b(?:mes|meses|months?)\b`)
	dayUnit   = regexp.MustCompile(`\b(?:dias?|days?)\b`)

	// "30+ días" without hace/ago.
	plusDaysRe = regexp.MustCompile(`\d+\s*\+\s*(?:dias?|days?)\b`)
)

// monthNames maps Spanish and English month names and abbreviations.
var monthNames = map[string]time.Month{
	"ene": time.January, "enero": time.January, "jan": time.January, "january": time.January,
	"feb": time.February, "febrero": time.February, "february": time.February,
	"mar": time.March, "marzo": time.March, "march": time.March,
	"abr": time.April, "abril": time.April, "apr": time.April, "april": time.April,
	"may": time.May, "mayo": time.May,
	"jun": time.June, "junio": time.June, "june": time.June,
	"jul": time.July, "julio": time.July, "july": time.July,
	"ago": time.August, "agosto": time.August, "aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "septiembre": time.September, "setiembre": time.September, "september": time.September,
	"oct": time.October, "octubre": time.October, "october": time.October,
	"nov": time.November, "noviembre": time.November, "november": time.November,
	"dic": time.December, "diciembre": time.December, "dec": time.December, "december": time.December,
}

// ParseDate resolves a posting date expression to an ISO date.
//
// Relative phrases ("hace 3 días", "2 days ago") count back from now. Hours and
// minutes collapse to today. "day month [year]" forms use the current year when
// no year is given. Any other non-empty text resolves to today; only empty
// input is absent.
func ParseDate(raw string, now time.Time) (string, bool) {
	t := newText(raw)
	if t.empty() {
		return "", false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if t.hasAny(todayWords) {
		return today.Format(ISODate), true
	}

	if t.hasAny(agoWords) || plusDaysRe.MatchString(t.folded) {
		if d, ok := relativeDate(t, today); ok {
			return d.Format(ISODate), true
		}
	}

	if d, ok := absoluteDate(t, today); ok {
		return d.Format(ISODate), true
	}

	return today.Format(ISODate), true
}

func relativeDate(t text, today time.Time) (time.Time, bool) {
	m := numberRe.FindString(t.lower)
	if m == "" {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return time.Time{}, false
	}
	switch {
	case hourUnit.MatchString(t.folded):
		return today, true
	case weekUnit.MatchString(t.folded):
		return today.AddDate(0, 0, -7*n), true
	case monthUnit.MatchString(t.folded):
		return today.AddDate(0, 0, -30*n), true
	case dayUnit.MatchString(t.folded):
		return today.AddDate(0, 0, -n), true
	}
	// "hace 15" with no unit; a month name may still follow ("15 ago 2024").
	if _, ok := monthIn(t); ok {
		return time.Time{}, false
	}
	return today.AddDate(0, 0, -n), true
}

// hasRelativeUnit reports whether t names a day, week, month or hour span,
// in which case "ago" is the English adverb and not the Spanish month.
func hasRelativeUnit(t text) bool {
	return hourUnit.MatchString(t.folded) || weekUnit.MatchString(t.folded) ||
		monthUnit.MatchString(t.folded) || dayUnit.MatchString(t.folded)
}

func monthIn(t text) (time.Month, bool) {
	skipAgo := hasRelativeUnit(t)
	for _, w := range wordRe.FindAllString(t.folded, -1) {
		if w == "ago" && skipAgo {
			continue
		}
		if m, ok := monthNames[w]; ok {
			return m, true
		}
	}
	return 0, false
}

func absoluteDate(t text, today time.Time) (time.Time, bool) {
	month, ok := monthIn(t)
	if !ok {
		return time.Time{}, false
	}
	nums := numberRe.FindAllString(t.lower, -1)
	if len(nums) == 0 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(nums[0])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	year := today.Year()
	if len(nums) > 1 {
		if y, err := strconv.Atoi(nums[1]); err == nil {
			if y < 100 {
				y += 2000
			}
			year = y
		}
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, today.Location())
	if d.Month() != month {
		// 31 feb and friends roll over; treat as unparseable.
		return time.Time{}, false
	}
	return d, true
}

// AddDays shifts an ISO date by n days. Invalid input is returned unchanged.
func AddDays(iso string, n int) string {
	d, err := time.Parse(ISODate, strings.TrimSpace(iso))
	if err != nil {
		return iso
	}
	return d.AddDate(0, 0, n).Format(ISODate)
}
