package normalize

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/law-makers/jobcrawl/pkg/models"
)

// Experience pairs a readable summary with its seniority band. Both fields
// are set together or both left nil.
type Experience struct {
	Summary *string
	Level   *models.CareerLevel
}

const yearsWord = `(?:años?|anos?|years?|yrs?)`

// Ordered: the first pattern that matches decides.
var experiencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\+?\s*` + yearsWord + `\s*(?:de\s*|of\s*)?(?:experiencia|experience)`),
	regexp.MustCompile(`(?:experiencia|experience)\s*(?:de\s*|of\s*)?(?:al menos\s*|m[ií]nim[oa]\s*(?:de\s*)?|at least\s*|minimum\s*(?:of\s*)?)?(\d+)\+?\s*` + yearsWord),
	regexp.MustCompile(`(\d+)\s*(?:-|a|to)\s*\d+\s*` + yearsWord),
}

var (
	seniorWords = newKeywords("senior", "sr.", "lead", "principal")
	entryWords  = newKeywords("junior", "jr.", "entry level", "entry-level", "sin experiencia", "no experience")
	midWords    = newKeywords("mid-level", "mid level", "intermediate", "intermedio")

	// "semi senior" is a mid-level title in Latin American postings.
	semiSeniorRe = regexp.MustCompile(`semi[\s-]?senior|semi[\s-]?sr\.?`)
)

// ParseExperience detects "N years of experience" phrasings and maps the
// number of years to a career level. Without a number it falls back to
// seniority keywords. Nothing matching leaves both fields absent.
func ParseExperience(raw string) Experience {
	t := newText(raw)
	if t.empty() {
		return Experience{}
	}

	for _, re := range experiencePatterns {
		m := re.FindStringSubmatch(t.lower)
		if m == nil {
			continue
		}
		years, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return experienceFromYears(years)
	}

	switch {
	case semiSeniorRe.MatchString(t.folded):
		return newExperience("2-5 years", models.CareerMid)
	case t.hasAny(seniorWords):
		return newExperience("5+ years", models.CareerSenior)
	case t.hasAny(entryWords):
		return newExperience("0-2 years", models.CareerEntry)
	case t.hasAny(midWords):
		return newExperience("2-5 years", models.CareerMid)
	}
	return Experience{}
}

func experienceFromYears(years int) Experience {
	switch {
	case years >= 7:
		return newExperience(fmt.Sprintf("%d+ years", years), models.CareerSenior)
	case years >= 3:
		return newExperience(fmt.Sprintf("%d+ years", years), models.CareerMid)
	case years >= 1:
		return newExperience(fmt.Sprintf("%d+ years", years), models.CareerJunior)
	default:
		return newExperience(fmt.Sprintf("%d years", years), models.CareerEntry)
	}
}

func newExperience(summary string, level models.CareerLevel) Experience {
	return Experience{Summary: models.Ptr(summary), Level: models.Ptr(level)}
}
