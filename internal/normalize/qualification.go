package normalize

import "github.com/law-makers/jobcrawl/pkg/models"

type qualificationRule struct {
	level    models.Qualification
	keywords []keyword
}

// Highest level first; the first rule with a keyword present wins.
var qualificationRules = []qualificationRule{
	{models.QualificationDoctorate, newKeywords("phd", "ph.d", "doctorado", "doctorate")},
	{models.QualificationMaster, newKeywords("maestría", "master", "msc", "mba", "postgrado", "posgrado")},
	{models.QualificationBachelor, newKeywords("licenciatura", "bachelor", "bachiller universitario", "grado universitario", "universitario", "university degree")},
	{models.QualificationAssociate, newKeywords("técnico", "technical degree", "technical", "associate", "diplomado")},
	{models.QualificationHighSchool, newKeywords("secundaria", "high school", "bachillerato", "noveno año")},
}

// ParseQualification returns the highest education level mentioned in text.
func ParseQualification(raw string) (models.Qualification, bool) {
	t := newText(raw)
	if t.empty() {
		return "", false
	}
	for _, rule := range qualificationRules {
		if t.hasAny(rule.keywords) {
			return rule.level, true
		}
	}
	return "", false
}
