package normalize

import "github.com/law-makers/jobcrawl/pkg/models"

type jobTypeRule struct {
	jobType  models.JobType
	keywords []keyword
}

var jobTypeRules = []jobTypeRule{
	{models.JobTypeFullTime, newKeywords("tiempo completo", "full time", "full-time", "jornada completa")},
	{models.JobTypePartTime, newKeywords("medio tiempo", "part time", "part-time", "tiempo parcial")},
	{models.JobTypeTemporary, newKeywords("temporal", "temporary", "por temporada")},
	{models.JobTypeContract, newKeywords("contrato", "contract", "contractor")},
	{models.JobTypeInternship, newKeywords("pasantía", "pasante", "internship", "práctica profesional")},
	{models.JobTypeFreelance, newKeywords("freelance", "por proyecto", "independiente")},
}

// ParseJobType returns the first employment type whose phrase occurs in text.
func ParseJobType(raw string) (models.JobType, bool) {
	t := newText(raw)
	if t.empty() {
		return "", false
	}
	for _, rule := range jobTypeRules {
		if t.hasAny(rule.keywords) {
			return rule.jobType, true
		}
	}
	return "", false
}
