package normalize

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/jobcrawl/pkg/models"
)

var fixedNow = time.Date(2025, time.March, 15, 10, 30, 0, 0, time.UTC)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "", false},
		{"   ", "", false},
		{"Hoy", "2025-03-15", true},
		{"Just posted", "2025-03-15", true},
		{"Publicado hoy", "2025-03-15", true},
		{"Hace 3 días", "2025-03-12", true},
		{"Publicado hace más de 30 días", "2025-02-13", true},
		{"2 days ago", "2025-03-13", true},
		{"Posted 3 days ago", "2025-03-12", true},
		{"Posted 30+ days ago", "2025-02-13", true},
		{"Employer active 5 days ago", "2025-03-10", true},
		{"1 day ago", "2025-03-14", true},
		{"2 weeks ago", "2025-03-01", true},
		{"Active 1 month ago", "2025-02-13", true},
		{"hace 1 mes", "2025-02-13", true},
		{"30+ días", "2025-02-13", true},
		{"hace 5 horas", "2025-03-15", true},
		{"Posted 20 hours ago", "2025-03-15", true},
		{"hace 2 semanas", "2025-03-01", true},
		{"15 ago 2024", "2024-08-15", true},
		{"3 dic", "2025-12-03", true},
		{"12 de setiembre de 2023", "2023-09-12", true},
		{"5 Jan 24", "2024-01-05", true},
		{"31 feb", "2025-03-15", true},
		{"EmployerActive", "2025-03-15", true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseDate(tc.in, fixedNow)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseDateRelativeDays(t *testing.T) {
	for n := 0; n <= 60; n++ {
		want := fixedNow.AddDate(0, 0, -n).Format(ISODate)
		got, ok := ParseDate(fmt.Sprintf("hace %d días", n), fixedNow)
		require.True(t, ok)
		assert.Equal(t, want, got, "hace %d días", n)

		got, ok = ParseDate(fmt.Sprintf("%d days ago", n), fixedNow)
		require.True(t, ok)
		assert.Equal(t, want, got, "%d days ago", n)

		got, ok = ParseDate(fmt.Sprintf("hace %d horas", n), fixedNow)
		require.True(t, ok)
		assert.Equal(t, "2025-03-15", got, "hace %d horas", n)
	}
}

func TestAddDays(t *testing.T) {
	assert.Equal(t, "2025-04-14", AddDays("2025-03-15", 30))
	assert.Equal(t, "not a date", AddDays("not a date", 30))
}

func TestParseSalary(t *testing.T) {
	cases := []struct {
		name string
		in   string
		amt  *float64
		max  *float64
		typ  *models.SalaryType
	}{
		{"empty", "", nil, nil, nil},
		{"no number", "Salario competitivo", nil, nil, nil},
		{"colon range monthly", "₡500,000 - ₡750,000 por mes", models.Ptr(500000.0), models.Ptr(750000.0), models.Ptr(models.SalaryMonthly)},
		{"range no unit", "$1,200 - $1,800", models.Ptr(1200.0), models.Ptr(1800.0), models.Ptr(models.SalaryMonthly)},
		{"hourly single", "$15.50 por hora", models.Ptr(15.5), nil, models.Ptr(models.SalaryHourly)},
		{"hourly slash", "$20 /hr", models.Ptr(20.0), nil, models.Ptr(models.SalaryHourly)},
		{"yearly", "$60,000 - $80,000 a year", models.Ptr(60000.0), models.Ptr(80000.0), models.Ptr(models.SalaryYearly)},
		{"anual", "₡12,000,000 anual", models.Ptr(12000000.0), nil, models.Ptr(models.SalaryYearly)},
		{"dot thousands", "₡850.000 al mes", models.Ptr(850000.0), nil, models.Ptr(models.SalaryMonthly)},
		{"european decimals", "₡1.234,56 por hora", models.Ptr(1234.56), nil, models.Ptr(models.SalaryHourly)},
		{"space thousands", "₡ 800 000 por mes", models.Ptr(800000.0), nil, models.Ptr(models.SalaryMonthly)},
		{"nbsp thousands range", "₡800\u00a0000 - ₡1\u00a0200\u00a0000", models.Ptr(800000.0), models.Ptr(1200000.0), models.Ptr(models.SalaryMonthly)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := ParseSalary(tc.in)
			assert.Equal(t, tc.amt, s.Amount)
			assert.Equal(t, tc.max, s.Max)
			assert.Equal(t, tc.typ, s.Type)
		})
	}
}

func TestParseExperience(t *testing.T) {
	cases := []struct {
		in      string
		summary string
		level   models.CareerLevel
	}{
		{"5+ años de experiencia en desarrollo", "5+ years", models.CareerMid},
		{"Minimum 8 years of experience", "8+ years", models.CareerSenior},
		{"Experiencia mínima de 2 años", "2+ years", models.CareerJunior},
		{"experience of 0 years", "0 years", models.CareerEntry},
		{"Requiere 3-5 años en puestos similares", "3+ years", models.CareerMid},
		{"Senior Java Developer", "5+ years", models.CareerSenior},
		{"Contador Senior", "5+ years", models.CareerSenior},
		{"Team Lead", "5+ years", models.CareerSenior},
		{"Junior QA", "0-2 years", models.CareerEntry},
		{"Puesto sin experiencia", "0-2 years", models.CareerEntry},
		{"Desarrollador semi senior", "2-5 years", models.CareerMid},
		{"Nivel intermedio de inglés", "2-5 years", models.CareerMid},
		{"Senior developer with intermediate English", "5+ years", models.CareerSenior},
		{"Analista Semi-Senior", "2-5 years", models.CareerMid},
		{"Desarrollador semisenior", "2-5 years", models.CareerMid},
		{"Junior con inglés intermedio", "0-2 years", models.CareerEntry},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			e := ParseExperience(tc.in)
			require.NotNil(t, e.Summary)
			require.NotNil(t, e.Level)
			assert.Equal(t, tc.summary, *e.Summary)
			assert.Equal(t, tc.level, *e.Level)
		})
	}

	none := ParseExperience("Agente de ventas bilingüe")
	assert.Nil(t, none.Summary)
	assert.Nil(t, none.Level)
}

func TestParseQualification(t *testing.T) {
	cases := []struct {
		in   string
		want models.Qualification
		ok   bool
	}{
		{"Se requiere doctorado o PhD", models.QualificationDoctorate, true},
		{"Maestría en finanzas y licenciatura", models.QualificationMaster, true},
		{"MBA preferred", models.QualificationMaster, true},
		{"Licenciatura en contaduría", models.QualificationBachelor, true},
		{"Tecnico en redes", models.QualificationAssociate, true},
		{"Bachillerato en educación media", models.QualificationHighSchool, true},
		{"High school diploma", models.QualificationHighSchool, true},
		{"Buena actitud", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseQualification(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseJobType(t *testing.T) {
	cases := []struct {
		in   string
		want models.JobType
		ok   bool
	}{
		{"Tiempo completo", models.JobTypeFullTime, true},
		{"Full-time, Contract", models.JobTypeFullTime, true},
		{"Medio tiempo", models.JobTypePartTime, true},
		{"Puesto temporal", models.JobTypeTemporary, true},
		{"Contrato por 6 meses", models.JobTypeContract, true},
		{"Pasantia universitaria", models.JobTypeInternship, true},
		{"Trabajo freelance por proyecto", models.JobTypeFreelance, true},
		{"International team", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseJobType(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		title string
		desc  string
		want  models.Category
	}{
		{"Contador Senior", "", models.CategoryFinance},
		{"Desarrollador Java", "", models.CategoryIT},
		{"Data Engineer", "Python and SQL", models.CategoryData},
		{"QA Analyst", "", models.CategoryQA},
		{"Agente de Servicio al Cliente", "", models.CategoryCustomer},
		{"Recruiter", "", models.CategoryHR},
		{"HR Generalist", "", models.CategoryHR},
		{"Three month project", "", models.CategoryGeneral},
		{"Enfermera", "Hospital privado", models.CategoryHealthcare},
		{"Fire Alarm Engineer", "", models.CategoryEngineering},
		{"Abogado corporativo", "", models.CategoryLegal},
		{"Gerente de tienda", "", models.CategoryManagement},
		{"Mystery", "Lorem ipsum", models.CategoryGeneral},
		{"", "desarrollo de software", models.CategoryIT},
	}
	for _, tc := range cases {
		t.Run(tc.title, func(t *testing.T) {
			got, ok := Classify(tc.title, tc.desc)
			assert.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	_, ok := Classify("", "  ")
	assert.False(t, ok)
}

func TestCategoriesEndsWithCatchAll(t *testing.T) {
	cats := Categories()
	require.NotEmpty(t, cats)
	assert.Equal(t, models.CategoryGeneral, cats[len(cats)-1])
}
