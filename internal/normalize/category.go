package normalize

import (
	"strings"

	"github.com/law-makers/jobcrawl/pkg/models"
)

type categoryRule struct {
	category models.Category
	keywords []keyword
}

// categoryRules is evaluated top to bottom. Narrow technical categories come
// before IT so "data engineer" is not swallowed by it, and the broad
// Administrative and Management buckets come last.
var categoryRules = []categoryRule{
	{models.CategoryData, newKeywords(
		"data analyst", "data scientist", "data engineer", "data science", "analytics",
		"business intelligence", "power bi", "bi", "machine learning", "big data",
		"analista de datos", "análisis de datos", "ciencia de datos", "científico de datos",
	)},
	{models.CategoryQA, newKeywords(
		"qa", "quality assurance", "tester", "testing", "test automation", "automation engineer",
		"pruebas de software", "aseguramiento de la calidad", "aseguramiento de calidad",
	)},
	{models.CategorySecurity, newKeywords(
		"cybersecurity", "cyber security", "ciberseguridad", "information security", "infosec",
		"seguridad informática", "seguridad de la información", "soc analyst", "pentest", "penetration",
	)},
	{models.CategoryIT, newKeywords(
		"software", "developer", "programming", "web", "mobile", "frontend", "front-end",
		"backend", "back-end", "fullstack", "full stack", "devops", "cloud", "java", "python",
		"javascript", "typescript", "react", "angular", "node", "php", "dotnet", ".net", "sql",
		"aws", "desarrollo de software", "desarrollo", "programador", "desarrollador", "sistemas",
		"informática", "tecnologías de información", "it support",
	)},
	{models.CategoryHealthcare, newKeywords(
		"nurse", "nursing", "enfermera", "enfermero", "enfermería", "médico", "medical", "clinic",
		"clínica", "hospital", "pharmacy", "farmacia", "farmacéutico", "dental", "odontólogo",
		"health", "salud", "therapist", "terapeuta", "psicólogo", "caregiver",
	)},
	{models.CategoryCustomer, newKeywords(
		"customer service", "customer support", "call center", "contact center", "support",
		"help desk", "servicio al cliente", "atención al cliente", "soporte", "representante",
		"agent", "cliente",
	)},
	{models.CategorySales, newKeywords(
		"sales", "marketing", "ventas", "comercial", "business development", "account manager",
		"account executive", "vendedor", "vendedora", "mercadeo", "publicidad",
	)},
	{models.CategoryFinance, newKeywords(
		"accountant", "finance", "accounting", "contador", "contadora", "contabilidad", "finanzas",
		"auditor", "financial", "financiero", "cpa", "bookkeeper", "tesorería", "payroll", "planillas",
	)},
	{models.CategoryHR, newKeywords(
		"human resources", "hr", "recruiter", "recursos humanos", "reclutamiento", "reclutador",
		"recruitment", "talent", "talento",
	)},
	{models.CategoryLegal, newKeywords(
		"lawyer", "abogado", "abogada", "attorney", "paralegal", "legal", "notario", "jurídico",
	)},
	{models.CategoryEducation, newKeywords(
		"teacher", "profesor", "profesora", "docente", "tutor", "education", "educación",
		"instructor", "maestro", "maestra", "trainer",
	)},
	{models.CategoryDesign, newKeywords(
		"designer", "diseñador", "diseñadora", "diseño", "graphic", "gráfico", "ux", "ui",
		"illustrator", "ilustrador", "creative", "creativo",
	)},
	{models.CategoryEngineering, newKeywords(
		"engineer", "engineering", "ingeniero", "ingeniera", "ingeniería", "mechanical", "mecánico",
		"electrical", "eléctrico", "electricista", "civil", "industrial",
	)},
	{models.CategoryManufacturing, newKeywords(
		"manufacturing", "manufactura", "production", "producción", "operario", "operaria",
		"assembler", "ensamble", "ensamblador", "machine operator", "operador de máquina",
	)},
	{models.CategoryLogistics, newKeywords(
		"logistics", "logística", "warehouse", "bodega", "bodeguero", "supply chain",
		"cadena de suministro", "shipping", "transporte", "driver", "chofer", "conductor",
		"inventory", "inventario", "despacho",
	)},
	{models.CategoryHospitality, newKeywords(
		"hospitality", "hotel", "restaurant", "restaurante", "chef", "cocinero", "cocinera",
		"cook", "waiter", "salonero", "mesero", "bartender", "barista", "housekeeping",
		"turismo", "tourism",
	)},
	{models.CategoryAdministrative, newKeywords(
		"administrative", "assistant", "secretary", "office", "receptionist", "administrativo",
		"administrativa", "asistente", "secretaria", "recepcionista", "oficina",
	)},
	{models.CategoryManagement, newKeywords(
		"manager", "director", "directora", "supervisor", "supervisora", "lead", "gerente",
		"jefe", "jefa", "coordinador", "coordinadora",
	)},
}

// Categories lists every category in classification order, catch-all last.
func Categories() []models.Category {
	out := make([]models.Category, 0, len(categoryRules)+1)
	for _, r := range categoryRules {
		out = append(out, r.category)
	}
	return append(out, models.CategoryGeneral)
}

// Classify picks a category from title and description. It only reports
// absent when both inputs are empty; otherwise unmatched text falls back to
// General/Other.
func Classify(title, description string) (models.Category, bool) {
	if strings.TrimSpace(title) == "" && strings.TrimSpace(description) == "" {
		return "", false
	}
	t := newText(title + " " + description)
	for _, rule := range categoryRules {
		if t.hasAny(rule.keywords) {
			return rule.category, true
		}
	}
	return models.CategoryGeneral, true
}
