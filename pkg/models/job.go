package models

import (
	"strings"
	"time"
)

// DefaultSource tags records produced by the Indeed Costa Rica pipeline.
const DefaultSource = "indeed_cr"

// Category is the closed set of job categories.
type Category string

const (
	CategoryIT             Category = "IT/Software Development"
	CategoryData           Category = "Data/Analytics"
	CategoryQA             Category = "QA/Testing"
	CategorySecurity       Category = "Security"
	CategoryCustomer       Category = "Customer Service"
	CategorySales          Category = "Sales/Marketing"
	CategoryFinance        Category = "Finance/Accounting"
	CategoryHR             Category = "Human Resources"
	CategoryAdministrative Category = "Administrative"
	CategoryHealthcare     Category = "Healthcare"
	CategoryEducation      Category = "Education"
	CategoryEngineering    Category = "Engineering"
	CategoryDesign         Category = "Design"
	CategoryLogistics      Category = "Logistics"
	CategoryHospitality    Category = "Hospitality"
	CategoryLegal          Category = "Legal"
	CategoryManufacturing  Category = "Manufacturing"
	CategoryManagement     Category = "Management"
	CategoryGeneral        Category = "General/Other"
)

// JobType is the employment arrangement.
type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeTemporary  JobType = "temporary"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
	JobTypeFreelance  JobType = "freelance"
)

// SalaryType is the pay period of a salary amount.
type SalaryType string

const (
	SalaryHourly  SalaryType = "hourly"
	SalaryMonthly SalaryType = "monthly"
	SalaryYearly  SalaryType = "yearly"
)

// CareerLevel is the seniority band derived from experience text.
type CareerLevel string

const (
	CareerEntry  CareerLevel = "entry"
	CareerJunior CareerLevel = "junior"
	CareerMid    CareerLevel = "mid"
	CareerSenior CareerLevel = "senior"
)

// Qualification is the minimum education level mentioned by a posting.
type Qualification string

const (
	QualificationHighSchool Qualification = "high_school"
	QualificationAssociate  Qualification = "associate"
	QualificationBachelor   Qualification = "bachelor"
	QualificationMaster     Qualification = "master"
	QualificationDoctorate  Qualification = "doctorate"
)

// Well-known tags.
const (
	TagSponsored = "sponsored"
	TagUrgent    = "urgent"
	TagNew       = "new"
)

// JobRecord is one normalized job posting.
//
// Optional fields are pointers and are serialized as null when absent so every
// record carries the same schema. Build records with NewJobRecord.
type JobRecord struct {
	ID                  *string        `json:"id"`
	Title               string         `json:"title"`
	Company             *string        `json:"company"`
	CompanyRating       *float64       `json:"company_rating"`
	Location            *string        `json:"location"`
	Address             *string        `json:"address"`
	Description         *string        `json:"description"`
	Category            *Category      `json:"category"`
	JobType             *JobType       `json:"job_type"`
	Salary              *float64       `json:"salary"`
	MaxSalary           *float64       `json:"max_salary"`
	SalaryType          *SalaryType    `json:"salary_type"`
	Experience          *string        `json:"experience"`
	CareerLevel         *CareerLevel   `json:"career_level"`
	Qualification       *Qualification `json:"qualification"`
	PostedDate          *string        `json:"posted_date"`
	ApplicationDeadline *string        `json:"application_deadline"`
	Tags                []string       `json:"tags"`
	Featured            bool           `json:"featured"`
	Urgent              bool           `json:"urgent"`
	ApplyURL            *string        `json:"apply_url"`
	FeaturedImage       *string        `json:"featured_image"`
	Source              string         `json:"source"`
	PageIndex           int            `json:"page_index"`
	ScrapedAt           time.Time      `json:"scraped_at"`
}

// NewJobRecord returns an empty record with every field at its absent default.
func NewJobRecord(source string) *JobRecord {
	if source == "" {
		source = DefaultSource
	}
	return &JobRecord{
		Tags:   []string{},
		Source: source,
	}
}

// HasTag reports whether tag is already present (case-insensitive).
func (r *JobRecord) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// AddTag appends tag unless it is blank or already present.
func (r *JobRecord) AddTag(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" || r.HasTag(tag) {
		return
	}
	r.Tags = append(r.Tags, tag)
}

// Key returns the de-duplication key, or "" when the record has no id.
func (r *JobRecord) Key() string {
	if r.ID == nil {
		return ""
	}
	return *r.ID
}

// Clone returns a deep copy of r.
func (r *JobRecord) Clone() *JobRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.ID = clonePtr(r.ID)
	c.Company = clonePtr(r.Company)
	c.CompanyRating = clonePtr(r.CompanyRating)
	c.Location = clonePtr(r.Location)
	c.Address = clonePtr(r.Address)
	c.Description = clonePtr(r.Description)
	c.Category = clonePtr(r.Category)
	c.JobType = clonePtr(r.JobType)
	c.Salary = clonePtr(r.Salary)
	c.MaxSalary = clonePtr(r.MaxSalary)
	c.SalaryType = clonePtr(r.SalaryType)
	c.Experience = clonePtr(r.Experience)
	c.CareerLevel = clonePtr(r.CareerLevel)
	c.Qualification = clonePtr(r.Qualification)
	c.PostedDate = clonePtr(r.PostedDate)
	c.ApplicationDeadline = clonePtr(r.ApplicationDeadline)
	c.ApplyURL = clonePtr(r.ApplyURL)
	c.FeaturedImage = clonePtr(r.FeaturedImage)
	c.Tags = append([]string{}, r.Tags...)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v. Handy when filling optional record fields.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns *p, or the zero value when p is nil.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
