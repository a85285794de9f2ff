package selector

import "sort"

// Field names a semantic value located by the cascade.
type Field string

// Listing card fields.
const (
	FieldListing  Field = "listing"
	FieldTitle    Field = "title"
	FieldLink     Field = "link"
	FieldCompany  Field = "company"
	FieldRating   Field = "rating"
	FieldLocation Field = "location"
	FieldSalary   Field = "salary"
	FieldSnippet  Field = "snippet"
	FieldDate     Field = "date"
	FieldLogo     Field = "logo"
)

// Detail page fields.
const (
	FieldDescription       Field = "detail_description"
	FieldDetailLocation    Field = "detail_location"
	FieldDetailSalary      Field = "detail_salary"
	FieldDetailLogo        Field = "detail_logo"
	FieldDetailCompany     Field = "detail_company"
	FieldDetailDate        Field = "detail_date"
	FieldDetailUrgent      Field = "detail_urgent"
	FieldDetailApplyLink   Field = "detail_apply_link"
	FieldDescriptionLoaded Field = "detail_ready"
)

// Table maps each field to its selectors, most specific first.
type Table map[Field][]string

var defaultTable = Table{
	FieldListing: {
		`div.job_seen_beacon`,
		`div.cardOutline`,
		`li.css-5lfssm`,
		`div[data-jk]`,
		`td.resultContent`,
		`div.slider_container div.slider_item`,
		`ul.jobsearch-ResultsList li`,
		`div[class*="job_seen"]`,
		`li[data-jk]`,
		`div.jobsearch-SerpJobCard`,
		`table.jobCard_mainContent`,
		`div[class*="result"]`,
	},
	FieldTitle: {
		`h2.jobTitle a span`,
		`h2.jobTitle span`,
		`a.jcs-JobTitle span`,
		`span[id^="jobTitle-"]`,
		`span[id*="jobTitle"]`,
		`h2 span[title]`,
		`h2.jobTitle`,
		`a.jcs-JobTitle`,
		`a.tapItem`,
	},
	FieldLink: {
		`h2.jobTitle a`,
		`a.jcs-JobTitle`,
		`a.tapItem`,
		`a[data-jk]`,
		`a[href*="viewjob"]`,
		`a[href*="/rc/clk"]`,
	},
	FieldCompany: {
		`span[data-testid="company-name"]`,
		`span.companyName`,
		`.companyName`,
		`[data-company-name="true"]`,
		`span.company`,
	},
	FieldRating: {
		`span[data-testid="holistic-rating"]`,
		`.ratingNumber`,
		`span.ratingsDisplay`,
		`span[class*="rating"]`,
	},
	FieldLocation: {
		`div[data-testid="text-location"]`,
		`div.companyLocation`,
		`span.companyLocation`,
		`.companyLocation`,
		`.location`,
	},
	FieldSalary: {
		`div.salary-snippet-container`,
		`.salary-snippet`,
		`div[data-testid="attribute_snippet_testid"]`,
		`div.attribute_snippet`,
		`span.salaryText`,
		`span.salary`,
		`div.salary`,
	},
	FieldSnippet: {
		`div.job-snippet`,
		`ul.job-snippet`,
		`div[data-testid="jobsnippet_footer"]`,
		`.summary`,
		`div[class*="snippet"]`,
	},
	FieldDate: {
		`span[data-testid="myJobsStateDate"]`,
		`span.date`,
		`.date`,
		`span[class*="date"]`,
	},
	FieldLogo: {
		`img[class*="logo"]`,
		`img[class*="avatar"]`,
		`img[alt*="logo"]`,
	},

	FieldDescription: {
		`#jobDescriptionText`,
		`.jobsearch-JobComponent-description`,
		`div[id*="jobDescriptionText"]`,
		`div.jobsearch-jobDescriptionText`,
		`div[class*="jobDescription"]`,
	},
	FieldDescriptionLoaded: {
		`#jobDescriptionText`,
		`.jobsearch-JobComponent-description`,
	},
	FieldDetailLocation: {
		`div[data-testid="jobsearch-JobInfoHeader-companyLocation"]`,
		`div[data-testid="inlineHeader-companyLocation"]`,
		`div.jobsearch-JobInfoHeader-subtitle-container div`,
		`div.jobsearch-JobInfoHeader-subtitle`,
		`div[class*="companyLocation"]`,
	},
	FieldDetailSalary: {
		`#salaryInfoAndJobType`,
		`div[id*="salary"]`,
		`div.css-kyg8or`,
		`span[class*="salary"]`,
		`div[class*="salary"]`,
	},
	FieldDetailLogo: {
		`div[data-testid="inlineHeader-companyLogo"] img`,
		`img.jobsearch-CompanyAvatar-image`,
		`img[alt*="logo"]`,
	},
	FieldDetailCompany: {
		`[data-company-name="true"]`,
		`div[data-testid="inlineHeader-companyName"]`,
		`div.jobsearch-CompanyInfoContainer a`,
	},
	FieldDetailDate: {
		`span.jobsearch-JobMetadataFooter-item span`,
		`div.jobsearch-JobMetadataFooter span`,
	},
	FieldDetailUrgent: {
		`div[data-testid="urgently-hiring"]`,
		`div.urgentlyHiring`,
		`span[class*="urgent"]`,
	},
	FieldDetailApplyLink: {
		`#applyButtonLinkContainer a`,
		`a[data-testid="apply-button"]`,
		`button#indeedApplyButton`,
	},
}

// DefaultTable returns a fresh copy of the built-in selector table.
func DefaultTable() Table {
	return defaultTable.Clone()
}

// Clone copies t so overrides never leak into the defaults.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for f, sels := range t {
		out[f] = append([]string(nil), sels...)
	}
	return out
}

// Fields lists the fields present in t in a stable order: the default
// fields first, then any extra fields sorted by name.
func (t Table) Fields() []Field {
	order := []Field{
		FieldListing, FieldTitle, FieldLink, FieldCompany, FieldRating, FieldLocation,
		FieldSalary, FieldSnippet, FieldDate, FieldLogo,
		FieldDescription, FieldDescriptionLoaded, FieldDetailLocation, FieldDetailSalary,
		FieldDetailLogo, FieldDetailCompany, FieldDetailDate, FieldDetailUrgent, FieldDetailApplyLink,
	}
	seen := make(map[Field]bool, len(order))
	out := make([]Field, 0, len(t))
	for _, f := range order {
		seen[f] = true
		if _, ok := t[f]; ok {
			out = append(out, f)
		}
	}
	var extra []Field
	for f := range t {
		if !seen[f] {
			extra = append(extra, f)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}
