// Package extract builds normalized job records from listing cards and
// refines them from each posting's detail view.
package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/law-makers/jobcrawl/internal/engine/selector"
	"github.com/law-makers/jobcrawl/internal/normalize"
	"github.com/law-makers/jobcrawl/internal/runctx"
	urlutil "github.com/law-makers/jobcrawl/internal/utils/url"
	"github.com/law-makers/jobcrawl/pkg/models"
)

const (
	DefaultBaseURL       = "https://cr.indeed.com"
	DefaultRegionTag     = "Costa Rica"
	DefaultDeadlineDays  = 30
	DefaultDetailTimeout = 10 * time.Second
)

// Options control record construction.
type Options struct {
	BaseURL           string
	Source            string
	RegionTag         string
	DescriptionFormat Format
	// DeadlineDays is added to the posted date to derive the application
	// deadline. Zero disables the field.
	DeadlineDays  int
	DetailTimeout time.Duration
}

// DefaultOptions returns the options for Indeed Costa Rica.
func DefaultOptions() Options {
	return Options{
		BaseURL:           DefaultBaseURL,
		Source:            models.DefaultSource,
		RegionTag:         DefaultRegionTag,
		DescriptionFormat: FormatText,
		DeadlineDays:      DefaultDeadlineDays,
		DetailTimeout:     DefaultDetailTimeout,
	}
}

// Extractor turns located elements into records.
type Extractor struct {
	cascade *selector.Cascade
	opts    Options
	clock   runctx.Clock
	logger  zerolog.Logger

	// onStep runs at the start of every field step. Tests use it to make a
	// field extractor fail.
	onStep func(field string)
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock sets the clock used to resolve relative dates.
func WithClock(c runctx.Clock) Option {
	return func(e *Extractor) { e.clock = c }
}

// WithLogger sets the extractor logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// New returns an Extractor over cascade.
func New(cascade *selector.Cascade, opts Options, fns ...Option) *Extractor {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Source == "" {
		opts.Source = models.DefaultSource
	}
	if opts.DescriptionFormat == "" {
		opts.DescriptionFormat = FormatText
	}
	if opts.DetailTimeout <= 0 {
		opts.DetailTimeout = DefaultDetailTimeout
	}
	e := &Extractor{
		cascade: cascade,
		opts:    opts,
		clock:   runctx.RealClock{},
		logger:  zerolog.Nop(),
	}
	for _, fn := range fns {
		fn(e)
	}
	return e
}

// Options returns the effective options.
func (e *Extractor) Options() Options { return e.opts }

// step runs one field extraction. A panic inside it loses that field only.
func (e *Extractor) step(field string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug().Str("field", field).Interface("panic", r).Msg("field extraction failed")
		}
	}()
	if e.onStep != nil {
		e.onStep(field)
	}
	fn()
}

var (
	sponsoredMarks = []string{"patrocinado", "sponsored"}
	urgentMarks    = []string{"urge contratar", "urgently", "urgente", "contratación urgente"}

	// newBadges are the complete texts of the "new posting" badge. Words in
	// the snippet ("nuevos clientes") do not count.
	newBadges = map[string]bool{"nuevo": true, "nueva": true, "new": true, "new job": true, "nuevo empleo": true}

	ratingRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
)

// FromListing builds a record from one listing card. It reports false when
// no title could be found; such cards are never emitted.
func (e *Extractor) FromListing(card *goquery.Selection) (*models.JobRecord, bool) {
	c := e.cascade
	rec := models.NewJobRecord(e.opts.Source)
	now := e.clock.Now()

	var snippet string

	e.step("title", func() {
		if t, ok := c.Text(card, selector.FieldTitle); ok {
			rec.Title = t
			return
		}
		if t, ok := c.Attr(card, selector.FieldTitle, "title"); ok {
			rec.Title = selector.CleanText(t)
		}
	})
	if rec.Title == "" {
		return nil, false
	}

	e.step("id", func() {
		if id := jobID(card); id != "" {
			rec.ID = models.Ptr(id)
			return
		}
		if href, ok := c.Attr(card, selector.FieldLink, "href"); ok {
			if id := jkFromHref(href); id != "" {
				rec.ID = models.Ptr(id)
			}
		}
	})

	e.step("apply_url", func() {
		if href, ok := c.Attr(card, selector.FieldLink, "href"); ok {
			rec.ApplyURL = models.Ptr(urlutil.ResolveURL(e.opts.BaseURL, href))
			return
		}
		if rec.ID != nil {
			rec.ApplyURL = models.Ptr(urlutil.ViewJobURL(e.opts.BaseURL, *rec.ID))
		}
	})

	e.step("company", func() {
		if t, ok := c.Text(card, selector.FieldCompany); ok {
			rec.Company = models.Ptr(t)
		}
	})

	e.step("rating", func() {
		if t, ok := c.Text(card, selector.FieldRating); ok {
			if r, ok := parseRating(t); ok {
				rec.CompanyRating = models.Ptr(r)
			}
		}
	})

	e.step("location", func() {
		if t, ok := c.Text(card, selector.FieldLocation); ok {
			rec.Location = models.Ptr(t)
			rec.Address = models.Ptr(t)
		}
	})

	e.step("salary", func() {
		if t, ok := c.Text(card, selector.FieldSalary); ok {
			applySalary(rec, normalize.ParseSalary(t))
		}
	})

	e.step("snippet", func() {
		if t, ok := c.Text(card, selector.FieldSnippet); ok {
			snippet = t
			rec.Description = models.Ptr(t)
			if jt, ok := normalize.ParseJobType(t); ok {
				rec.JobType = models.Ptr(jt)
			}
		}
	})

	e.step("date", func() {
		if t, ok := c.Text(card, selector.FieldDate); ok {
			if d, ok := normalize.ParseDate(t, now); ok {
				rec.PostedDate = models.Ptr(d)
			}
		}
	})

	e.step("logo", func() {
		if src, ok := c.Attr(card, selector.FieldLogo, "src"); ok {
			if logo, ok := e.acceptLogo(src); ok {
				rec.FeaturedImage = models.Ptr(logo)
			}
		}
	})

	e.step("tags", func() {
		e.tag(rec, card)
	})

	e.step("inferred", func() {
		text := rec.Title + " " + snippet
		if rec.Experience == nil {
			applyExperience(rec, normalize.ParseExperience(text))
		}
		if rec.Qualification == nil {
			if q, ok := normalize.ParseQualification(text); ok {
				rec.Qualification = models.Ptr(q)
			}
		}
		if rec.JobType == nil {
			if jt, ok := normalize.ParseJobType(text); ok {
				rec.JobType = models.Ptr(jt)
			}
		}
	})

	e.step("category", func() {
		if cat, ok := normalize.Classify(rec.Title, snippet); ok {
			rec.Category = models.Ptr(cat)
		}
	})

	return rec, true
}

func (e *Extractor) tag(rec *models.JobRecord, card *goquery.Selection) {
	if e.opts.RegionTag != "" {
		rec.AddTag(e.opts.RegionTag)
	}
	outer, err := goquery.OuterHtml(card)
	if err != nil {
		return
	}
	outer = strings.ToLower(outer)
	if containsAny(outer, sponsoredMarks) {
		rec.Featured = true
		rec.AddTag(models.TagSponsored)
	}
	if containsAny(outer, urgentMarks) {
		rec.Urgent = true
		rec.AddTag(models.TagUrgent)
	}
	if hasNewBadge(card) {
		rec.AddTag(models.TagNew)
	}
}

// hasNewBadge looks for a leaf element whose whole text is a new-posting badge.
func hasNewBadge(card *goquery.Selection) bool {
	found := false
	card.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 {
			return true
		}
		if newBadges[strings.ToLower(selector.CleanText(s.Text()))] {
			found = true
			return false
		}
		return true
	})
	return found
}

// Finalize stamps the page index and scrape time and fills the derived
// fields: the application deadline and a category for records that never
// had one.
func (e *Extractor) Finalize(rec *models.JobRecord, page int) {
	now := e.clock.Now()
	rec.PageIndex = page
	rec.ScrapedAt = now.UTC()
	if rec.Category == nil {
		if cat, ok := normalize.Classify(rec.Title, models.Deref(rec.Description)); ok {
			rec.Category = models.Ptr(cat)
		}
	}
	if e.opts.DeadlineDays > 0 && rec.ApplicationDeadline == nil {
		base := now.Format(normalize.ISODate)
		if rec.PostedDate != nil {
			base = *rec.PostedDate
		}
		rec.ApplicationDeadline = models.Ptr(normalize.AddDays(base, e.opts.DeadlineDays))
	}
}

// acceptLogo rejects the platform's own placeholder images.
func (e *Extractor) acceptLogo(src string) (string, bool) {
	src = strings.TrimSpace(src)
	if len(src) <= 20 || strings.Contains(strings.ToLower(src), "indeed") {
		return "", false
	}
	return urlutil.ResolveURL(e.opts.BaseURL, src), true
}

func jobID(card *goquery.Selection) string {
	if card == nil {
		return ""
	}
	if id, ok := card.Attr("data-jk"); ok && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id)
	}
	if id, ok := card.Find("[data-jk]").First().Attr("data-jk"); ok {
		return strings.TrimSpace(id)
	}
	return ""
}

func jkFromHref(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("jk")
}

func parseRating(text string) (float64, bool) {
	m := ratingRe.FindString(text)
	if m == "" {
		return 0, false
	}
	r, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil || r < 0 || r > 5 {
		return 0, false
	}
	return r, true
}

func applySalary(rec *models.JobRecord, s normalize.Salary) {
	if s.Amount == nil {
		return
	}
	rec.Salary = s.Amount
	rec.MaxSalary = s.Max
	rec.SalaryType = s.Type
}

func applyExperience(rec *models.JobRecord, x normalize.Experience) {
	if x.Summary == nil {
		return
	}
	rec.Experience = x.Summary
	rec.CareerLevel = x.Level
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func describe(rec *models.JobRecord) string {
	if rec.ID != nil {
		return fmt.Sprintf("%q (%s)", rec.Title, *rec.ID)
	}
	return fmt.Sprintf("%q", rec.Title)
}
