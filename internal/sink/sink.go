// Package sink persists job records as they are produced. Every sink writes
// through on each record so an interrupted run keeps what it extracted.
package sink

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/law-makers/jobcrawl/pkg/models"
)

// Sink receives finalized records.
type Sink interface {
	Write(ctx context.Context, rec *models.JobRecord) error
	Close() error
}

// Columns is the fixed column set shared by the tabular sinks.
var Columns = []string{
	"id", "title", "company", "company_rating", "location", "address",
	"description", "category", "job_type", "salary", "max_salary", "salary_type",
	"experience", "career_level", "qualification", "posted_date",
	"application_deadline", "tags", "featured", "urgent", "apply_url",
	"featured_image", "source", "page_index", "scraped_at",
}

// Row renders rec in Columns order. Absent values are empty strings and
// tags are joined with ", ".
func Row(rec *models.JobRecord) []string {
	return []string{
		str(rec.ID),
		rec.Title,
		str(rec.Company),
		num(rec.CompanyRating),
		str(rec.Location),
		str(rec.Address),
		str(rec.Description),
		str(rec.Category),
		str(rec.JobType),
		num(rec.Salary),
		num(rec.MaxSalary),
		str(rec.SalaryType),
		str(rec.Experience),
		str(rec.CareerLevel),
		str(rec.Qualification),
		str(rec.PostedDate),
		str(rec.ApplicationDeadline),
		strings.Join(rec.Tags, ", "),
		strconv.FormatBool(rec.Featured),
		strconv.FormatBool(rec.Urgent),
		str(rec.ApplyURL),
		str(rec.FeaturedImage),
		rec.Source,
		strconv.Itoa(rec.PageIndex),
		timestamp(rec.ScrapedAt),
	}
}

func str[T ~string](p *T) string {
	if p == nil {
		return ""
	}
	return string(*p)
}

func num(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Multi fans a record out to several sinks. Every sink is attempted; the
// errors are joined.
type Multi []Sink

// Write implements Sink.
func (m Multi) Write(ctx context.Context, rec *models.JobRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Sink.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every record.
type Discard struct{}

func (Discard) Write(context.Context, *models.JobRecord) error { return nil }
func (Discard) Close() error                                   { return nil }

// Format names a file sink.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
)

// ParseFormats validates a list of file format names, dropping duplicates.
func ParseFormats(names []string) ([]Format, error) {
	var out []Format
	seen := map[Format]bool{}
	for _, n := range names {
		f := Format(strings.ToLower(strings.TrimSpace(n)))
		switch f {
		case FormatCSV, FormatJSON, FormatJSONL:
		case "":
			continue
		default:
			return nil, fmt.Errorf("unknown output format %q (want csv, json or jsonl)", n)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}
