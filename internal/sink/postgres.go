package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/law-makers/jobcrawl/pkg/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS job_postings (
	id                   BIGSERIAL PRIMARY KEY,
	job_key              TEXT NOT NULL UNIQUE,
	title                TEXT NOT NULL,
	company              TEXT,
	company_rating       DOUBLE PRECISION,
	location             TEXT,
	address              TEXT,
	description          TEXT,
	category             TEXT,
	job_type             TEXT,
	salary               DOUBLE PRECISION,
	max_salary           DOUBLE PRECISION,
	salary_type          TEXT,
	experience           TEXT,
	career_level         TEXT,
	qualification        TEXT,
	posted_date          DATE,
	application_deadline DATE,
	tags                 TEXT[] NOT NULL DEFAULT '{}',
	featured             BOOLEAN NOT NULL DEFAULT FALSE,
	urgent               BOOLEAN NOT NULL DEFAULT FALSE,
	apply_url            TEXT,
	featured_image       TEXT,
	source               TEXT NOT NULL,
	page_index           INTEGER NOT NULL DEFAULT 0,
	run_id               TEXT,
	scraped_at           TIMESTAMPTZ,
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// Postgres upserts records into a shared database. Records without an id
// are keyed by source, title and apply URL.
type Postgres struct {
	db    *pgxpool.Pool
	runID string
}

// OpenPostgres connects to dsn and applies the schema.
func OpenPostgres(ctx context.Context, dsn, runID string) (*Postgres, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Postgres{db: db, runID: runID}, nil
}

// PostgresKey is the conflict key of rec.
func PostgresKey(rec *models.JobRecord) string {
	if k := rec.Key(); k != "" {
		return rec.Source + ":" + k
	}
	return rec.Source + ":" + rec.Title + "|" + models.Deref(rec.ApplyURL)
}

// Write implements Sink.
func (s *Postgres) Write(ctx context.Context, rec *models.JobRecord) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO job_postings (job_key, title, company, company_rating, location, address, description,
			category, job_type, salary, max_salary, salary_type, experience, career_level, qualification,
			posted_date, application_deadline, tags, featured, urgent, apply_url, featured_image, source,
			page_index, run_id, scraped_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26)
		 ON CONFLICT (job_key) DO UPDATE SET
			title = EXCLUDED.title, company = EXCLUDED.company, company_rating = EXCLUDED.company_rating,
			location = EXCLUDED.location, address = EXCLUDED.address, description = EXCLUDED.description,
			category = EXCLUDED.category, job_type = EXCLUDED.job_type, salary = EXCLUDED.salary,
			max_salary = EXCLUDED.max_salary, salary_type = EXCLUDED.salary_type,
			experience = EXCLUDED.experience, career_level = EXCLUDED.career_level,
			qualification = EXCLUDED.qualification, posted_date = EXCLUDED.posted_date,
			application_deadline = EXCLUDED.application_deadline, tags = EXCLUDED.tags,
			featured = EXCLUDED.featured, urgent = EXCLUDED.urgent, apply_url = EXCLUDED.apply_url,
			featured_image = EXCLUDED.featured_image, source = EXCLUDED.source,
			page_index = EXCLUDED.page_index, run_id = EXCLUDED.run_id, scraped_at = EXCLUDED.scraped_at,
			updated_at = NOW()`,
		PostgresKey(rec), rec.Title, rec.Company, rec.CompanyRating, rec.Location, rec.Address,
		rec.Description, nullable(rec.Category), nullable(rec.JobType), rec.Salary, rec.MaxSalary,
		nullable(rec.SalaryType), rec.Experience, nullable(rec.CareerLevel), nullable(rec.Qualification),
		isoDate(rec.PostedDate), isoDate(rec.ApplicationDeadline), rec.Tags, rec.Featured, rec.Urgent, rec.ApplyURL,
		rec.FeaturedImage, rec.Source, rec.PageIndex, s.runID, rec.ScrapedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert job %q: %w", rec.Title, err)
	}
	return nil
}

// Close implements Sink.
func (s *Postgres) Close() error {
	s.db.Close()
	return nil
}

// isoDate converts an optional ISO date for a DATE column.
func isoDate(p *string) *time.Time {
	if p == nil {
		return nil
	}
	d, err := time.Parse("2006-01-02", *p)
	if err != nil {
		return nil
	}
	return &d
}
