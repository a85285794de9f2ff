package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/law-makers/jobcrawl/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	job_key              TEXT UNIQUE,
	title                TEXT NOT NULL,
	company              TEXT,
	company_rating       REAL,
	location             TEXT,
	address              TEXT,
	description          TEXT,
	category             TEXT,
	job_type             TEXT,
	salary               REAL,
	max_salary           REAL,
	salary_type          TEXT,
	experience           TEXT,
	career_level         TEXT,
	qualification        TEXT,
	posted_date          TEXT,
	application_deadline TEXT,
	tags                 TEXT NOT NULL DEFAULT '[]',
	featured             INTEGER NOT NULL DEFAULT 0,
	urgent               INTEGER NOT NULL DEFAULT 0,
	apply_url            TEXT,
	featured_image       TEXT,
	source               TEXT NOT NULL,
	page_index           INTEGER NOT NULL DEFAULT 0,
	run_id               TEXT,
	scraped_at           TEXT
);`

// SQLite stores records in a local database file. Records with an id are
// upserted on it; records without one are always inserted.
type SQLite struct {
	DB    *sql.DB
	runID string
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path, runID string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{"PRAGMA journal_mode = WAL;", "PRAGMA busy_timeout = 5000;", sqliteSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to prepare sqlite database: %w", err)
		}
	}
	return &SQLite{DB: db, runID: runID}, nil
}

// Write implements Sink.
func (s *SQLite) Write(ctx context.Context, rec *models.JobRecord) error {
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return err
	}

	var key any
	if k := rec.Key(); k != "" {
		key = k
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO jobs (job_key, title, company, company_rating, location, address, description,
			category, job_type, salary, max_salary, salary_type, experience, career_level,
			qualification, posted_date, application_deadline, tags, featured, urgent, apply_url,
			featured_image, source, page_index, run_id, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (job_key) DO UPDATE SET
			title = excluded.title, company = excluded.company, company_rating = excluded.company_rating,
			location = excluded.location, address = excluded.address, description = excluded.description,
			category = excluded.category, job_type = excluded.job_type, salary = excluded.salary,
			max_salary = excluded.max_salary, salary_type = excluded.salary_type,
			experience = excluded.experience, career_level = excluded.career_level,
			qualification = excluded.qualification, posted_date = excluded.posted_date,
			application_deadline = excluded.application_deadline, tags = excluded.tags,
			featured = excluded.featured, urgent = excluded.urgent, apply_url = excluded.apply_url,
			featured_image = excluded.featured_image, source = excluded.source,
			page_index = excluded.page_index, run_id = excluded.run_id, scraped_at = excluded.scraped_at`,
		key, rec.Title, rec.Company, rec.CompanyRating, rec.Location, rec.Address, rec.Description,
		nullable(rec.Category), nullable(rec.JobType), rec.Salary, rec.MaxSalary, nullable(rec.SalaryType),
		rec.Experience, nullable(rec.CareerLevel), nullable(rec.Qualification), rec.PostedDate,
		rec.ApplicationDeadline, string(tags), rec.Featured, rec.Urgent, rec.ApplyURL,
		rec.FeaturedImage, rec.Source, rec.PageIndex, s.runID, timestamp(rec.ScrapedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to store job %q: %w", rec.Title, err)
	}
	return nil
}

// Close implements Sink.
func (s *SQLite) Close() error {
	return s.DB.Close()
}

// nullable turns a typed optional enum into a driver value.
func nullable[T ~string](p *T) any {
	if p == nil {
		return nil
	}
	return string(*p)
}
