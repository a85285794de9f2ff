package sink

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/law-makers/jobcrawl/pkg/models"
)

// CSV appends one row per record and flushes after each.
type CSV struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

// NewCSV creates path (truncating it) and writes the header row.
func NewCSV(path string) (*CSV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create csv output: %w", err)
	}
	s := &CSV{f: f, w: csv.NewWriter(f)}
	if err := s.w.Write(Columns); err != nil {
		f.Close()
		return nil, err
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Write implements Sink.
func (s *CSV) Write(_ context.Context, rec *models.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Write(Row(rec)); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

// Close implements Sink.
func (s *CSV) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// JSONL writes one JSON object per line.
type JSONL struct {
	mu  sync.Mutex
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder
}

// NewJSONL creates path, truncating it.
func NewJSONL(path string) (*JSONL, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create jsonl output: %w", err)
	}
	buf := bufio.NewWriter(f)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &JSONL{f: f, buf: buf, enc: enc}, nil
}

// Write implements Sink.
func (s *JSONL) Write(_ context.Context, rec *models.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(rec); err != nil {
		return err
	}
	return s.buf.Flush()
}

// Close implements Sink.
func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.buf.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// JSON keeps every record and rewrites the whole array after each write, so
// the file on disk is always a valid document.
type JSON struct {
	mu      sync.Mutex
	path    string
	records []*models.JobRecord
}

// NewJSON writes an empty array to path.
func NewJSON(path string) (*JSON, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	s := &JSON{path: path, records: []*models.JobRecord{}}
	return s, s.flush()
}

// Write implements Sink.
func (s *JSON) Write(_ context.Context, rec *models.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.flush()
}

// Close implements Sink.
func (s *JSON) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

func (s *JSON) flush() error {
	content, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// OpenFiles creates one file sink per format under dir, named base.<ext>.
func OpenFiles(dir, base string, formats []Format) (Multi, error) {
	var out Multi
	for _, f := range formats {
		path := filepath.Join(dir, base+"."+string(f))
		var (
			s   Sink
			err error
		)
		switch f {
		case FormatCSV:
			s, err = NewCSV(path)
		case FormatJSON:
			s, err = NewJSON(path)
		case FormatJSONL:
			s, err = NewJSONL(path)
		default:
			err = fmt.Errorf("unknown output format %q", f)
		}
		if err != nil {
			out.Close()
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
