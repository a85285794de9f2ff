// Package diagnostics captures the state of a page the pipeline could not
// use, and analyzes captured pages offline.
package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/law-makers/jobcrawl/internal/engine"
	"github.com/law-makers/jobcrawl/internal/engine/selector"
)

// Meta is the sidecar written next to a captured page.
type Meta struct {
	URL        string                 `json:"url"`
	Page       int                    `json:"page"`
	State      string                 `json:"state,omitempty"`
	Reason     string                 `json:"reason"`
	RunID      string                 `json:"run_id,omitempty"`
	CapturedAt time.Time              `json:"captured_at"`
	Probes     []selector.ProbeResult `json:"probes,omitempty"`
}

// Files lists what Capture wrote. Empty paths were skipped.
type Files struct {
	HTML       string
	Screenshot string
	Meta       string
}

// Capturer writes debug_page{N} files into a directory.
type Capturer struct {
	Dir     string
	Cascade *selector.Cascade
	Logger  zerolog.Logger
}

// NewCapturer returns a Capturer writing into dir. A nil cascade skips the
// selector probe counts.
func NewCapturer(dir string, cascade *selector.Cascade, logger zerolog.Logger) *Capturer {
	return &Capturer{Dir: dir, Cascade: cascade, Logger: logger}
}

// Capture saves the current document of s as debug_page{page}.html, a
// screenshot as .png and meta as .json. A failed screenshot is logged and
// skipped; the other files are still written.
func (c *Capturer) Capture(ctx context.Context, s engine.Session, page int, meta Meta) (Files, error) {
	var files Files
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return files, fmt.Errorf("failed to create debug directory: %w", err)
	}
	base := filepath.Join(c.Dir, fmt.Sprintf("debug_page%d", page))

	meta.Page = page
	if meta.URL == "" {
		if u, err := s.CurrentURL(ctx); err == nil {
			meta.URL = u
		}
	}
	if meta.CapturedAt.IsZero() {
		meta.CapturedAt = time.Now().UTC()
	}

	raw, err := s.HTML(ctx)
	if err != nil {
		return files, fmt.Errorf("failed to read page html: %w", err)
	}
	if err := os.WriteFile(base+".html", []byte(raw), 0o644); err != nil {
		return files, err
	}
	files.HTML = base + ".html"

	if c.Cascade != nil && meta.Probes == nil {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
			meta.Probes = c.Cascade.Probe(doc)
		}
	}

	if shot, err := s.Screenshot(ctx); err != nil {
		c.Logger.Warn().Err(err).Int("page", page).Msg("Screenshot failed")
	} else if err := os.WriteFile(base+".png", shot, 0o644); err != nil {
		c.Logger.Warn().Err(err).Int("page", page).Msg("Screenshot not saved")
	} else {
		files.Screenshot = base + ".png"
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return files, err
	}
	if err := os.WriteFile(base+".json", data, 0o644); err != nil {
		return files, err
	}
	files.Meta = base + ".json"

	c.Logger.Info().
		Int("page", page).
		Str("url", meta.URL).
		Str("reason", meta.Reason).
		Str("dir", c.Dir).
		Msg("Diagnostics captured")
	return files, nil
}
