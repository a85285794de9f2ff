package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/law-makers/jobcrawl/internal/diagnostics"
	"github.com/law-makers/jobcrawl/internal/engine"
	"github.com/law-makers/jobcrawl/internal/runctx"
)

// Diagnosis is what the diagnose command reports about one page.
type Diagnosis struct {
	Report diagnostics.Report
	Files  diagnostics.Files
	Pretty string
	// GateErr is the challenge gate's complaint, if any. The page is
	// analyzed either way.
	GateErr error
}

// Diagnose loads url in s, lets the gate inspect it, and captures the page
// with a pretty-printed copy next to the raw one.
func (a *Application) Diagnose(ctx context.Context, s engine.Session, run *runctx.Run, url string) (*Diagnosis, error) {
	if err := s.Navigate(ctx, url); err != nil {
		return nil, err
	}
	d := &Diagnosis{}
	verdict, err := a.NewGate(run, false).Check(ctx, s)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		d.GateErr = err
	}

	capturer := diagnostics.NewCapturer(a.Config.DebugDir, a.Cascade, run.Logger)
	files, err := capturer.Capture(ctx, s, 0, diagnostics.Meta{
		State:  string(verdict.State),
		Reason: "diagnose",
	})
	if err != nil {
		return nil, err
	}
	d.Files = files

	raw, err := s.HTML(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.CurrentURL(ctx)
	if err != nil {
		current = url
	}
	d.Report, d.Pretty, err = analyzeHTML(raw, current, a)
	if err != nil {
		return nil, err
	}

	pretty := strings.TrimSuffix(files.HTML, ".html") + "_pretty.html"
	if err := os.WriteFile(pretty, []byte(d.Pretty), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write pretty copy: %w", err)
	}
	return d, nil
}

// DiagnoseFile analyzes a saved HTML document without a browser.
func (a *Application) DiagnoseFile(path string) (*Diagnosis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	abs, _ := filepath.Abs(path)
	report, pretty, err := analyzeHTML(string(raw), "file://"+filepath.ToSlash(abs), a)
	if err != nil {
		return nil, err
	}
	return &Diagnosis{Report: report, Pretty: pretty}, nil
}

func analyzeHTML(raw, url string, a *Application) (diagnostics.Report, string, error) {
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return diagnostics.Report{}, "", fmt.Errorf("failed to parse document: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)
	return diagnostics.Analyze(doc, url, a.Cascade), diagnostics.PrettyPrint(root), nil
}
