package extract

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/law-makers/jobcrawl/internal/engine"
	"github.com/law-makers/jobcrawl/internal/engine/selector"
	"github.com/law-makers/jobcrawl/internal/normalize"
	urlutil "github.com/law-makers/jobcrawl/internal/utils/url"
	"github.com/law-makers/jobcrawl/pkg/models"
)

// ErrNoDetailLink is returned when a record has neither an apply URL nor an id.
var ErrNoDetailLink = errors.New("record has no detail link")

// Enrich opens the detail view of rec and refines a copy of it. The session
// is returned to returnURL afterwards. On any failure rec is returned
// unchanged together with the error, so a half-enriched record never
// escapes.
func (e *Extractor) Enrich(ctx context.Context, s engine.Session, rec *models.JobRecord, returnURL string) (*models.JobRecord, error) {
	if err := e.openDetail(ctx, s, rec); err != nil {
		e.restore(ctx, s, returnURL)
		return rec, err
	}

	ready := strings.Join(e.cascade.Selectors(selector.FieldDescriptionLoaded), ", ")
	if ready != "" {
		if err := s.WaitVisible(ctx, ready, e.opts.DetailTimeout); err != nil {
			if ctx.Err() != nil {
				return rec, ctx.Err()
			}
			e.logger.Debug().Err(err).Str("job", describe(rec)).Msg("description container did not appear")
		}
	}

	doc, err := snapshot(ctx, s)
	if err != nil {
		e.restore(ctx, s, returnURL)
		return rec, fmt.Errorf("failed to read detail page: %w", err)
	}

	out := rec.Clone()
	e.mergeDetail(out, doc.Selection)

	if err := e.back(ctx, s, returnURL); err != nil {
		return rec, err
	}
	return out, nil
}

func (e *Extractor) openDetail(ctx context.Context, s engine.Session, rec *models.JobRecord) error {
	switch {
	case rec.ApplyURL != nil:
		if err := s.Navigate(ctx, *rec.ApplyURL); err != nil {
			return navigationError(*rec.ApplyURL, err)
		}
	case rec.ID != nil:
		sel := `[data-jk=` + strconv.Quote(*rec.ID) + `]`
		if err := s.Click(ctx, sel); err != nil {
			return navigationError(sel, err)
		}
	default:
		return ErrNoDetailLink
	}
	return nil
}

func navigationError(target string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return engine.NewEngineError(engine.ErrCodePageLoad, "failed to open detail view", fmt.Errorf("%w: %v", engine.ErrNavigation, err)).
		WithDetail("target", target)
}

// back returns to the results page: history first, then a direct navigation
// when history did not land on returnURL.
func (e *Extractor) back(ctx context.Context, s engine.Session, returnURL string) error {
	if err := s.Back(ctx); err == nil {
		cur, err := s.CurrentURL(ctx)
		if err == nil && (returnURL == "" || cur == returnURL) {
			return nil
		}
	} else if ctx.Err() != nil {
		return ctx.Err()
	}
	if returnURL == "" {
		return fmt.Errorf("%w: history back failed and no return URL is known", engine.ErrNavigation)
	}
	if err := s.Navigate(ctx, returnURL); err != nil {
		return navigationError(returnURL, err)
	}
	return nil
}

func (e *Extractor) restore(ctx context.Context, s engine.Session, returnURL string) {
	if returnURL == "" || ctx.Err() != nil {
		return
	}
	if cur, err := s.CurrentURL(ctx); err == nil && cur == returnURL {
		return
	}
	if err := s.Navigate(ctx, returnURL); err != nil {
		e.logger.Debug().Err(err).Str("url", returnURL).Msg("failed to restore results page")
	}
}

func snapshot(ctx context.Context, s engine.Session) (*goquery.Document, error) {
	raw, err := s.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(raw))
}

// mergeDetail applies the detail page to out. Description and category are
// always refined; everything else only fills what the listing left absent.
// Each field is its own step, so one failing field leaves the others merged.
func (e *Extractor) mergeDetail(out *models.JobRecord, scope *goquery.Selection) {
	c := e.cascade
	now := e.clock.Now()

	// the snapshot is private to this call
	e.step("detail_cleanup", func() {
		scope.Find("script, style, noscript").Remove()
	})

	e.step("detail_description", func() {
		located, ok := c.TextSelection(scope, selector.FieldDescription)
		if !ok {
			return
		}
		// Everything is derived before out is touched.
		text := blockText(located)
		desc := e.description(located, text)
		cat, catOK := normalize.Classify(out.Title, text)
		exp := normalize.ParseExperience(text)
		qual, qualOK := normalize.ParseQualification(text)
		jt, jtOK := normalize.ParseJobType(text)

		out.Description = models.Ptr(desc)
		if catOK {
			out.Category = models.Ptr(cat)
		}
		if out.Experience == nil {
			applyExperience(out, exp)
		}
		if out.Qualification == nil && qualOK {
			out.Qualification = models.Ptr(qual)
		}
		if out.JobType == nil && jtOK {
			out.JobType = models.Ptr(jt)
		}
	})

	e.step("detail_location", func() {
		if out.Location != nil {
			return
		}
		if t, ok := c.Text(scope, selector.FieldDetailLocation); ok {
			out.Location = models.Ptr(t)
			if out.Address == nil {
				out.Address = models.Ptr(t)
			}
		}
	})

	e.step("detail_salary", func() {
		if out.Salary != nil {
			return
		}
		if t, ok := c.Text(scope, selector.FieldDetailSalary); ok {
			applySalary(out, normalize.ParseSalary(t))
		}
	})

	e.step("detail_logo", func() {
		if out.FeaturedImage != nil {
			return
		}
		if src, ok := c.Attr(scope, selector.FieldDetailLogo, "src"); ok {
			if logo, ok := e.acceptLogo(src); ok {
				out.FeaturedImage = models.Ptr(logo)
			}
		}
	})

	e.step("detail_company", func() {
		if out.Company != nil {
			return
		}
		if t, ok := c.Text(scope, selector.FieldDetailCompany); ok {
			out.Company = models.Ptr(t)
		}
	})

	e.step("detail_date", func() {
		if out.PostedDate != nil {
			return
		}
		if t, ok := c.Text(scope, selector.FieldDetailDate); ok {
			if d, ok := normalize.ParseDate(t, now); ok {
				out.PostedDate = models.Ptr(d)
			}
		}
	})

	e.step("detail_urgent", func() {
		if _, ok := c.Locate(scope, selector.FieldDetailUrgent); ok {
			out.Urgent = true
			out.AddTag(models.TagUrgent)
		}
	})

	e.step("detail_apply_url", func() {
		if out.ApplyURL != nil {
			return
		}
		if href, ok := c.Attr(scope, selector.FieldDetailApplyLink, "href"); ok {
			out.ApplyURL = models.Ptr(urlutil.ResolveURL(e.opts.BaseURL, href))
		}
	})
}
