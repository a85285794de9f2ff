package diagnostics

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/law-makers/jobcrawl/internal/engine/selector"
	"github.com/law-makers/jobcrawl/internal/ui"
)

var (
	jobLinkMarkers = []string{"/viewjob", "jk=", "/pagead/", "/rc/clk"}

	// Keywords counted in the page text.
	Keywords = []string{"empleos", "jobs", "trabajo", "vacante", "company", "empresa", "salary", "salario"}

	// Indicators suggest the page is an anti-automation or error page.
	Indicators = []string{
		"captcha", "robot", "automated", "suspicious activity",
		"blocked", "access denied", "error", "verificación",
	}
)

// Link is an anchor that looks like a job posting.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// KeywordCount is the number of occurrences of one keyword.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// Report is the offline analysis of one page.
type Report struct {
	URL        string                 `json:"url"`
	Title      string                 `json:"title"`
	Selector   string                 `json:"listing_selector,omitempty"`
	Cards      int                    `json:"cards"`
	Probes     []selector.ProbeResult `json:"probes"`
	TotalLinks int                    `json:"total_links"`
	JobLinks   []Link                 `json:"job_links"`
	Keywords   []KeywordCount         `json:"keywords"`
	Indicators []string               `json:"indicators"`
}

// HasJobs reports whether the page looks like a results page.
func (r Report) HasJobs() bool {
	return r.Cards > 0 || len(r.JobLinks) > 0
}

// Analyze probes doc with every selector of cascade and scans its text.
func Analyze(doc *goquery.Document, url string, cascade *selector.Cascade) Report {
	r := Report{
		URL:        url,
		Title:      selector.CleanText(doc.Find("title").First().Text()),
		Probes:     cascade.Probe(doc),
		JobLinks:   []Link{},
		Indicators: []string{},
	}
	if d, ok := cascade.DiscoverListings(doc); ok {
		r.Selector = d.Selector
		r.Cards = d.Count()
	}

	anchors := doc.Find("a[href]")
	r.TotalLinks = anchors.Length()
	anchors.Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		for _, m := range jobLinkMarkers {
			if strings.Contains(href, m) {
				r.JobLinks = append(r.JobLinks, Link{Text: selector.CleanText(a.Text()), Href: href})
				return
			}
		}
	})

	body := doc.Clone()
	body.Find("script, style, noscript").Remove()
	text := strings.ToLower(body.Text())
	for _, k := range Keywords {
		r.Keywords = append(r.Keywords, KeywordCount{Keyword: k, Count: strings.Count(text, k)})
	}
	for _, ind := range Indicators {
		if strings.Contains(text, ind) {
			r.Indicators = append(r.Indicators, ind)
		}
	}
	return r
}

// Write prints r for a terminal.
func (r Report) Write(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", ui.Bold("URL:"), r.URL)
	fmt.Fprintf(w, "%s %s\n\n", ui.Bold("Title:"), r.Title)

	fmt.Fprintln(w, ui.Bold("Selector probes"))
	var field selector.Field
	for _, p := range r.Probes {
		if p.Field != field {
			field = p.Field
			fmt.Fprintf(w, "  %s\n", ui.Info(string(field)))
		}
		line := fmt.Sprintf("    %-45s %3d", p.Selector, p.Count)
		switch {
		case !p.Valid:
			line = ui.Error(line + "  invalid")
		case p.Count > 0:
			line = ui.Success(line)
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintf(w, "\n%s %d total, %d job-related\n", ui.Bold("Links:"), r.TotalLinks, len(r.JobLinks))
	for i, l := range r.JobLinks {
		if i == 10 {
			fmt.Fprintf(w, "  ... %d more\n", len(r.JobLinks)-10)
			break
		}
		fmt.Fprintf(w, "  %2d. %s\n      %s\n", i+1, truncate(l.Text, 60), truncate(l.Href, 100))
	}

	fmt.Fprintf(w, "\n%s\n", ui.Bold("Keyword presence"))
	for _, k := range r.Keywords {
		fmt.Fprintf(w, "  %-10s %d\n", k.Keyword, k.Count)
	}

	fmt.Fprintln(w)
	if len(r.Indicators) > 0 {
		fmt.Fprintln(w, ui.Error("Anti-bot indicators: "+strings.Join(r.Indicators, ", ")))
	} else {
		fmt.Fprintln(w, ui.Success("No anti-bot indicators"))
	}

	switch {
	case r.Cards > 0:
		fmt.Fprintln(w, ui.Success(fmt.Sprintf("%d listings matched %q", r.Cards, r.Selector)))
	case len(r.JobLinks) > 0:
		fmt.Fprintln(w, ui.Info("Job links present but no listing selector matched; update the selector table"))
	default:
		fmt.Fprintln(w, ui.Error("Page does not contain job listings"))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// PrettyPrint returns an indented human-readable representation of an HTML node tree.
func PrettyPrint(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node, int)
	f = func(n *html.Node, depth int) {
		indent := strings.Repeat("  ", depth)
		switch n.Type {
		case html.DocumentNode:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				f(c, depth)
			}
		case html.ElementNode:
			sb.WriteString(fmt.Sprintf("%s<%s", indent, n.Data))
			for _, a := range n.Attr {
				sb.WriteString(fmt.Sprintf(" %s=%q", a.Key, a.Val))
			}
			sb.WriteString(">\n")
			if isVoidElement(n.Data) {
				return
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				f(c, depth+1)
			}
			sb.WriteString(fmt.Sprintf("%s</%s>\n", indent, n.Data))
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				sb.WriteString(indent + text + "\n")
			}
		case html.DoctypeNode:
			sb.WriteString(fmt.Sprintf("<!DOCTYPE %s>\n", n.Data))
		}
	}
	f(n, 0)
	return sb.String()
}

func isVoidElement(tag string) bool {
	switch tag {
	case "area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}
