package extract

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	urlutil "github.com/law-makers/jobcrawl/internal/utils/url"
)

// Format is the rendering of a full description.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a description format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatMarkdown:
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown description format %q (want text or markdown)", s)
	}
}

// CleanHTML removes scripts, forms and media and drops every attribute
// except link targets and image sources.
func CleanHTML(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, link, meta, noscript, iframe, svg, form, input, button, select, textarea, canvas").Remove()

	doc.Find("*").Each(func(i int, s *goquery.Selection) {
		node := s.Nodes[0]
		var kept []html.Attribute
		for _, attr := range node.Attr {
			switch {
			case node.Data == "a" && (attr.Key == "href" || attr.Key == "title"):
				kept = append(kept, attr)
			case node.Data == "img" && (attr.Key == "src" || attr.Key == "alt"):
				kept = append(kept, attr)
			}
		}
		node.Attr = kept
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Markdown converts a description fragment to GitHub-flavored markdown.
// Relative links resolve against base.
func Markdown(fragment, base string) (string, error) {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	converter.AddRules(md.Rule{
		Filter: []string{"a"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			href, exists := selec.Attr("href")
			if !exists {
				return nil
			}
			str := fmt.Sprintf("[%s](%s)", strings.TrimSpace(selec.Text()), urlutil.ResolveURL(base, href))
			return &str
		},
	})

	cleaned, err := CleanHTML(fragment)
	if err != nil {
		return "", err
	}
	out, err := converter.ConvertString(cleaned)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// description renders the located description element in the configured
// format. Markdown falls back to text when conversion fails.
func (e *Extractor) description(sel *goquery.Selection, text string) string {
	if e.opts.DescriptionFormat != FormatMarkdown || sel == nil {
		return text
	}
	frag, err := sel.First().Html()
	if err != nil {
		return text
	}
	out, err := Markdown(frag, e.opts.BaseURL)
	if err != nil || out == "" {
		e.logger.Debug().Err(err).Msg("markdown conversion failed, keeping text")
		return text
	}
	return out
}

var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true, "section": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "tr": true, "blockquote": true, "pre": true, "article": true,
}

// blockText renders sel as plain text with one line per block element.
func blockText(sel *goquery.Selection) string {
	if sel == nil || len(sel.Nodes) == 0 {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			block := blockElements[n.Data]
			if block || n.Data == "br" {
				b.WriteByte('\n')
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
			if block {
				b.WriteByte('\n')
			}
		}
	}
	walk(sel.Nodes[0])

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
