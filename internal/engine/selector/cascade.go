// Package selector locates semantic fields in rendered job-board markup.
//
// Each field maps to an ordered list of CSS selectors. Lookups walk the list
// and stop at the first selector that matches; a miss on every selector is a
// normal outcome meaning "field not present in this render".
package selector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/rs/zerolog"
)

// DefaultMinListings is the match count a listing candidate must exceed.
const DefaultMinListings = 3

// Cascade evaluates a selector table against goquery documents.
type Cascade struct {
	table       Table
	matchers    map[string]cascadia.Selector
	minListings int
	logger      zerolog.Logger
}

// Option configures a Cascade.
type Option func(*Cascade)

// WithMinListings overrides the listing plausibility threshold.
func WithMinListings(n int) Option {
	return func(c *Cascade) {
		if n >= 0 {
			c.minListings = n
		}
	}
}

// WithLogger sets the logger used for miss and discovery events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cascade) { c.logger = l }
}

// New builds a Cascade over table. Selectors that do not compile are kept in
// the table but always miss.
func New(table Table, opts ...Option) *Cascade {
	if table == nil {
		table = DefaultTable()
	}
	c := &Cascade{
		table:       table,
		matchers:    make(map[string]cascadia.Selector),
		minListings: DefaultMinListings,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, f := range table.Fields() {
		for _, s := range table[f] {
			if _, ok := c.matchers[s]; ok {
				continue
			}
			m, err := cascadia.Compile(s)
			if err != nil {
				c.logger.Warn().Err(err).Str("field", string(f)).Str("selector", s).Msg("invalid selector ignored")
				continue
			}
			c.matchers[s] = m
		}
	}
	return c
}

// Table returns the selector table in use.
func (c *Cascade) Table() Table { return c.table }

// Selectors returns the ordered selectors for f.
func (c *Cascade) Selectors(f Field) []string { return c.table[f] }

func (c *Cascade) find(scope *goquery.Selection, sel string) *goquery.Selection {
	m, ok := c.matchers[sel]
	if !ok || scope == nil {
		return &goquery.Selection{}
	}
	return scope.FindMatcher(m)
}

// Locate returns the matches of the first selector for f that matches within
// scope. Later selectors are not evaluated once one succeeds.
func (c *Cascade) Locate(scope *goquery.Selection, f Field) (*goquery.Selection, bool) {
	for _, s := range c.table[f] {
		if found := c.find(scope, s); found.Length() > 0 {
			return found, true
		}
	}
	c.logger.Debug().Str("field", string(f)).Msg("no selector matched")
	return nil, false
}

// Text returns the trimmed text of the first match of the first selector
// whose match carries non-empty text.
func (c *Cascade) Text(scope *goquery.Selection, f Field) (string, bool) {
	sel, ok := c.TextSelection(scope, f)
	if !ok {
		return "", false
	}
	return CleanText(sel.Text()), true
}

// TextSelection returns the element Text would read.
func (c *Cascade) TextSelection(scope *goquery.Selection, f Field) (*goquery.Selection, bool) {
	for _, s := range c.table[f] {
		found := c.find(scope, s)
		if found.Length() == 0 {
			continue
		}
		if first := found.First(); CleanText(first.Text()) != "" {
			return first, true
		}
	}
	return nil, false
}

// Attr returns attribute name of the first matching element that carries it.
func (c *Cascade) Attr(scope *goquery.Selection, f Field, name string) (string, bool) {
	for _, s := range c.table[f] {
		found := c.find(scope, s)
		if found.Length() == 0 {
			continue
		}
		if v, ok := found.First().Attr(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// Discovery is the outcome of listing discovery on one page.
type Discovery struct {
	Selector string
	Cards    *goquery.Selection
}

// Count returns the number of discovered cards.
func (d Discovery) Count() int {
	if d.Cards == nil {
		return 0
	}
	return d.Cards.Length()
}

// Each calls fn for each card in document order.
func (d Discovery) Each(fn func(i int, card *goquery.Selection)) {
	if d.Cards == nil {
		return
	}
	d.Cards.Each(fn)
}

// DiscoverListings finds the job cards on a results page. The first listing
// selector whose match count exceeds the threshold wins, which rejects
// accidental one-off matches.
func (c *Cascade) DiscoverListings(doc *goquery.Document) (Discovery, bool) {
	if doc == nil {
		return Discovery{}, false
	}
	for _, s := range c.table[FieldListing] {
		found := c.find(doc.Selection, s)
		n := found.Length()
		if n > c.minListings {
			c.logger.Debug().Str("selector", s).Int("count", n).Msg("listings discovered")
			return Discovery{Selector: s, Cards: found}, true
		}
		if n > 0 {
			c.logger.Debug().Str("selector", s).Int("count", n).Msg("listing candidate below threshold")
		}
	}
	return Discovery{}, false
}

// ProbeResult is the match count of one selector.
type ProbeResult struct {
	Field    Field  `json:"field"`
	Selector string `json:"selector"`
	Count    int    `json:"count"`
	Valid    bool   `json:"valid"`
}

// Probe counts the matches of every selector in the table against doc.
func (c *Cascade) Probe(doc *goquery.Document) []ProbeResult {
	var out []ProbeResult
	if doc == nil {
		return out
	}
	for _, f := range c.table.Fields() {
		for _, s := range c.table[f] {
			_, valid := c.matchers[s]
			out = append(out, ProbeResult{
				Field:    f,
				Selector: s,
				Count:    c.find(doc.Selection, s).Length(),
				Valid:    valid,
			})
		}
	}
	return out
}

// CleanText collapses runs of whitespace into single spaces and trims.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
