// Package extractor pulls a numeric price out of a raw product page.
package extractor

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrPriceNotFound is returned when none of a seller's rules yields a price.
var ErrPriceNotFound = errors.New("price not found")

// Rule locates a raw price candidate in a page body.
type Rule interface {
	Find(body string) (string, bool)
}

// PatternRule matches a regular expression and takes its first capture group.
type PatternRule struct {
	re *regexp.Regexp
}

// Pattern compiles expr into a PatternRule. It panics on an invalid expression,
// so it is meant for package-level rule tables.
func Pattern(expr string) PatternRule {
	return PatternRule{re: regexp.MustCompile(expr)}
}

// Find returns the first capture group of the first match.
func (p PatternRule) Find(body string) (string, bool) {
	m := p.re.FindStringSubmatch(body)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// String returns the underlying expression.
func (p PatternRule) String() string {
	return p.re.String()
}

// SelectorRule reads a price from the first HTML element matching Selector.
// If Attr is empty the element text is used.
type SelectorRule struct {
	Selector string
	Attr     string
}

// Find parses body as HTML and reads the configured element.
func (s SelectorRule) Find(body string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", false
	}
	sel := doc.Find(s.Selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	if s.Attr == "" {
		return strings.TrimSpace(sel.Text()), true
	}
	return sel.Attr(s.Attr)
}

// Extract applies rules in order and returns the first candidate that parses
// as a positive number. It returns ErrPriceNotFound if none does.
func Extract(rules []Rule, body string) (float64, error) {
	for _, r := range rules {
		raw, ok := r.Find(body)
		if !ok {
			continue
		}
		if price, ok := parsePrice(raw); ok {
			return price, nil
		}
	}
	return 0, ErrPriceNotFound
}

func parsePrice(raw string) (float64, bool) {
	s := strings.Trim(strings.TrimSpace(raw), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}
