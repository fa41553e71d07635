// Package dom wraps goquery with required/optional lookups.
// A required lookup that matches nothing fails with ErrNotFound; optional
// lookups never fail and return an empty selection instead.
package dom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNotFound is returned when a required selector matches nothing.
var ErrNotFound = errors.New("element not found")

// Parse parses an HTML document or fragment.
func Parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// Required returns the first element matching selector below root.
func Required(root *goquery.Selection, selector string) (*goquery.Selection, error) {
	s := root.Find(selector).First()
	if s.Length() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, selector)
	}
	return s, nil
}

// Optional returns the first element matching selector, possibly empty.
func Optional(root *goquery.Selection, selector string) *goquery.Selection {
	return root.Find(selector).First()
}

// All returns every element matching selector.
func All(root *goquery.Selection, selector string) *goquery.Selection {
	return root.Find(selector)
}

// Text returns the trimmed, whitespace-collapsed text of the first match.
func Text(root *goquery.Selection, selector string) (string, error) {
	s, err := Required(root, selector)
	if err != nil {
		return "", err
	}
	return collapse(s.Text()), nil
}

// OptionalText is Text without the failure: a missing element yields "".
func OptionalText(root *goquery.Selection, selector string) string {
	return collapse(Optional(root, selector).Text())
}

// Attr returns the named attribute of the first match.
func Attr(root *goquery.Selection, selector, attr string) (string, error) {
	s, err := Required(root, selector)
	if err != nil {
		return "", err
	}
	v, ok := s.Attr(attr)
	if !ok {
		return "", fmt.Errorf("%w: %q has no attribute %q", ErrNotFound, selector, attr)
	}
	return v, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
