// Package extract finds candidate streams in video item pages.
//
// Pages have been published in incompatible layouts over time. Each layout is
// handled by a Strategy; exactly one strategy applies to a given page, chosen
// by sniffing the page text.
package extract

import (
	"context"
	"fmt"

	"mediathek/internal/media"
	"mediathek/internal/rank"
)

// Strategy extracts candidate streams from one page layout.
type Strategy interface {
	// Name identifies the strategy in logs and diagnostics.
	Name() string

	// Detect reports whether the page uses this strategy's layout.
	Detect(page string) bool

	// Extract returns the candidates in discovery order. Malformed parts of
	// the page are skipped and logged; only collaborator failures (such as a
	// failed secondary fetch) are returned as errors.
	Extract(ctx context.Context, page string) ([]media.StreamDescriptor, error)

	// Priorities is the format preference table for this strategy's
	// candidates. Quality scales differ between strategies and are never
	// compared across them.
	Priorities() rank.Priorities
}

// Choose returns the first strategy whose Detect matches the page.
func Choose(page string, strategies ...Strategy) (Strategy, bool) {
	for _, s := range strategies {
		if s.Detect(page) {
			return s, true
		}
	}
	return nil, false
}

// ExtractionError describes a malformed part of a page. It is logged and the
// offending candidate group is skipped.
type ExtractionError struct {
	Strategy string
	Key      string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Strategy, e.Key, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
