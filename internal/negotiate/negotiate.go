// Package negotiate picks the best candidate whose URI scheme the caller can
// play.
package negotiate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"mediathek/internal/media"
)

// SchemeSet is an immutable set of lower-cased URI schemes.
type SchemeSet struct {
	schemes map[string]struct{}
}

// NewSchemeSet builds a set from scheme names; blanks are ignored.
func NewSchemeSet(schemes ...string) SchemeSet {
	normalized := lo.FilterMap(schemes, func(s string, _ int) (string, bool) {
		s = strings.ToLower(strings.TrimSpace(s))
		return s, s != ""
	})
	return SchemeSet{schemes: lo.Keyify(normalized)}
}

// Contains reports whether scheme is in the set.
func (s SchemeSet) Contains(scheme string) bool {
	_, ok := s.schemes[strings.ToLower(scheme)]
	return ok
}

// Len returns the number of schemes.
func (s SchemeSet) Len() int { return len(s.schemes) }

// Sorted returns the schemes in lexical order.
func (s SchemeSet) Sorted() []string {
	out := lo.Keys(s.schemes)
	slices.Sort(out)
	return out
}

// NoSupportedVariantError reports that candidates existed but none used a
// supported scheme.
type NoSupportedVariantError struct {
	PageURL   string
	Supported []string // schemes the caller can play
	Available []string // distinct schemes of the candidates, in ranked order
}

func (e *NoSupportedVariantError) Error() string {
	supported := "none"
	if len(e.Supported) > 0 {
		supported = strings.Join(e.Supported, ", ")
	}
	return fmt.Sprintf("no supported video found on %s (available: %s; supported: %s)",
		e.PageURL, strings.Join(e.Available, ", "), supported)
}

// Select returns the first ranked candidate whose scheme is supported.
func Select(pageURL string, ranked []media.StreamDescriptor, supported SchemeSet) (media.StreamDescriptor, error) {
	for _, d := range ranked {
		if supported.Contains(d.Scheme()) {
			return d, nil
		}
	}

	available := lo.Uniq(lo.Map(ranked, func(d media.StreamDescriptor, _ int) string {
		return d.Scheme()
	}))
	return media.StreamDescriptor{}, &NoSupportedVariantError{
		PageURL:   pageURL,
		Supported: supported.Sorted(),
		Available: available,
	}
}
