// Package rank orders candidate streams by format preference and quality.
package rank

import (
	"math"
	"slices"

	"mediathek/internal/media"
)

// Priorities maps a format to its preference; higher is better. Formats
// missing from the table rank below every listed one.
type Priorities map[media.Format]int

func (p Priorities) of(f media.Format) int {
	if v, ok := p[f]; ok {
		return v
	}
	return math.MinInt
}

// Compare orders a before b (negative result) when a is the better candidate.
func (p Priorities) Compare(a, b media.StreamDescriptor) int {
	pa, pb := p.of(a.Format), p.of(b.Format)
	if pa != pb {
		if pa > pb {
			return -1
		}
		return 1
	}
	return compareQuality(a.Quality, b.Quality)
}

// compareQuality sorts descending with QualityAuto ahead of everything.
func compareQuality(a, b int) int {
	switch {
	case a == b:
		return 0
	case a == media.QualityAuto:
		return -1
	case b == media.QualityAuto:
		return 1
	case a > b:
		return -1
	default:
		return 1
	}
}

// Rank returns a new slice sorted best-first. Candidates that compare equal
// keep their discovery order.
func Rank(candidates []media.StreamDescriptor, p Priorities) []media.StreamDescriptor {
	ranked := slices.Clone(candidates)
	slices.SortStableFunc(ranked, p.Compare)
	return ranked
}
