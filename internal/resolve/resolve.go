// Package resolve turns a video item page into a single playable stream plus
// descriptive metadata.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"mediathek/internal/extract"
	"mediathek/internal/log"
	"mediathek/internal/media"
	"mediathek/internal/metadata"
	"mediathek/internal/negotiate"
	"mediathek/internal/rank"
)

// ErrNoCandidates means the page yielded no stream candidates at all: no
// known layout was detected, or every candidate group was malformed.
var ErrNoCandidates = errors.New("no stream candidates found")

// Fetcher retrieves pages and the JSON documents they reference.
type Fetcher interface {
	FetchText(ctx context.Context, url string, headers map[string]string) (string, error)
	FetchJSON(ctx context.Context, url string, v any) error
}

// SchemeSource reports the URI schemes the caller can currently play. The
// set may change between calls.
type SchemeSource interface {
	Schemes() []string
}

// StaticSchemes is a fixed SchemeSource.
type StaticSchemes []string

func (s StaticSchemes) Schemes() []string { return s }

// Options configures a Resolver. Zero values select defaults.
type Options struct {
	// Strategies are tried in order; the first whose Detect matches wins.
	// Nil selects embedded state, then legacy player config.
	Strategies []extract.Strategy

	Embedded extract.EmbeddedOptions
	Legacy   extract.LegacyOptions
	Metadata metadata.Options

	// Headers are sent with the page request in addition to the fetcher's
	// defaults.
	Headers map[string]string
}

// Resolver runs the resolution pipeline. It holds no per-call state and is
// safe for concurrent use.
type Resolver struct {
	fetcher    Fetcher
	schemes    SchemeSource
	strategies []extract.Strategy
	metadata   metadata.Options
	headers    map[string]string
}

// New creates a Resolver. schemes may be nil when only Resolve is used.
func New(fetcher Fetcher, schemes SchemeSource, opts Options) *Resolver {
	strategies := opts.Strategies
	if strategies == nil {
		strategies = []extract.Strategy{
			extract.NewEmbeddedState(opts.Embedded),
			extract.NewLegacyPlayerConfig(fetcher, opts.Legacy),
		}
	}
	if opts.Metadata.BaseURI == "" {
		opts.Metadata.BaseURI = opts.Legacy.BaseURI
	}
	return &Resolver{
		fetcher:    fetcher,
		schemes:    schemes,
		strategies: strategies,
		metadata:   opts.Metadata,
		headers:    opts.Headers,
	}
}

// ResolvePage fetches pageURL and resolves it against one snapshot of the
// scheme source.
func (r *Resolver) ResolvePage(ctx context.Context, pageURL string) (media.VideoItem, error) {
	var schemes []string
	if r.schemes != nil {
		schemes = r.schemes.Schemes()
	}

	page, err := r.fetcher.FetchText(ctx, pageURL, r.headers)
	if err != nil {
		return media.VideoItem{}, err
	}
	return r.Resolve(ctx, pageURL, page, schemes)
}

// Resolve selects the best stream on page that uses one of schemes, and
// attaches the page metadata. Errors are ErrNoCandidates,
// *negotiate.NoSupportedVariantError, or a fetch failure from a strategy's
// secondary request. Metadata problems never fail a resolution.
func (r *Resolver) Resolve(ctx context.Context, pageURL, page string, schemes []string) (media.VideoItem, error) {
	logger := log.WithComponent("resolve").With().Str("page", pageURL).Logger()

	strategy, ok := extract.Choose(page, r.strategies...)
	if !ok {
		logger.Debug().Msg("no known page layout detected")
		return media.VideoItem{}, fmt.Errorf("%s: %w", pageURL, ErrNoCandidates)
	}
	logger.Debug().Str("strategy", strategy.Name()).Msg("page layout detected")

	candidates, err := strategy.Extract(ctx, page)
	if err != nil {
		return media.VideoItem{}, err
	}
	if len(candidates) == 0 {
		return media.VideoItem{}, fmt.Errorf("%s: %w", pageURL, ErrNoCandidates)
	}

	ranked := rank.Rank(candidates, strategy.Priorities())
	chosen, err := negotiate.Select(pageURL, ranked, negotiate.NewSchemeSet(schemes...))
	if err != nil {
		return media.VideoItem{}, err
	}
	logger.Debug().Stringer("stream", chosen).Int("candidates", len(ranked)).Msg("stream selected")

	md := metadata.Parse(page, r.metadata)

	return media.VideoItem{
		PageURL:     pageURL,
		StreamURI:   chosen.ResolvedURI(),
		Format:      chosen.Format,
		Quality:     chosen.Quality,
		Title:       md.Title,
		Description: md.Description,
		Published:   md.Published,
		Duration:    md.Duration,
		Thumbnail:   md.Thumbnail,
	}, nil
}
