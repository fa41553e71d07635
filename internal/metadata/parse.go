// Package metadata reads descriptive fields (title, description, publish
// date, duration, thumbnail) from a video item page. Every field degrades to a
// documented default on failure; parsing never fails as a whole.
package metadata

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mediathek/internal/dom"
	"mediathek/internal/httputil"
	"mediathek/internal/log"
)

// MissingDatePolicy selects what happens when a page has no usable publish date.
type MissingDatePolicy string

const (
	// LeaveUnset keeps the publish date nil.
	LeaveUnset MissingDatePolicy = "leave_unset"
	// UseNow substitutes the current time.
	UseNow MissingDatePolicy = "now"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (MissingDatePolicy, error) {
	switch p := MissingDatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case LeaveUnset, UseNow:
		return p, nil
	default:
		return "", fmt.Errorf("unknown missing-date policy %q (valid: leave_unset, now)", s)
	}
}

const (
	infoSelector      = "div.information"
	thumbnailWidth    = "320"
	thumbnailSelector = "img[data-ctrl-image]"
)

// Options control metadata parsing.
type Options struct {
	Policy   MissingDatePolicy
	Location *time.Location   // publish dates are local to this zone; nil means UTC
	BaseURI  string           // resolves site-relative thumbnail paths
	Now      func() time.Time // nil means time.Now
}

// Metadata holds the descriptive fields of a video item.
type Metadata struct {
	Title       string
	Description string
	Published   *time.Time
	Duration    int
	Thumbnail   string
}

// Warning describes a metadata field that could not be parsed. Warnings are
// logged, never returned to callers of the resolver.
type Warning struct {
	Field string
	Err   error
}

func (w *Warning) Error() string { return fmt.Sprintf("metadata %s: %v", w.Field, w.Err) }

func (w *Warning) Unwrap() error { return w.Err }

// Parse extracts metadata from page. It looks at the info fragment of the
// page first and falls back to document-level meta tags.
func Parse(page string, opts Options) Metadata {
	logger := log.WithComponent("metadata")
	warn := func(field string, err error) {
		logger.Warn().Err(&Warning{Field: field, Err: err}).Msg("metadata field degraded")
	}

	var md Metadata

	doc, err := dom.Parse(page)
	if err != nil {
		warn("document", err)
		md.Published = applyPolicy(opts, err, warn)
		return md
	}
	root := doc.Selection
	info := dom.Optional(root, infoSelector)
	if info.Length() == 0 {
		info = root
	}

	md.Title = parseTitle(root, info)
	if md.Title == "" {
		warn("title", dom.ErrNotFound)
	}

	md.Description, err = parseDescription(root, info)
	if err != nil {
		warn("description", err)
	}

	dateText := dom.OptionalText(info, "p.subtitle") + " " + dom.OptionalText(info, "p.dachzeile")
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	if published, err := ParsePublished(dateText, loc); err != nil {
		md.Published = applyPolicy(opts, err, warn)
	} else {
		md.Published = published
	}

	durationText := dom.OptionalText(info, ".duration")
	if durationText == "" {
		durationText = dom.OptionalText(info, "p.subtitle")
	}
	if md.Duration, err = ParseDuration(durationText); err != nil {
		warn("duration", err)
	}

	if md.Thumbnail, err = parseThumbnail(root, info, opts.BaseURI); err != nil {
		logger.Debug().Err(err).Msg("no thumbnail")
	}

	return md
}

func applyPolicy(opts Options, err error, warn func(string, error)) *time.Time {
	warn("publish date", err)
	if opts.Policy != UseNow {
		return nil
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	t := now()
	if opts.Location != nil {
		t = t.In(opts.Location)
	}
	return &t
}

func parseTitle(root, info *goquery.Selection) string {
	for _, sel := range []string{"h1.headline", "h4.headline", "h1"} {
		if t := dom.OptionalText(info, sel); t != "" {
			return t
		}
	}
	if t := strings.TrimSpace(dom.Optional(root, `meta[property="og:title"]`).AttrOr("content", "")); t != "" {
		return t
	}
	return dom.OptionalText(root, "title")
}

func parseDescription(root, info *goquery.Selection) (string, error) {
	if d, err := dom.Text(info, "p.teasertext"); err == nil && d != "" {
		return d, nil
	}
	for _, sel := range []string{`meta[property="og:description"]`, `meta[name="description"]`} {
		if d := strings.TrimSpace(dom.Optional(root, sel).AttrOr("content", "")); d != "" {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: p.teasertext", dom.ErrNotFound)
}

// parseThumbnail reads the teaser image config, whose urlScheme carries a
// ##width## placeholder, and falls back to og:image.
func parseThumbnail(root, info *goquery.Selection, base string) (string, error) {
	if raw, err := dom.Attr(info, thumbnailSelector, "data-ctrl-image"); err == nil {
		var img struct {
			URLScheme string `json:"urlScheme"`
		}
		if err := json.Unmarshal([]byte(raw), &img); err == nil && img.URLScheme != "" {
			src := strings.ReplaceAll(img.URLScheme, "##width##", thumbnailWidth)
			return httputil.JoinURL(base, src), nil
		}
	}
	if src := dom.Optional(root, `meta[property="og:image"]`).AttrOr("content", ""); src != "" {
		return httputil.JoinURL(base, src), nil
	}
	return "", fmt.Errorf("%w: %s", dom.ErrNotFound, thumbnailSelector)
}
