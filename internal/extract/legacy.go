package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mediathek/internal/dom"
	"mediathek/internal/httputil"
	"mediathek/internal/log"
	"mediathek/internal/media"
	"mediathek/internal/rank"
)

const (
	DefaultPlayerSelector = "[data-ctrl-player]"
	playerAttr            = "data-ctrl-player"
)

// DefaultLegacyPriorities prefers MP4 over WMV over MPG.
func DefaultLegacyPriorities() rank.Priorities {
	return rank.Priorities{media.MP4: 2, media.WMV: 1, media.MPG: 0}
}

// JSONFetcher fetches and decodes a JSON document.
type JSONFetcher interface {
	FetchJSON(ctx context.Context, url string, v any) error
}

// LegacyOptions configures a LegacyPlayerConfig strategy.
type LegacyOptions struct {
	BaseURI    string
	Selector   string
	Priorities rank.Priorities
}

// LegacyPlayerConfig handles older pages whose player container carries a
// small JSON config pointing at a separate media document. Streams in that
// document are split into a server part and a stream part.
type LegacyPlayerConfig struct {
	fetcher    JSONFetcher
	baseURI    string
	selector   string
	priorities rank.Priorities
}

// NewLegacyPlayerConfig creates the strategy. The fetcher is used for the
// secondary media document.
func NewLegacyPlayerConfig(fetcher JSONFetcher, opts LegacyOptions) *LegacyPlayerConfig {
	if opts.Selector == "" {
		opts.Selector = DefaultPlayerSelector
	}
	if opts.Priorities == nil {
		opts.Priorities = DefaultLegacyPriorities()
	}
	return &LegacyPlayerConfig{
		fetcher:    fetcher,
		baseURI:    opts.BaseURI,
		selector:   opts.Selector,
		priorities: opts.Priorities,
	}
}

func (l *LegacyPlayerConfig) Name() string { return "legacy-player-config" }

func (l *LegacyPlayerConfig) Priorities() rank.Priorities { return l.priorities }

func (l *LegacyPlayerConfig) Detect(page string) bool {
	return strings.Contains(page, playerAttr)
}

type playerConfig struct {
	MCURL string `json:"mcUrl"`
}

type legacyMedia struct {
	MediaArray []struct {
		MediaStreamArray []json.RawMessage `json:"_mediaStreamArray"`
	} `json:"_mediaArray"`
}

type legacyStream struct {
	Quality  json.RawMessage `json:"_quality"`
	Server   string          `json:"_server"`
	Stream   json.RawMessage `json:"_stream"`
	FlashURL any             `json:"flashUrl"`
}

func (l *LegacyPlayerConfig) Extract(ctx context.Context, page string) ([]media.StreamDescriptor, error) {
	logger := log.WithComponent("extract")

	mcURL, err := l.mediaURL(page)
	if err != nil {
		logger.Warn().Err(&ExtractionError{Strategy: l.Name(), Err: err}).Msg("no usable player config")
		return nil, nil
	}

	docURL := httputil.JoinURL(l.baseURI, mcURL)
	logger.Debug().Str("url", docURL).Msg("fetching media document")

	var doc legacyMedia
	if err := l.fetcher.FetchJSON(ctx, docURL, &doc); err != nil {
		return nil, err
	}

	var candidates []media.StreamDescriptor
	for i, m := range doc.MediaArray {
		for j, raw := range m.MediaStreamArray {
			key := fmt.Sprintf("_mediaArray[%d]._mediaStreamArray[%d]", i, j)
			d, keep, err := legacyDescriptor(raw)
			if err != nil {
				logger.Warn().Err(&ExtractionError{Strategy: l.Name(), Key: key, Err: err}).Msg("skipping stream")
				continue
			}
			if !keep {
				logger.Debug().Str("key", key).Msg("dropping adaptive stream")
				continue
			}
			if err := d.Validate(); err != nil {
				logger.Warn().Err(err).Str("key", key).Msg("discarding stream with invalid URI")
				continue
			}
			candidates = append(candidates, d)
		}
	}

	logger.Debug().Int("candidates", len(candidates)).Msg("legacy player config extracted")
	return candidates, nil
}

// mediaURL reads mcUrl from the first player container whose config
// attribute carries one. Pages may hold teaser players without a media
// document ahead of the main one.
func (l *LegacyPlayerConfig) mediaURL(page string) (string, error) {
	doc, err := dom.Parse(page)
	if err != nil {
		return "", err
	}
	containers := dom.All(doc.Selection, l.selector)
	if containers.Length() == 0 {
		return "", fmt.Errorf("%w: %q", dom.ErrNotFound, l.selector)
	}

	var firstErr error
	for i := 0; i < containers.Length(); i++ {
		mcURL, err := containerMediaURL(containers.Eq(i))
		if err == nil {
			return mcURL, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return "", firstErr
}

func containerMediaURL(s *goquery.Selection) (string, error) {
	attr, ok := s.Attr(playerAttr)
	if !ok {
		return "", fmt.Errorf("%w: player container has no attribute %q", dom.ErrNotFound, playerAttr)
	}

	var cfg playerConfig
	if err := json.Unmarshal([]byte(attr), &cfg); err != nil {
		// Older markup quotes the object with single quotes.
		if err2 := json.Unmarshal([]byte(strings.ReplaceAll(attr, "'", `"`)), &cfg); err2 != nil {
			return "", fmt.Errorf("parsing %s: %w", playerAttr, err)
		}
	}
	if cfg.MCURL == "" {
		return "", errors.New("player config has no mcUrl")
	}
	return cfg.MCURL, nil
}

// legacyDescriptor converts one stream entry. keep is false for adaptive
// ("auto") entries, which this layout does not support.
func legacyDescriptor(raw json.RawMessage) (media.StreamDescriptor, bool, error) {
	var s legacyStream
	if err := json.Unmarshal(raw, &s); err != nil {
		return media.StreamDescriptor{}, false, err
	}

	quality, auto, err := legacyQuality(s.Quality)
	if err != nil {
		return media.StreamDescriptor{}, false, err
	}
	if auto {
		return media.StreamDescriptor{}, false, nil
	}

	stream, err := streamName(s.Stream)
	if err != nil {
		return media.StreamDescriptor{}, false, err
	}

	d := media.StreamDescriptor{Server: s.Server, Path: stream, Quality: quality}
	if flash, _ := s.FlashURL.(bool); !flash {
		d = media.StreamDescriptor{Path: absolutize(d.ResolvedURI()), Quality: quality}
	}
	d.Format = legacyFormat(stream)
	return d, true, nil
}

func legacyQuality(raw json.RawMessage) (int, bool, error) {
	if len(raw) == 0 {
		return 0, false, errors.New("_quality missing")
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false, fmt.Errorf("_quality has unexpected type: %s", raw)
		}
		if s == "auto" {
			return 0, true, nil
		}
		if n, err = strconv.Atoi(s); err != nil {
			return 0, false, fmt.Errorf("invalid _quality %q", s)
		}
	}
	// Negative values would collide with the adaptive sentinel.
	if n < 0 {
		return 0, false, fmt.Errorf("invalid _quality %d", n)
	}
	return n, false, nil
}

// streamName accepts _stream as a string or a list holding one string.
func streamName(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 && list[0] != "" {
		return list[0], nil
	}
	return "", errors.New("_stream missing or empty")
}

// legacyFormat infers the container from the stream name. RTMP stream names
// carry a "mp4:" style prefix instead of an extension.
func legacyFormat(stream string) media.Format {
	s := strings.ToLower(stream)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasPrefix(s, "mp4:"):
		return media.MP4
	case strings.HasPrefix(s, "wmv:"):
		return media.WMV
	}
	switch path.Ext(s) {
	case ".wmv", ".asf", ".asx":
		return media.WMV
	case ".mpg", ".mpeg":
		return media.MPG
	case ".m3u8":
		return media.HLS
	default:
		return media.MP4
	}
}
