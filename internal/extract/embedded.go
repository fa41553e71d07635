package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mediathek/internal/log"
	"mediathek/internal/media"
	"mediathek/internal/rank"
)

const (
	DefaultStateMarker      = "window.__APOLLO_STATE__"
	DefaultCollectionSuffix = ".mediaCollection"
)

// DefaultEmbeddedPriorities prefers adaptive streams over progressive MP4.
func DefaultEmbeddedPriorities() rank.Priorities {
	return rank.Priorities{media.HLS: 1, media.MP4: 0}
}

// EmbeddedOptions configures an EmbeddedState strategy. Zero values select
// the defaults.
type EmbeddedOptions struct {
	Marker           string
	CollectionSuffix string
	Priorities       rank.Priorities
}

// EmbeddedState reads candidates from a JSON application state object
// assigned to a global in the page markup. The state is a flat map of
// content-addressed objects that reference each other by id:
//
//	<key>.mediaCollection._mediaArray[0].id -> _mediaStreamArray[*].id -> {_quality, _stream.json[0]}
type EmbeddedState struct {
	suffix     string
	assign     *regexp.Regexp
	priorities rank.Priorities
}

// NewEmbeddedState creates the strategy.
func NewEmbeddedState(opts EmbeddedOptions) *EmbeddedState {
	if opts.Marker == "" {
		opts.Marker = DefaultStateMarker
	}
	if opts.CollectionSuffix == "" {
		opts.CollectionSuffix = DefaultCollectionSuffix
	}
	if opts.Priorities == nil {
		opts.Priorities = DefaultEmbeddedPriorities()
	}
	return &EmbeddedState{
		suffix:     opts.CollectionSuffix,
		assign:     regexp.MustCompile(regexp.QuoteMeta(opts.Marker) + `\s*=\s*\{`),
		priorities: opts.Priorities,
	}
}

func (e *EmbeddedState) Name() string { return "embedded-state" }

func (e *EmbeddedState) Priorities() rank.Priorities { return e.priorities }

func (e *EmbeddedState) Detect(page string) bool {
	return e.assign.MatchString(page)
}

type stateRef struct {
	ID string `json:"id"`
}

type mediaCollection struct {
	MediaArray []stateRef `json:"_mediaArray"`
}

type mediaEntry struct {
	MediaStreamArray []stateRef `json:"_mediaStreamArray"`
}

type streamConfig struct {
	Quality json.RawMessage `json:"_quality"`
	Stream  struct {
		JSON []string `json:"json"`
	} `json:"_stream"`
}

func (e *EmbeddedState) Extract(_ context.Context, page string) ([]media.StreamDescriptor, error) {
	logger := log.WithComponent("extract")

	loc := e.assign.FindStringIndex(page)
	if loc == nil {
		return nil, nil
	}

	// The match ends on the opening brace of the object literal.
	keys, state, err := decodeState(page[loc[1]-1:])
	if err != nil {
		logger.Warn().Err(&ExtractionError{Strategy: e.Name(), Err: err}).Msg("embedded state is not valid JSON")
		return nil, nil
	}

	var candidates []media.StreamDescriptor
	for _, key := range keys {
		if !strings.HasSuffix(key, e.suffix) {
			continue
		}
		found, err := e.collection(state, key)
		if err != nil {
			logger.Warn().Err(&ExtractionError{Strategy: e.Name(), Key: key, Err: err}).Msg("skipping media collection")
			continue
		}
		candidates = append(candidates, found...)
	}

	logger.Debug().Int("candidates", len(candidates)).Msg("embedded state extracted")
	return candidates, nil
}

func (e *EmbeddedState) collection(state map[string]json.RawMessage, key string) ([]media.StreamDescriptor, error) {
	var mc mediaCollection
	if err := lookup(state, key, &mc); err != nil {
		return nil, err
	}
	if len(mc.MediaArray) == 0 {
		return nil, errors.New("_mediaArray is empty")
	}

	var entry mediaEntry
	if err := lookup(state, mc.MediaArray[0].ID, &entry); err != nil {
		return nil, fmt.Errorf("_mediaArray[0]: %w", err)
	}

	logger := log.WithComponent("extract")
	var out []media.StreamDescriptor
	for i, ref := range entry.MediaStreamArray {
		var sc streamConfig
		if err := lookup(state, ref.ID, &sc); err != nil {
			return nil, fmt.Errorf("_mediaStreamArray[%d]: %w", i, err)
		}
		if len(sc.Stream.JSON) == 0 {
			return nil, fmt.Errorf("_mediaStreamArray[%d]: _stream.json is empty", i)
		}

		d := media.StreamDescriptor{Path: absolutize(sc.Stream.JSON[0])}
		q, err := qualityString(sc.Quality)
		if err != nil {
			return nil, fmt.Errorf("_mediaStreamArray[%d]: %w", i, err)
		}
		if q == "auto" {
			d.Format, d.Quality = media.HLS, media.QualityAuto
		} else {
			n, err := strconv.Atoi(q)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("_mediaStreamArray[%d]: invalid _quality %q", i, q)
			}
			d.Format, d.Quality = media.MP4, n
		}

		if err := d.Validate(); err != nil {
			logger.Warn().Err(err).Str("key", ref.ID).Msg("discarding stream with invalid URI")
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// decodeState decodes a JSON object and returns its keys in document order.
// Trailing page content after the object is ignored.
func decodeState(s string) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(strings.NewReader(s))

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	state := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("value of %q: %w", key, err)
		}
		if _, dup := state[key]; !dup {
			keys = append(keys, key)
		}
		state[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, state, nil
}

func lookup(state map[string]json.RawMessage, id string, v any) error {
	if id == "" {
		return errors.New("empty reference id")
	}
	raw, ok := state[id]
	if !ok {
		return fmt.Errorf("reference %q not found", id)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding %q: %w", id, err)
	}
	return nil
}

// qualityString accepts a quality given either as a JSON string or number.
func qualityString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", errors.New("_quality missing")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("_quality has unexpected type: %s", raw)
}

// absolutize rewrites protocol-relative URLs to https.
func absolutize(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}
