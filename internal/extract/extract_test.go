package extract

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mediathek/internal/httputil"
	"mediathek/internal/media"
)

func loadTestPage(t *testing.T, filename string) string {
	t.Helper()
	data, err := os.ReadFile("testdata/" + filename)
	if err != nil {
		t.Fatalf("reading test fixture %s: %v", filename, err)
	}
	return string(data)
}

// fixtureFetcher serves a testdata JSON file for every request.
type fixtureFetcher struct {
	t    *testing.T
	file string
	err  error
	urls []string
}

func (f *fixtureFetcher) FetchJSON(_ context.Context, url string, v any) error {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return f.err
	}
	data, err := os.ReadFile("testdata/" + f.file)
	if err != nil {
		f.t.Fatalf("reading test fixture %s: %v", f.file, err)
	}
	return json.Unmarshal(data, v)
}

func TestChoose(t *testing.T) {
	embedded := NewEmbeddedState(EmbeddedOptions{})
	legacy := NewLegacyPlayerConfig(&fixtureFetcher{t: t}, LegacyOptions{})

	tests := []struct {
		name string
		page string
		want string
	}{
		{"embedded page", loadTestPage(t, "embedded_page.html"), "embedded-state"},
		{"legacy page", loadTestPage(t, "legacy_page.html"), "legacy-player-config"},
		{"both markers prefer embedded", `<div data-ctrl-player="{}"></div><script>window.__APOLLO_STATE__ = {};</script>`, "embedded-state"},
		{"neither", "<html><body>nothing</body></html>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := Choose(tt.page, embedded, legacy)
			if tt.want == "" {
				if ok {
					t.Errorf("Choose() = %s, want no strategy", s.Name())
				}
				return
			}
			if !ok || s.Name() != tt.want {
				t.Errorf("Choose() = %v (ok=%v), want %s", s, ok, tt.want)
			}
		})
	}
}

func TestEmbeddedStateExtract(t *testing.T) {
	e := NewEmbeddedState(EmbeddedOptions{})
	got, err := e.Extract(context.Background(), loadTestPage(t, "embedded_page.html"))
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	want := []media.StreamDescriptor{
		{Path: "https://ardevent2.akamaized.net/hls/live/master.m3u8", Format: media.HLS, Quality: media.QualityAuto},
		{Path: "https://pdvideosdaserste-a.akamaihd.net/int/2019/03/17/tatort_lo.mp4", Format: media.MP4, Quality: 1},
		{Path: "https://pdvideosdaserste-a.akamaihd.net/int/2019/03/17/tatort_hi.mp4", Format: media.MP4, Quality: 3},
		{Path: "https://pdvideosdaserste-a.akamaihd.net/int/2019/03/17/tatort_mid.mp4", Format: media.MP4, Quality: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestEmbeddedStateSkipsMalformedCollections(t *testing.T) {
	e := NewEmbeddedState(EmbeddedOptions{})
	got, err := e.Extract(context.Background(), loadTestPage(t, "embedded_partial.html"))
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	want := []media.StreamDescriptor{
		{Path: "https://cdn.example.de/c2.mp4", Format: media.MP4, Quality: 2},
		{Path: "https://cdn.example.de/c.m3u8", Format: media.HLS, Quality: media.QualityAuto},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestEmbeddedStateTruncatedJSON(t *testing.T) {
	e := NewEmbeddedState(EmbeddedOptions{})
	page := loadTestPage(t, "embedded_truncated.html")

	if !e.Detect(page) {
		t.Fatal("Detect() = false for a page with the state marker")
	}
	got, err := e.Extract(context.Background(), page)
	if err != nil {
		t.Fatalf("Extract() error = %v, want nil", err)
	}
	if len(got) != 0 {
		t.Errorf("Extract() = %v, want no candidates", got)
	}
}

func TestEmbeddedStateCustomMarker(t *testing.T) {
	e := NewEmbeddedState(EmbeddedOptions{Marker: "__STATE", CollectionSuffix: ".media"})
	page := `<script>__STATE={"x.media":{"_mediaArray":[{"id":"m"}]},"m":{"_mediaStreamArray":[{"id":"s"}]},"s":{"_quality":"auto","_stream":{"json":["//cdn.example/x.m3u8"]}}}</script>`

	got, err := e.Extract(context.Background(), page)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	want := []media.StreamDescriptor{{Path: "https://cdn.example/x.m3u8", Format: media.HLS, Quality: media.QualityAuto}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestLegacyPlayerConfigExtract(t *testing.T) {
	f := &fixtureFetcher{t: t, file: "legacy_media.json"}
	l := NewLegacyPlayerConfig(f, LegacyOptions{BaseURI: "https://www.ardmediathek.de"})

	got, err := l.Extract(context.Background(), loadTestPage(t, "legacy_page.html"))
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	wantURLs := []string{"https://www.ardmediathek.de/play/media/49362060?devicetype=pc&features=flash"}
	if diff := cmp.Diff(wantURLs, f.urls); diff != "" {
		t.Errorf("fetched URLs mismatch (-want +got):\n%s", diff)
	}

	want := []media.StreamDescriptor{
		{Server: "rtmp://vod.daserste.de/ardfs/", Path: "mp4:videoportal/mediathek/sportschau/c/1_mid.mp4", Format: media.MP4, Quality: 1},
		{Server: "rtmp://vod.daserste.de/ardfs", Path: "mp4:videoportal/mediathek/sportschau/c/1_hi.mp4", Format: media.MP4, Quality: 2},
		{Path: "https://media.daserste.de/videoportal/Film/c_1/1_lo.mp4", Format: media.MP4, Quality: 0},
		{Path: "https://media.daserste.de/videoportal/Film/c_1/1_hi.mp4", Format: media.MP4, Quality: 2},
		{Path: "https://media.daserste.de/videoportal/Film/c_1/1.wmv", Format: media.WMV, Quality: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}

	for _, d := range got {
		if d.Quality == media.QualityAuto || d.Format == media.HLS {
			t.Errorf("legacy extraction kept adaptive stream %v", d)
		}
	}
	if got[1].ResolvedURI() != "rtmp://vod.daserste.de/ardfs/mp4:videoportal/mediathek/sportschau/c/1_hi.mp4" {
		t.Errorf("two-part URI = %q", got[1].ResolvedURI())
	}
}

func TestLegacyQuality(t *testing.T) {
	tests := []struct {
		raw      string
		want     int
		wantAuto bool
		wantErr  bool
	}{
		{`2`, 2, false, false},
		{`"3"`, 3, false, false},
		{`0`, 0, false, false},
		{`"auto"`, 0, true, false},
		{`-1`, 0, false, true},
		{`"-1"`, 0, false, true},
		{`"hd"`, 0, false, true},
		{`{"bad":true}`, 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, auto, err := legacyQuality(json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("legacyQuality(%s) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want || auto != tt.wantAuto {
				t.Errorf("legacyQuality(%s) = %d, %v; want %d, %v", tt.raw, got, auto, tt.want, tt.wantAuto)
			}
		})
	}
}

func TestLegacyPlayerConfigFetchError(t *testing.T) {
	fetchErr := &httputil.FetchError{URL: "https://www.ardmediathek.de/play/media/49362060", StatusCode: 503}
	l := NewLegacyPlayerConfig(&fixtureFetcher{t: t, err: fetchErr}, LegacyOptions{BaseURI: "https://www.ardmediathek.de"})

	_, err := l.Extract(context.Background(), loadTestPage(t, "legacy_page.html"))
	var fe *httputil.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Extract() error = %v, want *httputil.FetchError", err)
	}
}

func TestLegacyPlayerConfigWithoutMediaURL(t *testing.T) {
	f := &fixtureFetcher{t: t, file: "legacy_media.json"}
	l := NewLegacyPlayerConfig(f, LegacyOptions{BaseURI: "https://www.ardmediathek.de"})

	tests := []struct {
		name string
		page string
	}{
		{"no mcUrl", `<div data-ctrl-player="{&#34;autoplay&#34;:true}"></div>`},
		{"garbage config", `<div data-ctrl-player="not json"></div>`},
		{"marker only in text", `<p>data-ctrl-player</p>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Extract(context.Background(), tt.page)
			if err != nil {
				t.Fatalf("Extract() error: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("Extract() = %v, want none", got)
			}
		})
	}
	if len(f.urls) != 0 {
		t.Errorf("fetched %v, want no secondary fetch", f.urls)
	}
}

func TestLegacyPlayerConfigSkipsTeaserPlayers(t *testing.T) {
	f := &fixtureFetcher{t: t, file: "legacy_media.json"}
	l := NewLegacyPlayerConfig(f, LegacyOptions{BaseURI: "https://www.ardmediathek.de"})

	page := `<div class="teaser" data-ctrl-player="{'autoplay':true}"></div>
<div class="teaser" data-ctrl-player="broken"></div>
<div class="_player" data-ctrl-player="{'mcUrl':'/play/media/49362060'}"></div>`

	got, err := l.Extract(context.Background(), page)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("Extract() returned no candidates")
	}
	want := []string{"https://www.ardmediathek.de/play/media/49362060"}
	if diff := cmp.Diff(want, f.urls); diff != "" {
		t.Errorf("fetched URLs mismatch (-want +got):\n%s", diff)
	}
}

func TestLegacyFormat(t *testing.T) {
	tests := []struct {
		stream string
		want   media.Format
	}{
		{"mp4:videoportal/clip.mp4", media.MP4},
		{"https://media.example.de/clip.mp4?x=1", media.MP4},
		{"https://media.example.de/clip.WMV", media.WMV},
		{"mms://media.example.de/clip.asx", media.WMV},
		{"https://media.example.de/clip.mpg", media.MPG},
		{"https://media.example.de/clip.mpeg", media.MPG},
		{"https://media.example.de/clip", media.MP4},
	}

	for _, tt := range tests {
		t.Run(tt.stream, func(t *testing.T) {
			if got := legacyFormat(tt.stream); got != tt.want {
				t.Errorf("legacyFormat(%q) = %v, want %v", tt.stream, got, tt.want)
			}
		})
	}
}

func TestExtractionError(t *testing.T) {
	inner := errors.New("reference \"x\" not found")
	err := &ExtractionError{Strategy: "embedded-state", Key: "A.mediaCollection", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("ExtractionError does not unwrap")
	}
	if got := err.Error(); got != `embedded-state: A.mediaCollection: reference "x" not found` {
		t.Errorf("Error() = %q", got)
	}
}
