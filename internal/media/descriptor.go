package media

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// StreamDescriptor is one candidate stream found on a page.
// Legacy pages split the location into a server and a path part (e.g. an RTMP
// application URL and a stream name); plain HTTP streams only use Path.
type StreamDescriptor struct {
	Server  string
	Path    string
	Format  Format
	Quality int
}

// ResolvedURI joins Server and Path.
func (d StreamDescriptor) ResolvedURI() string {
	if d.Server == "" {
		return d.Path
	}
	if d.Path == "" || strings.HasSuffix(d.Server, "/") || strings.HasPrefix(d.Path, "/") {
		return d.Server + d.Path
	}
	return d.Server + "/" + d.Path
}

// Scheme returns the lower-cased scheme of the resolved URI, or "" if it has none.
func (d StreamDescriptor) Scheme() string {
	u, err := url.Parse(d.ResolvedURI())
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// Validate checks that the resolved URI is an absolute URI.
func (d StreamDescriptor) Validate() error {
	raw := d.ResolvedURI()
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed stream URI %q: %w", raw, err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("stream URI %q has no scheme", raw)
	}
	if u.Host == "" && u.Opaque == "" {
		return fmt.Errorf("stream URI %q has no host", raw)
	}
	return nil
}

// QualityLabel returns "auto" for adaptive streams and the number otherwise.
func (d StreamDescriptor) QualityLabel() string {
	if d.Quality == QualityAuto {
		return "auto"
	}
	return strconv.Itoa(d.Quality)
}

func (d StreamDescriptor) String() string {
	return fmt.Sprintf("%s/%s %s", d.Format, d.QualityLabel(), d.ResolvedURI())
}
