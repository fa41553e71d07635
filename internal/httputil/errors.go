package httputil

import "fmt"

// FetchError reports a failed page or document fetch. It is fatal to the
// resolution that triggered it.
type FetchError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetching %s failed", e.URL)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
