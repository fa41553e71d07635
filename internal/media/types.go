// Package media defines the value types shared by the resolution pipeline.
package media

import (
	"fmt"
	"strings"
	"time"
)

// Format is the container/protocol family of a stream.
type Format int

const (
	MP4 Format = iota
	HLS
	WMV
	MPG
)

func (f Format) String() string {
	switch f {
	case MP4:
		return "MP4"
	case HLS:
		return "HLS"
	case WMV:
		return "WMV"
	case MPG:
		return "MPG"
	default:
		return "unknown"
	}
}

// ParseFormat maps a format name (case-insensitive) to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MP4":
		return MP4, nil
	case "HLS":
		return HLS, nil
	case "WMV":
		return WMV, nil
	case "MPG", "MPEG":
		return MPG, nil
	default:
		return 0, fmt.Errorf("unknown format %q", s)
	}
}

// MarshalText renders the format name.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText accepts any name ParseFormat does.
func (f *Format) UnmarshalText(text []byte) error {
	v, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// QualityAuto marks an adaptive stream. It outranks every explicit quality of
// the same format.
const QualityAuto = -1

// VideoItem is the outcome of a successful resolution.
type VideoItem struct {
	PageURL     string     `json:"page_url"`
	StreamURI   string     `json:"stream_uri"`
	Format      Format     `json:"format"`
	Quality     int        `json:"quality"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Published   *time.Time `json:"published,omitempty"` // nil when the page carries no usable publish date
	Duration    int        `json:"duration"`            // seconds, 0 when unknown
	Thumbnail   string     `json:"thumbnail,omitempty"`
}

// HistoryEntry is one recorded resolution.
type HistoryEntry struct {
	PageURL    string    `json:"page_url"`
	Title      string    `json:"title"`
	StreamURI  string    `json:"stream_uri"`
	Format     Format    `json:"format"`
	Quality    int       `json:"quality"`
	ResolvedAt time.Time `json:"resolved_at"`
}
