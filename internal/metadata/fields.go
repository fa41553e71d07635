package metadata

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	ErrNoDate     = errors.New("no publish date")
	ErrNoDuration = errors.New("no duration")
)

var (
	datePattern = regexp.MustCompile(`(\d{2}\.\d{2}\.\d{4})`)
	timePattern = regexp.MustCompile(`(\d{2}):(\d{2})\s*Uhr`)

	clockOnlyPattern = regexp.MustCompile(`^\s*(?:(\d{1,2}):)?(\d{1,3}):([0-5]\d)\s*$`)
	clockMinPattern  = regexp.MustCompile(`(?:(\d{1,2}):)?(\d{1,3}):([0-5]\d)\s*Min`)
	minutesPattern   = regexp.MustCompile(`(\d+)\s*Min\.?`)
)

// ParsePublished finds a DD.MM.YYYY date in text and, if present, an
// "HH:MM Uhr" time of day. Without a time the result is midnight.
func ParsePublished(text string, loc *time.Location) (*time.Time, error) {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return nil, ErrNoDate
	}
	t, err := time.ParseInLocation("02.01.2006", m[1], loc)
	if err != nil {
		return nil, fmt.Errorf("parsing date %q: %w", m[1], err)
	}

	if tm := timePattern.FindStringSubmatch(text); tm != nil {
		hour, _ := strconv.Atoi(tm[1])
		minute, _ := strconv.Atoi(tm[2])
		if hour < 24 && minute < 60 {
			t = time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, loc)
		}
	}
	return &t, nil
}

// ParseDuration reads a duration in seconds from "MM:SS", "H:MM:SS",
// "MM:SS Min." or "N Min." notation.
func ParseDuration(text string) (int, error) {
	if m := clockOnlyPattern.FindStringSubmatch(text); m != nil {
		return clockSeconds(m), nil
	}
	if m := clockMinPattern.FindStringSubmatch(text); m != nil {
		return clockSeconds(m), nil
	}
	if m := minutesPattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("parsing minutes %q: %w", m[1], err)
		}
		return n * 60, nil
	}
	if text == "" {
		return 0, ErrNoDuration
	}
	return 0, fmt.Errorf("%w in %q", ErrNoDuration, text)
}

func clockSeconds(m []string) int {
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	return h*3600 + min*60 + sec
}
