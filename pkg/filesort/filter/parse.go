package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Calendar approximations used by age selection.
const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 30 * Day
	Year  = 365 * Day
)

var (
	// ErrInvalidDuration indicates that an age string could not be parsed.
	ErrInvalidDuration = errors.New("invalid duration format")

	// ErrNegativeValue indicates that a negative age was given.
	ErrNegativeValue = errors.New("value cannot be negative")
)

// calendarUnits are the suffixes time.ParseDuration does not know.
var calendarUnits = map[string]time.Duration{
	"d":  Day,
	"w":  Week,
	"mo": Month,
	"y":  Year,
}

var calendarPattern = regexp.MustCompile(`(?i)^([0-9]+(?:\.[0-9]+)?)\s*(mo|d|w|y)$`)

// ParseDuration parses an age such as "30d", "2w", "6mo", "1.5y" or any
// string accepted by time.ParseDuration ("36h", "1h30m"). Units are case
// insensitive.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return 0, fmt.Errorf("%w: empty string", ErrInvalidDuration)
	case strings.HasPrefix(s, "-"):
		return 0, fmt.Errorf("%w: %q", ErrNegativeValue, s)
	}

	if m := calendarPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
		return time.Duration(n * float64(calendarUnits[strings.ToLower(m[2])])), nil
	}

	d, err := time.ParseDuration(strings.ToLower(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	return d, nil
}
