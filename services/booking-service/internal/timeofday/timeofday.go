// Package timeofday does minute-granularity wall-clock arithmetic: "HH:MM"
// strings, minutes since local midnight, and civil dates anchored in a seller's
// time zone.
//
// Minute values never wrap. Blocks and appointments are assumed not to cross
// midnight, so a block whose end is not after its start is rejected by callers.
package timeofday

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
)

const MinutesPerDay = 24 * 60

// FormatError reports a malformed "HH:MM" value. It matches model.ErrValidation.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid time %q: %s", e.Input, e.Reason)
}

func (e *FormatError) Unwrap() error { return model.ErrValidation }

// Parse converts "HH:MM" (24h) into minutes since midnight, 0..1439.
func Parse(s string) (int, error) {
	h, m, err := split(s)
	if err != nil {
		return 0, err
	}
	if h > 23 {
		return 0, &FormatError{Input: s, Reason: "hour out of range"}
	}
	return h*60 + m, nil
}

// ParseBoundary is Parse plus "24:00", the end of a block that runs to midnight.
func ParseBoundary(s string) (int, error) {
	h, m, err := split(s)
	if err != nil {
		return 0, err
	}
	if h == 24 && m == 0 {
		return MinutesPerDay, nil
	}
	if h > 23 {
		return 0, &FormatError{Input: s, Reason: "hour out of range"}
	}
	return h*60 + m, nil
}

func split(s string) (int, int, error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, &FormatError{Input: s, Reason: "missing colon"}
	}
	if len(hs) == 0 || len(hs) > 2 || len(ms) != 2 {
		return 0, 0, &FormatError{Input: s, Reason: "expected HH:MM"}
	}
	h, err := digits(hs)
	if err != nil {
		return 0, 0, &FormatError{Input: s, Reason: "hour is not numeric"}
	}
	m, err := digits(ms)
	if err != nil {
		return 0, 0, &FormatError{Input: s, Reason: "minute is not numeric"}
	}
	if m > 59 {
		return 0, 0, &FormatError{Input: s, Reason: "minute out of range"}
	}
	return h, m, nil
}

// digits rejects signs and spaces that strconv.Atoi would let through.
func digits(s string) (int, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

// Format renders minutes since midnight as zero-padded "HH:MM". Values past
// the end of the day render as the next day's clock time.
func Format(minutes int) string {
	if minutes == MinutesPerDay {
		return "24:00"
	}
	minutes %= MinutesPerDay
	if minutes < 0 {
		minutes += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func AddMinutes(minutes, delta int) int {
	return minutes + delta
}
