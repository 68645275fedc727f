package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationPattern = regexp.MustCompile(`^([0-9]+)([dwm])$`)

// Days per duration unit. A month is a flat 30 days.
var unitDays = map[string]int{
	"d": 1,
	"w": 7,
	"m": 30,
}

// maxDurationDays keeps AddDate far away from overflow.
const maxDurationDays = 1_000_000

// ParseDuration turns a token such as "7d", "2w" or "3m" into the instant
// that many days after now. The match is case-insensitive and must cover
// the whole token.
func ParseDuration(token string, now time.Time) (time.Time, error) {
	match := durationPattern.FindStringSubmatch(strings.ToLower(token))
	if match == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDuration, token)
	}

	amount, err := strconv.Atoi(match[1])
	if err != nil || amount <= 0 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDuration, token)
	}

	perUnit := unitDays[match[2]]
	if amount > maxDurationDays/perUnit {
		return time.Time{}, fmt.Errorf("%w: %q is too long", ErrInvalidDuration, token)
	}

	return now.AddDate(0, 0, amount*perUnit), nil
}
