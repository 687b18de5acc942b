package cache

import (
	"fmt"
	"strconv"
	"time"
)

// TTL and capacity defaults.
const (
	// DefaultTTL is applied when Set is called without an explicit TTL.
	DefaultTTL = 5 * time.Minute

	// MinTTL is the smallest TTL accepted from configuration.
	MinTTL = time.Millisecond

	// MaxTTL is the largest TTL accepted from configuration (7 days).
	MaxTTL = 7 * 24 * time.Hour

	// DefaultMaxItems is the default soft cap on distinct keys.
	DefaultMaxItems = 100

	// DefaultNamespace is the logical name of the persisted blob.
	DefaultNamespace = "storecache"

	// minutesPerHour is used for duration formatting calculations.
	minutesPerHour = 60

	// hoursPerDay is used for duration formatting calculations.
	hoursPerDay = 24
)

// ErrInvalidTTL is returned for TTLs outside [MinTTL, MaxTTL].
var ErrInvalidTTL = fmt.Errorf("TTL must be between %s and %s", MinTTL, FormatDuration(MaxTTL))

// ValidateTTL returns ErrInvalidTTL when d is outside the accepted range.
func ValidateTTL(d time.Duration) error {
	if d < MinTTL || d > MaxTTL {
		return fmt.Errorf("%w: got %s", ErrInvalidTTL, d)
	}
	return nil
}

// ParseTTL parses a TTL string in either form:
// - Integer milliseconds: "1500".
// - Duration string: "5m", "1h30m", "250ms".
func ParseTTL(s string) (time.Duration, error) {
	if millis, err := strconv.ParseInt(s, 10, 64); err == nil {
		d := time.Duration(millis) * time.Millisecond
		if validateErr := ValidateTTL(d); validateErr != nil {
			return 0, validateErr
		}
		return d, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid TTL format: %w", err)
	}
	if validateErr := ValidateTTL(d); validateErr != nil {
		return 0, validateErr
	}
	return d, nil
}

// FormatDuration formats a duration in a human-readable way.
// Examples: "250ms", "30s", "5m", "2h30m", "3d2h".
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < hoursPerDay*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, hours)
}
