// file: internal/ratelimit/quota.go
// version: 1.0.0
// guid: 9e4f7a21-3c85-4d60-b1f9-8a2e6c5d0b37

package ratelimit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Quota is a parsed rate-limit quota: Count admissions per Window.
// Quota strings like "10 per minute" are parsed once at configuration
// time, never per request.
type Quota struct {
	Count  int
	Window time.Duration
}

// String renders the quota in the same grammar ParseQuota reads, so
// Quota -> String -> ParseQuota round-trips.
func (q Quota) String() string {
	units := []struct {
		name string
		d    time.Duration
	}{
		{"day", 24 * time.Hour},
		{"hour", time.Hour},
		{"minute", time.Minute},
		{"second", time.Second},
	}
	for _, unit := range units {
		if q.Window < unit.d || q.Window%unit.d != 0 {
			continue
		}
		if n := int(q.Window / unit.d); n > 1 {
			return fmt.Sprintf("%d per %d %ss", q.Count, n, unit.name)
		}
		return fmt.Sprintf("%d per %s", q.Count, unit.name)
	}
	// Sub-second windows cannot come from ParseQuota.
	return fmt.Sprintf("%d per %s", q.Count, q.Window)
}

var unitDurations = map[string]time.Duration{
	"second":  time.Second,
	"seconds": time.Second,
	"minute":  time.Minute,
	"minutes": time.Minute,
	"hour":    time.Hour,
	"hours":   time.Hour,
	"day":     24 * time.Hour,
	"days":    24 * time.Hour,
}

// ParseQuota parses a textual quota such as "10 per minute" or
// "1 per 5 minutes" into a structured Quota.
func ParseQuota(s string) (Quota, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	if len(fields) < 3 || len(fields) > 4 || fields[1] != "per" {
		return Quota{}, fmt.Errorf("invalid quota %q: want \"<count> per [multiplier] <unit>\"", s)
	}

	count, err := strconv.Atoi(fields[0])
	if err != nil || count < 1 {
		return Quota{}, fmt.Errorf("invalid quota %q: count must be a positive integer", s)
	}

	multiplier := 1
	unitField := fields[2]
	if len(fields) == 4 {
		multiplier, err = strconv.Atoi(fields[2])
		if err != nil || multiplier < 1 {
			return Quota{}, fmt.Errorf("invalid quota %q: window multiplier must be a positive integer", s)
		}
		unitField = fields[3]
	}

	unit, ok := unitDurations[unitField]
	if !ok {
		return Quota{}, fmt.Errorf("invalid quota %q: unknown unit %q", s, unitField)
	}

	return Quota{Count: count, Window: time.Duration(multiplier) * unit}, nil
}

// MustParseQuota is like ParseQuota but panics on error. For statically
// declared route quotas, where a bad string is a programming error.
func MustParseQuota(s string) Quota {
	q, err := ParseQuota(s)
	if err != nil {
		panic(err)
	}
	return q
}
