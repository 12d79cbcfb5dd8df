package rootshrink

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// sizePattern matches a human size string: a number with an optional
// fractional part, an optional binary unit, and an optional trailing B.
var sizePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([KMGT]?)B?$`)

var unitMultipliers = map[string]int64{
	"":  1,
	"K": KB,
	"M": MB,
	"G": GB,
	"T": TB,
}

// ParseSize parses a human size string such as "8G" or "512M" into a byte
// count. Units are binary (1024-based) and case-insensitive; a fractional
// number is truncated to whole bytes.
func ParseSize(s string) (int64, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	m := sizePattern.FindStringSubmatch(normalized)
	if m == nil {
		return 0, NewParseError(s, "expected <number>[.<fraction>][K|M|G|T][B]")
	}
	number, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, NewParseError(s, err.Error())
	}
	multiplier, ok := unitMultipliers[m[2]]
	if !ok {
		return 0, NewParseError(s, fmt.Sprintf("unknown unit %q", m[2]))
	}
	return int64(number * float64(multiplier)), nil
}

// FormatSize renders a byte count as a human size string. Exact binary
// multiples round-trip through ParseSize.
func FormatSize(n int64) string {
	type unit struct {
		suffix     string
		multiplier int64
	}
	units := []unit{
		{"T", TB},
		{"G", GB},
		{"M", MB},
		{"K", KB},
	}
	for _, u := range units {
		if n >= u.multiplier {
			if n%u.multiplier == 0 {
				return fmt.Sprintf("%d%s", n/u.multiplier, u.suffix)
			}
			return fmt.Sprintf("%.1f%s", float64(n)/float64(u.multiplier), u.suffix)
		}
	}
	return fmt.Sprintf("%dB", n)
}

// ValidateRootSize enforces the root-size policy bound, inclusive on both
// ends.
func ValidateRootSize(size int64) error {
	if size < MinRootSize {
		return NewPolicyError("root size must be at least %s", FormatSize(MinRootSize))
	}
	if size > MaxRootSize {
		return NewPolicyError("root size must not exceed %s", FormatSize(MaxRootSize))
	}
	return nil
}
