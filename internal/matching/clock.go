package matching

import (
	"strconv"
	"strings"
)

// ParseClockTime parses "HH:MM", "HH:MM:SS", optionally suffixed with AM/PM
// (with or without a space), into minutes since midnight. Returns false for
// anything it cannot parse; callers treat those legs as untimed.
func ParseClockTime(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	upper := strings.ToUpper(s)
	meridiem := ""
	for _, suffix := range []string{"AM", "PM"} {
		if strings.HasSuffix(upper, suffix) {
			meridiem = suffix
			s = strings.TrimSpace(s[:len(s)-len(suffix)])
			break
		}
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, false
	}

	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, false
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, false
	}
	if len(parts) == 3 {
		if _, err := strconv.Atoi(strings.TrimSpace(parts[2])); err != nil {
			return 0, false
		}
	}

	if minute < 0 || minute > 59 {
		return 0, false
	}

	switch meridiem {
	case "AM":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour < 0 || hour > 23 {
			return 0, false
		}
	}

	return hour*60 + minute, true
}
