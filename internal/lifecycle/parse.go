package lifecycle

import (
	"strconv"
	"strings"
	"time"
)

// timeLayouts are the accepted input formats. Values without a zone are
// taken as UTC.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parses a client-supplied instant such as an expiry or a listing
// bound. An empty value yields nil.
func ParseTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, invalid("invalid time %q", s)
}

// ParseBool parses a client-supplied boolean flag. Besides the forms accepted
// by strconv.ParseBool it understands "on" and "off" from HTML checkboxes.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "yes":
		return true, nil
	case "off", "no", "":
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, invalid("invalid boolean %q", s)
	}
	return b, nil
}
