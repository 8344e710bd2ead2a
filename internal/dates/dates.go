// Package dates normalizes the heterogeneous date representations found in
// portfolio spreadsheets (serial day counts, several textual layouts, parsed
// timestamps) into one canonical YYYY-MM-DD form, and computes day offsets
// from a reference day.
package dates

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// CanonicalLayout is the canonical calendar-date form used everywhere in the
// portfolio: zero-padded YYYY-MM-DD.
const CanonicalLayout = "2006-01-02"

var (
	isoPattern       = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	dayFirstPattern  = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
	shortYearPattern = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2})$`)
)

// Normalize converts a raw cell value to the canonical YYYY-MM-DD form.
// It accepts time.Time values, numeric spreadsheet serials, and text in
// YYYY-M-D, D/M/YYYY, D-M-YYYY or two-digit-year variants. Anything else
// yields the empty string; Normalize never fails.
func Normalize(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(CanonicalLayout)
	case *time.Time:
		if v == nil || v.IsZero() {
			return ""
		}
		return v.Format(CanonicalLayout)
	case int:
		return FromSerial(float64(v))
	case int32:
		return FromSerial(float64(v))
	case int64:
		return FromSerial(float64(v))
	case float32:
		return FromSerial(float64(v))
	case float64:
		return FromSerial(v)
	case string:
		return normalizeText(v)
	default:
		return ""
	}
}

// FromSerial converts a spreadsheet serial day count to the canonical form.
// Serials below 60 count from 1899-12-31; 60 and above count from 1899-12-30,
// which absorbs the phantom 1900-02-29 of the original Lotus epoch.
func FromSerial(serial float64) string {
	if math.IsNaN(serial) || math.IsInf(serial, 0) {
		return ""
	}
	days := int(math.Round(serial))
	if days <= 0 {
		return ""
	}

	epoch := time.Date(1899, time.December, 31, 0, 0, 0, 0, time.UTC)
	if days >= 60 {
		epoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
	}
	return epoch.AddDate(0, 0, days).Format(CanonicalLayout)
}

func normalizeText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	// Drop time-of-day suffixes ("2026-02-24T00:00:00", "24/02/2026 10:15").
	s = strings.SplitN(s, "T", 2)[0]
	s = strings.SplitN(s, " ", 2)[0]

	if m := isoPattern.FindStringSubmatch(s); m != nil {
		return pad(m[1], m[2], m[3])
	}

	if m := dayFirstPattern.FindStringSubmatch(s); m != nil {
		return pad(m[3], m[2], m[1])
	}

	if m := shortYearPattern.FindStringSubmatch(s); m != nil {
		return pad(expandYear(m[3]), m[2], m[1])
	}

	return ""
}

// expandYear maps a two-digit year: 69 and below to the 2000s, the rest to
// the 1900s.
func expandYear(yy string) string {
	n := 0
	for _, r := range yy {
		n = n*10 + int(r-'0')
	}
	if n <= 69 {
		return fmt.Sprintf("20%02d", n)
	}
	return fmt.Sprintf("19%02d", n)
}

func pad(year, month, day string) string {
	return year + "-" + pad2(month) + "-" + pad2(day)
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// DaysFrom returns the signed day offset between the canonical date and the
// calendar day of now, positive meaning future. The second return value is
// false when the input is empty or is not a real calendar date.
func DaysFrom(now time.Time, canonical string) (int, bool) {
	if canonical == "" {
		return 0, false
	}

	t, err := time.ParseInLocation(CanonicalLayout, canonical, now.Location())
	if err != nil {
		return 0, false
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	target := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())

	return int(math.Round(target.Sub(today).Hours() / 24)), true
}

// DaysFromToday is DaysFrom anchored at the current local day.
func DaysFromToday(canonical string) (int, bool) {
	return DaysFrom(time.Now(), canonical)
}
