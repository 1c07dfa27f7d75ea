package parsing

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Period is a closed range of whole days, both ends in UTC.
type Period struct {
	Start time.Time
	End   time.Time
	// Label is the human readable name shown in replies.
	Label string
	// Key is a filename-safe identifier.
	Key string
}

func (p Period) StartMillis() int64 { return p.Start.UnixMilli() }
func (p Period) EndMillis() int64   { return p.End.UnixMilli() }

const (
	PeriodThisMonth = "this month"
	PeriodLastMonth = "last month"
)

var (
	monthYearRe  = regexp.MustCompile(`^([a-z]+)\s+(\d{4})$`)
	isoMonthRe   = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
	slashMonthRe = regexp.MustCompile(`^(\d{1,2})/(\d{4})$`)
	keySanitizer = regexp.MustCompile(`[^A-Za-z0-9_-]`)
)

// ParsePeriod understands "this month", "last month", "October 2023",
// "October", "2023-10" and "10/2023". Anything else yields this month with
// ok false.
func ParsePeriod(s string, today time.Time) (Period, bool) {
	raw := strings.TrimSpace(s)
	norm := strings.ToLower(collapse(raw))

	switch norm {
	case "", PeriodThisMonth:
		p := monthPeriod(today.Year(), today.Month())
		p.Label = "This Month (" + p.Label + ")"
		p.Key = p.Start.Format("2006-01") + "_this_month"
		return p, norm != ""
	case PeriodLastMonth:
		prev := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		p := monthPeriod(prev.Year(), prev.Month())
		p.Label = "Last Month (" + p.Label + ")"
		p.Key = p.Start.Format("2006-01") + "_last_month"
		return p, true
	}

	year, month, ok := parseMonthSpec(norm, today)
	if !ok {
		p, _ := ParsePeriod(PeriodThisMonth, today)
		return p, false
	}
	p := monthPeriod(year, month)
	p.Key = keySanitizer.ReplaceAllString(strings.ReplaceAll(strings.ReplaceAll(raw, " ", "_"), "/", "-"), "")
	return p, true
}

// IsPeriod reports whether s is a recognized period phrase.
func IsPeriod(s string, today time.Time) bool {
	_, ok := ParsePeriod(s, today)
	return ok
}

func parseMonthSpec(s string, today time.Time) (int, time.Month, bool) {
	if m := monthYearRe.FindStringSubmatch(s); m != nil {
		month, ok := monthByName(m[1])
		if !ok {
			return 0, 0, false
		}
		y, _ := strconv.Atoi(m[2])
		return y, month, true
	}
	if month, ok := monthByName(s); ok {
		return today.Year(), month, true
	}
	if m := isoMonthRe.FindStringSubmatch(s); m != nil {
		return yearMonth(m[1], m[2])
	}
	if m := slashMonthRe.FindStringSubmatch(s); m != nil {
		return yearMonth(m[2], m[1])
	}
	return 0, 0, false
}

func yearMonth(year, month string) (int, time.Month, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return 0, 0, false
	}
	return y, time.Month(m), true
}

// monthByName accepts full English month names and three letter
// abbreviations.
func monthByName(name string) (time.Month, bool) {
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		if name == full || name == full[:3] {
			return m, true
		}
	}
	return 0, false
}

func monthPeriod(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return Period{
		Start: start,
		End:   end,
		Label: start.Format("January 2006"),
		Key:   start.Format("2006-01"),
	}
}
