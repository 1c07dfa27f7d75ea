package parsing

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/frahmantamala/expense-assistant/internal/nlp"
)

var (
	months = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
		"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
		"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
	}

	monthDayRe = regexp.MustCompile(`^([a-z]+)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?$`)
	dayMonthRe = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-z]+)(?:,?\s+(\d{4}))?$`)
)

// DateResolver maps date phrases to a calendar day. "Today" is taken in the
// configured location; results are always UTC midnight of the resolved day.
type DateResolver struct {
	loc *time.Location
	now func() time.Time
}

func NewDateResolver(loc *time.Location, now func() time.Time) *DateResolver {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &DateResolver{loc: loc, now: now}
}

// Today returns UTC midnight of the current day in the resolver's location.
func (r *DateResolver) Today() time.Time {
	y, m, d := r.now().In(r.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Resolve tries explicit first, then each DATE entity of doc in order. It
// never fails: anything unparseable resolves to today.
func (r *DateResolver) Resolve(explicit string, doc *nlp.Doc) time.Time {
	today := r.Today()

	if explicit != "" {
		if t, ok := parseDay(explicit, today); ok {
			return t
		}
	}
	if doc != nil {
		for _, ent := range doc.Ents(nlp.LabelDate) {
			if t, ok := parseDay(ent.Text, today); ok {
				return t
			}
		}
	}
	return today
}

// Millis converts a day to milliseconds since the epoch.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

func parseDay(s string, today time.Time) (time.Time, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, false
	}

	switch {
	case strings.Contains(s, "yesterday"):
		return today.AddDate(0, 0, -1), true
	case strings.Contains(s, "today"):
		return today, true
	}

	for _, layout := range []string{"2006-1-2", "1/2/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	if m := monthDayRe.FindStringSubmatch(s); m != nil {
		return buildDay(m[1], m[2], m[3], today)
	}
	if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		return buildDay(m[2], m[1], m[3], today)
	}

	if t, err := dateparse.ParseIn(s, time.UTC); err == nil && t.Year() >= 1900 {
		y, mo, d := t.Date()
		return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func buildDay(monthName, day, year string, today time.Time) (time.Time, bool) {
	if len(monthName) < 3 {
		return time.Time{}, false
	}
	month, ok := months[monthName[:3]]
	if !ok {
		return time.Time{}, false
	}
	if full := strings.ToLower(month.String()); !strings.HasPrefix(full, monthName) && monthName != "sept" {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, false
	}
	y := today.Year()
	if year != "" {
		if y, err = strconv.Atoi(year); err != nil {
			return time.Time{}, false
		}
	}
	t := time.Date(y, month, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}
