package scrape

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Danish month names, full form only. Used for day-header labels.
var monthsFull = map[string]time.Month{
	"januar": time.January, "februar": time.February, "marts": time.March,
	"april": time.April, "maj": time.May, "juni": time.June,
	"juli": time.July, "august": time.August, "september": time.September,
	"oktober": time.October, "november": time.November, "december": time.December,
}

// Abbreviated and full Danish month names. Used for the looser date
// fragments found in listing cards and detail-page prose.
var monthsShort = map[string]time.Month{
	"jan": time.January, "januar": time.January,
	"feb": time.February, "februar": time.February,
	"mar": time.March, "marts": time.March,
	"apr": time.April, "april": time.April,
	"maj": time.May,
	"jun": time.June, "juni": time.June,
	"jul": time.July, "juli": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "september": time.September,
	"okt": time.October, "oktober": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var weekdayNames = []string{"Mandag", "Tirsdag", "Onsdag", "Torsdag", "Fredag", "Lørdag", "Søndag"}

var monthNames = []string{
	"januar", "februar", "marts", "april", "maj", "juni",
	"juli", "august", "september", "oktober", "november", "december",
}

var dayLabelRe = regexp.MustCompile(`(?i)^(mandag|tirsdag|onsdag|torsdag|fredag|lørdag|søndag)\s+(\d{1,2})\.\s*(\p{L}+)`)

// IsoFromLabel recovers a concrete calendar date from a day-header label
// such as "Mandag 3. marts". Returns "" when the label does not parse or
// names an invalid calendar date.
func IsoFromLabel(label string, year int) string {
	m := dayLabelRe.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return ""
	}
	day, err := strconv.Atoi(m[2])
	if err != nil {
		return ""
	}
	mon, ok := monthsFull[strings.ToLower(m[3])]
	if !ok {
		return ""
	}
	return isoDate(year, mon, day)
}

// isoDate validates the calendar date before formatting it; time.Date
// normalizes out-of-range days, so a changed month or day means the input
// was invalid.
func isoDate(year int, mon time.Month, day int) string {
	d := time.Date(year, mon, day, 0, 0, 0, 0, time.UTC)
	if d.Month() != mon || d.Day() != day {
		return ""
	}
	return d.Format("2006-01-02")
}

// WeekdayLabel renders an ISO date back into the origin site's day-header
// form, with the weekday derived server-side rather than trusted from the page.
func WeekdayLabel(iso string) string {
	d, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	idx := (int(d.Weekday()) + 6) % 7 // Monday-first
	return fmt.Sprintf("%s %d. %s", weekdayNames[idx], d.Day(), monthNames[int(d.Month())-1])
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
