package normalizer

import (
	"regexp"
	"strconv"
	"time"

	"adledger/internal/core/domain"
)

// Campaign names frequently carry the flight dates, e.g.
// "Black Friday 19/09 - 23/09". Both tokens are DD/MM.
var nameDateRange = regexp.MustCompile(`(\d{1,2})/(\d{1,2})\s*-\s*(\d{1,2})/(\d{1,2})`)

// resolveDuration applies the duration fallback chain: explicit
// timestamps, then a date range parsed from the campaign name, then the
// configured default. The first rule that yields a value wins.
func (n *Normalizer) resolveDuration(snap domain.CampaignSnapshot, now time.Time) int {
	if d, ok := durationFromTimestamps(snap); ok {
		return d
	}
	if d, ok := durationFromName(snap, now); ok {
		return d
	}
	return n.cfg.DefaultDurationDays
}

// durationFromTimestamps returns the inclusive day span between the
// start and stop timestamps.
func durationFromTimestamps(snap domain.CampaignSnapshot) (int, bool) {
	if snap.StartTime == nil || snap.StopTime == nil {
		return 0, false
	}
	if snap.StopTime.Before(*snap.StartTime) {
		return 0, false
	}
	return daysBetween(*snap.StartTime, *snap.StopTime) + 1, true
}

// durationFromName parses two DD/MM tokens out of the campaign name. The
// year is anchored to the campaign's created or start timestamp, falling
// back to the current year; a range that wraps past year end rolls the
// second date into the next year.
func durationFromName(snap domain.CampaignSnapshot, now time.Time) (int, bool) {
	m := nameDateRange.FindStringSubmatch(snap.Name)
	if m == nil {
		return 0, false
	}
	d1, _ := strconv.Atoi(m[1])
	m1, _ := strconv.Atoi(m[2])
	d2, _ := strconv.Atoi(m[3])
	m2, _ := strconv.Atoi(m[4])
	if !validDayMonth(d1, m1) || !validDayMonth(d2, m2) {
		return 0, false
	}

	year := now.Year()
	switch {
	case snap.CreatedTime != nil:
		year = snap.CreatedTime.Year()
	case snap.StartTime != nil:
		year = snap.StartTime.Year()
	}

	start := time.Date(year, time.Month(m1), d1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.Month(m2), d2, 0, 0, 0, 0, time.UTC)
	if end.Before(start) {
		end = end.AddDate(1, 0, 0)
	}
	return daysBetween(start, end) + 1, true
}

func validDayMonth(day, month int) bool {
	return day >= 1 && day <= 31 && month >= 1 && month <= 12
}

// daysBetween counts whole calendar days from a to b, ignoring the time
// of day on either side.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	a0 := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	b0 := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(b0.Sub(a0).Hours() / 24)
}
