package market

import "time"

// Hours describes a daily trading window, weekdays only.
type Hours struct {
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
	Location    *time.Location
}

// RegularUS is the regular US equity session, 09:30-16:00 New York time.
func RegularUS() Hours {
	return Hours{OpenHour: 9, OpenMinute: 30, CloseHour: 16, Location: newYork()}
}

// ExtendedUS covers pre- and post-market, 04:00-20:00 New York time.
func ExtendedUS() Hours {
	return Hours{OpenHour: 4, CloseHour: 20, Location: newYork()}
}

func newYork() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}

// Contains reports whether t falls inside the trading window.
func (h Hours) Contains(t time.Time) bool {
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	open := time.Date(t.Year(), t.Month(), t.Day(), h.OpenHour, h.OpenMinute, 0, 0, loc)
	close := time.Date(t.Year(), t.Month(), t.Day(), h.CloseHour, h.CloseMinute, 0, 0, loc)
	return !t.Before(open) && !t.After(close)
}
