package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Field names reported by ValidationError.
const (
	FieldDay      = "day"
	FieldTime     = "time"
	FieldInterval = "interval"
	FieldName     = "name"
)

// A ValidationError describes which part of a reminder request was
// rejected. The Reason is worded for the end user and reported verbatim.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Weekday name stems the bot understands. A token is a stem optionally
// followed by "day" or "days": "mon", "monday", "mondays", "sat",
// "saturdays", "thurs", ...
var weekdayStems = map[string]time.Weekday{
	"mon":    time.Monday,
	"tues":   time.Tuesday,
	"wed":    time.Wednesday,
	"wednes": time.Wednesday,
	"thur":   time.Thursday,
	"thurs":  time.Thursday,
	"fri":    time.Friday,
	"sat":    time.Saturday,
	"satur":  time.Saturday,
	"sun":    time.Sunday,
}

// Parse validates the raw day, time and interval tokens of a /remindme
// request plus the reminder name, and builds a Spec.
//
// A weekday token ending in "s" means the reminder repeats weekly; the
// singular form fires once. That trailing-s convention is the user-facing
// contract and is matched exactly, so "thurs" repeats while "thur" does
// not. "daily" repeats every day, "today" fires once.
func Parse(day, at, interval, name string) (Spec, error) {
	var s Spec
	var err error

	s.Hour, s.Minute, err = parseTime(at)
	if err != nil {
		return Spec{}, err
	}

	s.Interval, err = parseInterval(interval)
	if err != nil {
		return Spec{}, err
	}

	if strings.TrimSpace(name) == "" {
		return Spec{}, invalid(FieldName, "the reminder needs to have a name")
	}

	switch tok := strings.ToLower(strings.TrimSpace(day)); tok {
	case "":
		return Spec{}, invalid(FieldDay, "day has not been defined")
	case "today":
		s.Rule = Today
	case "daily":
		s.Rule = Daily
	default:
		wd, ok := matchWeekday(tok)
		if !ok {
			return Spec{}, invalid(FieldDay, "day was not valid, must be a week day, today, or daily")
		}
		s.Weekday = wd
		if strings.HasSuffix(tok, "s") {
			s.Rule = WeekdayRecurring
		} else {
			s.Rule = WeekdaySingle
		}
	}

	return s, nil
}

func matchWeekday(tok string) (time.Weekday, bool) {
	stem := tok
	if strings.HasSuffix(tok, "days") {
		stem = tok[:len(tok)-4]
	} else if strings.HasSuffix(tok, "day") {
		stem = tok[:len(tok)-3]
	}

	wd, ok := weekdayStems[stem]
	return wd, ok
}

// parseTime accepts 24-hour "HH:MM" and "HHMM" forms. Leading zeros are
// dropped by the int conversion, which keeps the stored form canonical.
func parseTime(at string) (int, int, error) {
	at = strings.TrimSpace(at)

	var hh, mm string
	switch i := strings.IndexByte(at, ':'); {
	case i >= 0:
		hh, mm = at[:i], at[i+1:]
	case len(at) == 4:
		hh, mm = at[:2], at[2:]
	case len(at) == 3:
		hh, mm = at[:1], at[1:]
	default:
		return 0, 0, invalid(FieldTime, "time must be in the format HH:MM")
	}

	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, invalid(FieldTime, "hour is not valid, must be a value between 0 and 23")
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, invalid(FieldTime, "minute is not valid, must be a value between 0 and 59")
	}

	return hour, minute, nil
}

func parseInterval(interval string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(interval))
	if err != nil || n < 1 || n > 59 {
		return 0, invalid(FieldInterval, "interval is not valid, must be a number of minutes between 1 and 59")
	}
	return n, nil
}
