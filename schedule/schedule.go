package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrBadCron reports a persisted cron expression that no longer parses.
// It indicates a corrupted record or a logic defect, not user error.
var ErrBadCron = errors.New("invalid cron expression")

// DefaultInterval is the nag cadence used when a reminder's stored
// interval turns out to be unschedulable at fire time.
const DefaultInterval = 5

// Rule tells on which days a reminder fires.
type Rule int

const (
	Today Rule = iota // once, the next time the clock reaches the time of day
	Daily             // every day
	WeekdaySingle     // once, on the next occurrence of Weekday
	WeekdayRecurring  // every week on Weekday
)

// A Spec is a validated reminder schedule. It is immutable once built by
// Parse or ParseCron.
type Spec struct {
	Hour     int
	Minute   int
	Rule     Rule
	Weekday  time.Weekday // meaningful for WeekdaySingle and WeekdayRecurring only
	Interval int          // minutes between nags after the primary fire, 1-59
}

// Recurring is derived from the rule alone; it is never stored separately.
func (s Spec) Recurring() bool {
	return s.Rule == Daily || s.Rule == WeekdayRecurring
}

// DayToken returns the day-of-week field of the cron representation:
// "*" for Today and Daily, a three-letter weekday abbreviation otherwise.
func (s Spec) DayToken() string {
	switch s.Rule {
	case Today, Daily:
		return "*"
	default:
		return strings.ToLower(s.Weekday.String()[:3])
	}
}

// CronString renders the five-field recurring expression persisted with
// every reminder: "minute hour * * dayToken".
func (s Spec) CronString() string {
	return fmt.Sprintf("%d %d * * %s", s.Minute, s.Hour, s.DayToken())
}

// IntervalOK reports whether the nag interval would form a schedulable
// "*/N * * * *" expression.
func (s Spec) IntervalOK() bool {
	return s.Interval >= 1 && s.Interval <= 59
}

// Next computes the first fire instant strictly after now. The civil
// time-of-day is interpreted in now's location.
func (s Spec) Next(now time.Time) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), s.Hour, s.Minute, 0, 0, now.Location())

	switch s.Rule {
	case Today, Daily:
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
	default:
		days := (int(s.Weekday) - int(now.Weekday()) + 7) % 7
		at = at.AddDate(0, 0, days)
		if !at.After(now) {
			at = at.AddDate(0, 0, 7)
		}
	}

	return at
}

// ParseCron rebuilds a Spec from a persisted cron expression plus the
// recurring flag and nag interval stored alongside it. It is the inverse of
// CronString and is used on restart recovery.
func ParseCron(expr string, recurring bool, interval int) (Spec, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return Spec{}, errors.Wrapf(ErrBadCron, "expected 5 fields, got %d", len(fields))
	}
	if fields[2] != "*" || fields[3] != "*" {
		return Spec{}, errors.Wrap(ErrBadCron, "day-of-month and month must be *")
	}

	minute, err := strconv.Atoi(fields[0])
	if err != nil || minute < 0 || minute > 59 {
		return Spec{}, errors.Wrapf(ErrBadCron, "bad minute %q", fields[0])
	}
	hour, err := strconv.Atoi(fields[1])
	if err != nil || hour < 0 || hour > 23 {
		return Spec{}, errors.Wrapf(ErrBadCron, "bad hour %q", fields[1])
	}
	if interval < 1 || interval > 59 {
		return Spec{}, errors.Wrapf(ErrBadCron, "bad interval %d", interval)
	}

	s := Spec{Hour: hour, Minute: minute, Interval: interval}

	if fields[4] == "*" {
		if recurring {
			s.Rule = Daily
		} else {
			s.Rule = Today
		}
		return s, nil
	}

	wd, ok := weekdayAbbrevs[fields[4]]
	if !ok {
		return Spec{}, errors.Wrapf(ErrBadCron, "bad weekday %q", fields[4])
	}
	s.Weekday = wd
	if recurring {
		s.Rule = WeekdayRecurring
	} else {
		s.Rule = WeekdaySingle
	}
	return s, nil
}

var weekdayAbbrevs = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}
