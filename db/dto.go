package db

// A Record is the durable mirror of one reminder.
//
// Name holds the normalized lookup key (lowercased, whitespace stripped);
// Label keeps the name the way the user typed it, for listings and
// notifications. CronString is the five-field expression
// "minute hour * * dayToken" redundantly derived from Hour, Minute and Day
// so that schedules survive restarts even if the split fields rot.
type Record struct {
	Owner      int64
	Name       string
	Label      string
	Hour       int
	Minute     int
	Day        string
	Recurring  bool
	Interval   int
	Active     bool
	CronString string
}
