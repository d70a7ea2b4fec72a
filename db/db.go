package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

/**
DB tables:
- reminders:
	- owner: bigint - Telegram user ID of the reminder owner
	- name: text - normalized reminder name, lookup key
	- label: text - reminder name as the user typed it
	- hour: int4 - scheduled hour, 0-23
	- minute: int4 - scheduled minute, 0-59
	- day: text - cron day-of-week token: '*' or 'mon'..'sun'
	- recurring: boolean - repeats daily/weekly vs fires once
	- nag_interval: int4 - minutes between nags, 1-59
	- active: boolean - false once completed (one-time) or skipped (recurring)
	- cron_string: text - 'minute hour * * day'

Indexes:
- reminders:
	- (owner, name) - primary key
*/

var noCtx = context.Background()

// PgxIface is the slice of pgxpool.Pool the gateway needs. pgxmock's pool
// satisfies it too.
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Database is the persistence gateway for reminders. It is a durable
// mirror, not the live source of truth: scheduling decisions are made on
// the in-memory store and written through here best-effort.
type Database struct {
	Conn PgxIface
}

func NewDatabase(connStr string) (*Database, error) {
	// connection string should look like postgresql://localhost:5432/todooh?user=admn&password=passwd
	pool, err := pgxpool.New(noCtx, connStr)
	if err != nil {
		return nil, errors.Wrap(err, "failed creating connection pool")
	}

	if err = pool.Ping(noCtx); err != nil {
		return nil, errors.Wrap(err, "failed pinging database")
	}

	return &Database{Conn: pool}, nil
}

const recordColumns = `owner, name, label, hour, minute, day, recurring, nag_interval, active, cron_string`

// Insert persists a freshly created reminder.
func (d *Database) Insert(r Record) error {
	if _, err := d.Conn.Exec(noCtx, `INSERT INTO reminders(`+recordColumns+`)
VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.Owner, r.Name, r.Label, r.Hour, r.Minute, r.Day, r.Recurring, r.Interval, r.Active, r.CronString); err != nil {
		return errors.Wrap(err, "failed inserting reminder")
	}

	return nil
}

// UpdateActive mirrors an active-flag transition.
func (d *Database) UpdateActive(owner int64, name string, active bool) error {
	if _, err := d.Conn.Exec(noCtx, `UPDATE reminders SET active=$1
WHERE owner=$2 AND name=$3`, active, owner, name); err != nil {
		return errors.Wrap(err, "failed updating reminder")
	}

	return nil
}

// FindOne fetches a single reminder record. A missing record is reported
// as (nil, nil), not an error.
func (d *Database) FindOne(owner int64, name string) (*Record, error) {
	var r Record
	err := d.Conn.QueryRow(noCtx, `SELECT `+recordColumns+` FROM reminders
WHERE owner=$1 AND name=$2`, owner, name).
		Scan(&r.Owner, &r.Name, &r.Label, &r.Hour, &r.Minute, &r.Day, &r.Recurring, &r.Interval, &r.Active, &r.CronString)

	switch {
	case err == pgx.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, errors.Wrap(err, "failed fetching reminder")
	}

	return &r, nil
}

// Find returns every record owned by the given user.
func (d *Database) Find(owner int64) ([]Record, error) {
	rows, err := d.Conn.Query(noCtx, `SELECT `+recordColumns+` FROM reminders
WHERE owner=$1 ORDER BY name ASC`, owner)
	if err != nil {
		return nil, errors.Wrap(err, "failed querying reminders")
	}
	defer rows.Close()

	return extractRecords(rows)
}

// FindActive returns every active record across all owners. It feeds
// restart recovery.
func (d *Database) FindActive() ([]Record, error) {
	rows, err := d.Conn.Query(noCtx, `SELECT `+recordColumns+` FROM reminders
WHERE active ORDER BY owner ASC, name ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed querying active reminders")
	}
	defer rows.Close()

	return extractRecords(rows)
}

func extractRecords(rows pgx.Rows) ([]Record, error) {
	var recs []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Owner, &r.Name, &r.Label, &r.Hour, &r.Minute, &r.Day, &r.Recurring, &r.Interval, &r.Active, &r.CronString); err != nil {
			return nil, errors.Wrap(err, "failed scanning reminder row")
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed reading reminder rows")
	}

	return recs, nil
}

func (d *Database) Close() {
	d.Conn.Close()
}
