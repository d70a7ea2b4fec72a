package reminder

import (
	"strings"
	"time"

	"todooh/db"
	"todooh/schedule"

	"github.com/jmhodges/clock"
	"go.uber.org/zap"
)

const txtIntervalFallback = "There was an error in the interval, so defaulted to 5 minutes."

// Notifier delivers a text to the owner's chat. Fire-and-forget: the
// scheduler never consumes a result and never waits on delivery.
type Notifier func(owner int64, text string)

// Gateway is the durable mirror of reminder records. Writes are
// best-effort: a failed write is logged, the in-memory state stands.
type Gateway interface {
	Insert(rec db.Record) error
	UpdateActive(owner int64, name string, active bool) error
	FindActive() ([]db.Record, error)
}

// Scheduler owns every reminder state transition. It arms one primary
// timer per active reminder and one interval timer per nagging reminder,
// and serializes transitions per reminder through Store.Update.
type Scheduler struct {
	store  *Store
	gw     Gateway
	notify Notifier
	timers Timers
	clk    clock.Clock
	loc    *time.Location
	logger *zap.SugaredLogger
}

type Config struct {
	Store    *Store
	Gateway  Gateway
	Notify   Notifier
	Timers   Timers         // defaults to clock-backed timers
	Clock    clock.Clock    // defaults to the wall clock
	Location *time.Location // the single civil timezone all schedules use; defaults to time.Local
	Logger   *zap.SugaredLogger
}

func NewScheduler(cfg Config) *Scheduler {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Timers == nil {
		cfg.Timers = NewTimers(cfg.Clock, cfg.Logger)
	}

	return &Scheduler{
		store:  cfg.Store,
		gw:     cfg.Gateway,
		notify: cfg.Notify,
		timers: cfg.Timers,
		clk:    cfg.Clock,
		loc:    cfg.Location,
		logger: cfg.Logger,
	}
}

// Create registers a new reminder: inserts it into the live index, mirrors
// it to storage and arms the primary timer. Persistence failure does not
// abort creation, it only costs restart survival.
func (s *Scheduler) Create(owner int64, name string, spec schedule.Spec) error {
	label := strings.TrimSpace(name)
	r := &Reminder{Owner: owner, Name: label, Spec: spec, Active: true, State: Dormant}

	if err := s.store.Insert(r); err != nil {
		return err
	}

	if err := s.gw.Insert(s.record(r)); err != nil {
		s.logger.Warnw("failed persisting reminder; it won't survive a restart",
			"owner", owner, "name", label, "err", err)
	}

	s.arm(owner, label)
	return nil
}

// Recover re-arms every persisted active reminder. A malformed record is
// logged and skipped; it never aborts recovery of the rest.
func (s *Scheduler) Recover() {
	recs, err := s.gw.FindActive()
	if err != nil {
		s.logger.Errorw("failed fetching persisted reminders; starting with none", "err", err)
		return
	}

	s.logger.Infof("recovering %d active reminders", len(recs))

	for _, rec := range recs {
		if err := s.recoverOne(rec); err != nil {
			s.logger.Errorw("failed recovering reminder; skipping it",
				"owner", rec.Owner, "name", rec.Name, "err", err)
		}
	}
}

func (s *Scheduler) recoverOne(rec db.Record) error {
	spec, err := schedule.ParseCron(rec.CronString, rec.Recurring, rec.Interval)
	if err != nil {
		return err
	}

	label := rec.Label
	if label == "" {
		label = rec.Name
	}

	r := &Reminder{Owner: rec.Owner, Name: label, Spec: spec, Active: true, State: Dormant}
	if err := s.store.Insert(r); err != nil {
		return err
	}

	s.arm(rec.Owner, label)
	return nil
}

// List returns the names of the owner's active reminders.
func (s *Scheduler) List(owner int64) []string {
	var names []string
	for _, r := range s.store.Find(owner) {
		r.mu.Lock()
		if r.Active {
			names = append(names, r.Name)
		}
		r.mu.Unlock()
	}
	return names
}

// Complete handles /done for the named reminder.
//
// A one-time reminder is retired: both timers released, active flag
// cleared, entry evicted from the live index. A recurring reminder that is
// nagging stops nagging but keeps its primary schedule armed. A recurring
// reminder that is not nagging (completion raced ahead of the fire, or
// arrived after nagging already stopped) is deactivated so the next
// primary tick silently restarts the cycle.
func (s *Scheduler) Complete(owner int64, name string) error {
	var evict bool

	err := s.store.Update(owner, name, func(r *Reminder) {
		if !r.Spec.Recurring() {
			cancelTimer(&r.primary)
			cancelTimer(&r.interval)
			r.Active = false
			r.State = Done
			evict = true
			s.mirror(r)
			return
		}

		if r.interval != nil {
			cancelTimer(&r.interval)
			r.State = Dormant
			return
		}

		r.Active = false
		r.State = Done
		s.mirror(r)
	})
	if err != nil {
		return err
	}

	if evict {
		s.store.Delete(owner, name)
	}
	return nil
}

// arm registers the primary timer of a dormant reminder.
func (s *Scheduler) arm(owner int64, name string) {
	if err := s.store.Update(owner, name, func(r *Reminder) {
		s.armPrimaryLocked(r)
	}); err != nil {
		s.logger.Errorw("failed arming reminder", "owner", owner, "name", name, "err", err)
	}
}

func (s *Scheduler) armPrimaryLocked(r *Reminder) {
	owner, key := r.Owner, Normalize(r.Name)
	now := s.clk.Now().In(s.loc)
	r.primary = s.timers.Arm(r.Spec.Next(now).Sub(now), func() { s.primaryFire(owner, key) })
}

// primaryFire is the primary timer callback. The whole transition runs
// under the reminder's lock; notifications go out after it commits, so a
// slow chat transport never delays re-arming, and a /done that won the
// lock first is never overwritten.
func (s *Scheduler) primaryFire(owner int64, name string) {
	var texts []string

	err := s.store.Update(owner, name, func(r *Reminder) {
		switch {
		case !r.Active && r.Spec.Recurring():
			// The user completed the previous cycle early. Restart the
			// cycle without notifying on this tick.
			r.Active = true
			r.State = Dormant
			s.armPrimaryLocked(r)
			s.mirror(r)
			return

		case !r.Active:
			// Completed one-time reminder: nothing to notify, release the
			// schedule for good.
			cancelTimer(&r.primary)
			return
		}

		texts = append(texts, r.Name)
		r.State = Nagging

		iv := r.Spec.Interval
		if !r.Spec.IntervalOK() {
			s.logger.Errorw("unschedulable nag interval, falling back",
				"owner", owner, "name", name, "interval", iv, "fallback", schedule.DefaultInterval)
			iv = schedule.DefaultInterval
			texts = append(texts, txtIntervalFallback)
		}

		// A nag cycle may still be running if the previous occurrence was
		// never completed; replace its timer instead of leaking it.
		cancelTimer(&r.interval)
		r.interval = s.timers.Arm(time.Duration(iv)*time.Minute, func() { s.intervalFire(owner, name) })

		if r.Spec.Recurring() {
			s.armPrimaryLocked(r)
		} else {
			// Single shot: the primary schedule is spent. Nagging carries
			// on until /done.
			cancelTimer(&r.primary)
			r.Active = false
			s.mirror(r)
		}
	})
	if err != nil {
		// The reminder was retired while this fire was in flight.
		return
	}

	for _, text := range texts {
		s.notify(owner, text)
	}
}

// intervalFire is the nag timer callback. It keeps nagging until a
// completion flips the state away from Nagging.
func (s *Scheduler) intervalFire(owner int64, name string) {
	var text string

	err := s.store.Update(owner, name, func(r *Reminder) {
		if r.State != Nagging {
			// Completed while this nag was in flight.
			return
		}

		text = r.Name

		iv := r.Spec.Interval
		if !r.Spec.IntervalOK() {
			iv = schedule.DefaultInterval
		}
		r.interval = s.timers.Arm(time.Duration(iv)*time.Minute, func() { s.intervalFire(owner, name) })
	})
	if err != nil {
		return
	}

	if text != "" {
		s.notify(owner, text)
	}
}

// mirror writes the active flag through to storage without holding up the
// caller. Must be called with the reminder's lock held; the write itself
// happens outside of it. Writes for the same reminder carry a generation
// stamped under the lock, so a slow write from an earlier transition can
// never overwrite the value of a later one.
func (s *Scheduler) mirror(r *Reminder) {
	owner, key, active := r.Owner, Normalize(r.Name), r.Active
	r.mirrorGen++
	gen := r.mirrorGen

	go func() {
		r.mirrorMu.Lock()
		defer r.mirrorMu.Unlock()

		if gen <= r.mirroredGen {
			// a later transition already reached storage
			return
		}

		if err := s.gw.UpdateActive(owner, key, active); err != nil {
			s.logger.Warnw("failed mirroring reminder state; in-memory state stands",
				"owner", owner, "name", key, "active", active, "err", err)
			return
		}
		r.mirroredGen = gen
	}()
}

func (s *Scheduler) record(r *Reminder) db.Record {
	return db.Record{
		Owner:      r.Owner,
		Name:       Normalize(r.Name),
		Label:      r.Name,
		Hour:       r.Spec.Hour,
		Minute:     r.Spec.Minute,
		Day:        r.Spec.DayToken(),
		Recurring:  r.Spec.Recurring(),
		Interval:   r.Spec.Interval,
		Active:     r.Active,
		CronString: r.Spec.CronString(),
	}
}

func cancelTimer(h *Handle) {
	if *h != nil {
		(*h).Cancel()
		*h = nil
	}
}
