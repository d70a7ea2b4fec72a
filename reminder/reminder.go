package reminder

import (
	"sort"
	"strings"
	"sync"

	"todooh/schedule"

	"github.com/pkg/errors"
)

var (
	ErrNotFound  = errors.New("reminder not found")
	ErrDuplicate = errors.New("reminder already exists")
)

// State is a reminder's position in its lifecycle.
type State int

const (
	Dormant State = iota // waiting for the primary fire
	Nagging              // primary fired, nagging every Interval minutes
	Done                 // acknowledged; terminal for one-time reminders
)

// A Reminder is one scheduled nag owned by a chat user.
//
// mu serializes every transition: a timer callback and a /done command may
// race on the same reminder, and whichever loses the lock must observe the
// winner's state. All mutation goes through Store.Update, which takes mu.
type Reminder struct {
	Owner  int64
	Name   string // as the user typed it; the store key is Normalize(Name)
	Spec   schedule.Spec
	Active bool
	State  State

	primary  Handle // fires at the scheduled occurrence; nil when not armed
	interval Handle // fires every Interval minutes while Nagging; nil when not armed

	mu sync.Mutex

	mirrorGen uint64 // bumped under mu by every transition that must reach storage

	// Mirror write bookkeeping. Guarded by mirrorMu, not mu: the writes
	// happen off the transition path and must not hold it up.
	mirrorMu    sync.Mutex
	mirroredGen uint64
}

// Normalize derives the lookup key from a reminder name: lowercased with
// all whitespace removed. "Water plants" and " waterPLANTS " address the
// same reminder.
func Normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}

// Store is the authoritative in-memory index of live reminders, keyed by
// owner and normalized name. It performs no I/O.
type Store struct {
	mu      sync.RWMutex
	byOwner map[int64]map[string]*Reminder
}

func NewStore() *Store {
	return &Store{byOwner: make(map[int64]map[string]*Reminder)}
}

// Find returns the owner's reminders sorted by name. Unknown owners get an
// empty slice.
func (s *Store) Find(owner int64) []*Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rs := make([]*Reminder, 0, len(s.byOwner[owner]))
	for _, r := range s.byOwner[owner] {
		rs = append(rs, r)
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].Name < rs[j].Name })

	return rs
}

func (s *Store) FindOne(owner int64, name string) (*Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byOwner[owner][Normalize(name)]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (s *Store) Insert(r *Reminder) error {
	key := Normalize(r.Name)

	s.mu.Lock()
	defer s.mu.Unlock()

	owned := s.byOwner[r.Owner]
	if owned == nil {
		owned = make(map[string]*Reminder)
		s.byOwner[r.Owner] = owned
	}

	if _, ok := owned[key]; ok {
		return ErrDuplicate
	}
	owned[key] = r

	return nil
}

// Update runs fn on the named reminder while holding its mutex. This is
// the per-reminder exclusive-execution region; fn must not call Update on
// the same reminder again.
func (s *Store) Update(owner int64, name string, fn func(*Reminder)) error {
	r, err := s.FindOne(owner, name)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)

	return nil
}

func (s *Store) Delete(owner int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byOwner[owner], Normalize(name))
}
