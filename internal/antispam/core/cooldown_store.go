package core

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Kind scopes a cooldown store to exactly one detector
type Kind string

const (
	KindInvites     Kind = "invites"
	KindAttachments Kind = "attachments"
)

// Clock returns the current time. Tests swap it for a fixed one.
type Clock func() time.Time

// CooldownRecord tracks offenses of one subject inside a fixed window.
// Expiry never changes after creation; OffenseCount is only mutated while
// the subject lock of the owning Escalator is held.
type CooldownRecord struct {
	SubjectID    string
	Expiry       time.Time
	OffenseCount int
}

// CooldownStore is a per-detector record store with lazy expiry eviction
type CooldownStore struct {
	kind    Kind
	records *xsync.MapOf[string, *CooldownRecord]
	now     Clock
}

// NewCooldownStore creates an empty store for the given detector kind
func NewCooldownStore(kind Kind, now Clock) *CooldownStore {
	if now == nil {
		now = time.Now
	}
	return &CooldownStore{
		kind:    kind,
		records: xsync.NewMapOf[string, *CooldownRecord](),
		now:     now,
	}
}

// Kind returns the detector kind this store belongs to
func (s *CooldownStore) Kind() Kind {
	return s.kind
}

func (s *CooldownStore) expired(rec *CooldownRecord, now time.Time) bool {
	return now.After(rec.Expiry)
}

// Get returns the live record for a subject. A stale record is evicted
// and reported as absent, whatever its offense count.
func (s *CooldownStore) Get(subjectID string) (*CooldownRecord, bool) {
	rec, ok := s.records.Load(subjectID)
	if !ok {
		return nil, false
	}
	if s.expired(rec, s.now()) {
		s.evict(subjectID, rec)
		return nil, false
	}
	return rec, true
}

// evict deletes the record only if it is still the one we saw.
// A key that is already gone stays gone.
func (s *CooldownStore) evict(subjectID string, stale *CooldownRecord) {
	s.records.Compute(subjectID, func(old *CooldownRecord, loaded bool) (*CooldownRecord, bool) {
		return old, !loaded || old == stale
	})
}

// Upsert returns the live record for a subject, creating a fresh one
// (offense count 0, expiry now+window) when none exists or the stored one
// has expired. created reports whether a new record was made.
func (s *CooldownStore) Upsert(subjectID string, window time.Duration) (rec *CooldownRecord, created bool) {
	now := s.now()
	rec, _ = s.records.Compute(subjectID, func(old *CooldownRecord, loaded bool) (*CooldownRecord, bool) {
		if loaded && !s.expired(old, now) {
			return old, false
		}
		created = true
		return &CooldownRecord{
			SubjectID: subjectID,
			Expiry:    now.Add(window),
		}, false
	})
	return rec, created
}

// Increment adds one offense to the record and returns the new count.
// The expiry is left untouched: the window is anchored at first offense.
func (s *CooldownStore) Increment(rec *CooldownRecord) int {
	rec.OffenseCount++
	return rec.OffenseCount
}

// Remove deletes the subject's record unconditionally
func (s *CooldownStore) Remove(subjectID string) {
	s.records.Delete(subjectID)
}

// Len returns the number of stored records, stale ones included
func (s *CooldownStore) Len() int {
	return s.records.Size()
}

// Sweep evicts every expired record and returns how many were removed
func (s *CooldownStore) Sweep() int {
	now := s.now()
	removed := 0
	s.records.Range(func(subjectID string, rec *CooldownRecord) bool {
		if s.expired(rec, now) {
			s.evict(subjectID, rec)
			removed++
		}
		return true
	})
	return removed
}
