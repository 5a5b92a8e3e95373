package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy is the threshold config of one detector for a single pass.
// A zero WarnLimit or BanLimit disables that tier.
type Policy struct {
	Window    time.Duration
	WarnLimit int
	BanLimit  int
}

func (p Policy) warns(count int) bool {
	return p.WarnLimit > 0 && count == p.WarnLimit
}

func (p Policy) bans(count int) bool {
	return p.BanLimit > 0 && count >= p.BanLimit
}

// Strike describes the state of a subject right after an offense was counted
type Strike struct {
	SubjectID string
	Count     int
	Expiry    time.Time
	Policy    Policy
	First     bool // record was created by this offense
	Warned    bool
	Banned    bool
}

// Hooks are the detector specific actions run while the subject lock is held.
// Any hook may be nil.
type Hooks struct {
	OnFirst  func(ctx context.Context, s Strike) error // record created, before counting
	OnStrike func(ctx context.Context, s Strike) error // after counting, every offense
	OnWarn   func(ctx context.Context, s Strike) error
	OnBan    func(ctx context.Context, s Strike) error
}

// Escalator is the windowed escalation policy shared by the spam detectors:
// count offenses in a fixed window, warn at exactly WarnLimit, ban at BanLimit.
type Escalator struct {
	store *CooldownStore
	locks *SubjectLocks
}

// NewEscalator wraps a cooldown store with per-subject serialization
func NewEscalator(store *CooldownStore) *Escalator {
	return &Escalator{store: store, locks: NewSubjectLocks()}
}

// Store exposes the underlying cooldown store
func (e *Escalator) Store() *CooldownStore {
	return e.store
}

// Escalate counts one offense for the subject and runs the matching hooks.
//
// A warning ends the pass, so the ban tier is not evaluated on the same
// offense. On ban the record is removed once OnBan succeeds, giving the
// subject a fresh start. Errors of notice hooks are collected and returned
// after the state update; an OnBan error keeps the record so the next
// offense retries the ban.
func (e *Escalator) Escalate(ctx context.Context, subjectID string, policy Policy, hooks Hooks) (Strike, error) {
	unlock := e.locks.Lock(subjectID)
	defer unlock()

	var errs []error

	rec, created := e.store.Upsert(subjectID, policy.Window)
	strike := Strike{
		SubjectID: subjectID,
		Expiry:    rec.Expiry,
		Policy:    policy,
		First:     created,
	}

	if created && hooks.OnFirst != nil {
		if err := hooks.OnFirst(ctx, strike); err != nil {
			errs = append(errs, fmt.Errorf("first offense notice: %w", err))
		}
	}

	strike.Count = e.store.Increment(rec)

	if hooks.OnStrike != nil {
		if err := hooks.OnStrike(ctx, strike); err != nil {
			errs = append(errs, fmt.Errorf("strike report: %w", err))
		}
	}

	if policy.warns(strike.Count) {
		strike.Warned = true
		if hooks.OnWarn != nil {
			if err := hooks.OnWarn(ctx, strike); err != nil {
				errs = append(errs, fmt.Errorf("warn: %w", err))
			}
		}
		return strike, errors.Join(errs...)
	}

	if policy.bans(strike.Count) {
		if hooks.OnBan != nil {
			if err := hooks.OnBan(ctx, strike); err != nil {
				errs = append(errs, fmt.Errorf("ban: %w", err))
				return strike, errors.Join(errs...)
			}
		}
		strike.Banned = true
		e.store.Remove(subjectID)
	}

	return strike, errors.Join(errs...)
}

// Reset drops the subject's live record. It reports whether one existed.
func (e *Escalator) Reset(subjectID string) bool {
	unlock := e.locks.Lock(subjectID)
	defer unlock()

	if _, ok := e.store.Get(subjectID); !ok {
		return false
	}
	e.store.Remove(subjectID)
	return true
}

// Lookup returns a copy of the subject's live record, if any
func (e *Escalator) Lookup(subjectID string) (CooldownRecord, bool) {
	unlock := e.locks.Lock(subjectID)
	defer unlock()

	rec, ok := e.store.Get(subjectID)
	if !ok {
		return CooldownRecord{}, false
	}
	return *rec, true
}
