package core

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

type subjectLock struct {
	mu   sync.Mutex
	refs int // holders plus waiters, guarded by the map bucket
}

// SubjectLocks serializes work per subject. Each subject gets its own
// mutex, created on first use and dropped when the last holder leaves,
// so a slow subject never blocks an unrelated one.
type SubjectLocks struct {
	locks *xsync.MapOf[string, *subjectLock]
}

func NewSubjectLocks() *SubjectLocks {
	return &SubjectLocks{locks: xsync.NewMapOf[string, *subjectLock]()}
}

// Lock acquires the subject's mutex and returns its unlock func
func (l *SubjectLocks) Lock(subjectID string) func() {
	sl, _ := l.locks.Compute(subjectID, func(old *subjectLock, loaded bool) (*subjectLock, bool) {
		if !loaded {
			old = &subjectLock{}
		}
		old.refs++
		return old, false
	})
	sl.mu.Lock()

	return func() {
		sl.mu.Unlock()
		l.locks.Compute(subjectID, func(old *subjectLock, loaded bool) (*subjectLock, bool) {
			if !loaded {
				return old, true
			}
			old.refs--
			return old, old.refs == 0
		})
	}
}

// Len returns the number of subjects currently locked or waited on
func (l *SubjectLocks) Len() int {
	return l.locks.Size()
}
