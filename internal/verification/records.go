package verification

import (
	"sync"
	"time"
)

type record struct {
	codeHash    []byte
	expiresAt   time.Time
	attempts    int
	maxAttempts int
}

// recordStore holds at most one pending record per email address.
type recordStore struct {
	mu      sync.Mutex
	records map[string]*record
}

func newRecordStore() *recordStore {
	return &recordStore{records: make(map[string]*record)}
}

// put replaces any pending record for email.
func (s *recordStore) put(email string, rec *record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[email] = rec
}

// check evaluates one submission against the pending record. The whole
// sequence runs under the store lock so concurrent checks for the same
// address cannot both get past the attempt cap.
func (s *recordStore) check(email string, now time.Time, matches func(digest []byte) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[email]
	if !ok {
		return ErrNotFound
	}

	if now.After(rec.expiresAt) {
		delete(s.records, email)
		return ErrExpired
	}

	if rec.attempts >= rec.maxAttempts {
		delete(s.records, email)
		return ErrTooManyAttempts
	}

	// counted before comparing, a correct final attempt still uses a slot
	rec.attempts++

	if matches(rec.codeHash) {
		delete(s.records, email)
		return nil
	}

	if rec.attempts >= rec.maxAttempts {
		delete(s.records, email)
		return ErrTooManyAttempts
	}

	return &InvalidCodeError{AttemptsRemaining: rec.maxAttempts - rec.attempts}
}

// sweepExpired removes records past their expiry and reports how many were dropped.
func (s *recordStore) sweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for email, rec := range s.records {
		if now.After(rec.expiresAt) {
			delete(s.records, email)
			removed++
		}
	}
	return removed
}

func (s *recordStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
