package verification

import (
	"sync"
	"time"
)

const unknownClientIP = "unknown"

type limitEntry struct {
	count       int
	windowStart time.Time
}

// rateLimiter applies fixed-window ceilings per client IP and per email. A
// window only resets once it has fully elapsed, so a burst straddling the
// boundary can admit close to twice the ceiling.
type rateLimiter struct {
	mu         sync.Mutex
	entries    map[string]*limitEntry
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func newRateLimiter(window time.Duration, ipLimit, emailLimit int) *rateLimiter {
	return &rateLimiter{
		entries:    make(map[string]*limitEntry),
		window:     window,
		ipLimit:    ipLimit,
		emailLimit: emailLimit,
	}
}

func ipKey(ip string) string {
	if ip == "" {
		ip = unknownClientIP
	}
	return "ip:" + ip
}

func emailKey(email string) string {
	return "email:" + email
}

// reserve checks both ceilings and, when both admit the request, counts it
// against both keys. The IP ceiling is checked first.
func (l *rateLimiter) reserve(clientIP, email string, now time.Time) error {
	ik, ek := ipKey(clientIP), emailKey(email)

	l.mu.Lock()
	defer l.mu.Unlock()

	if retry, blocked := l.blocked(ik, l.ipLimit, now); blocked {
		return &RateLimitError{Scope: ScopeIP, RetryAfter: retry}
	}
	if retry, blocked := l.blocked(ek, l.emailLimit, now); blocked {
		return &RateLimitError{Scope: ScopeEmail, RetryAfter: retry}
	}

	l.hit(ik, now)
	l.hit(ek, now)
	return nil
}

func (l *rateLimiter) blocked(key string, limit int, now time.Time) (time.Duration, bool) {
	if limit <= 0 {
		return 0, false
	}
	entry, ok := l.entries[key]
	if !ok || l.elapsed(entry, now) {
		return 0, false
	}
	if entry.count < limit {
		return 0, false
	}
	return entry.windowStart.Add(l.window).Sub(now), true
}

func (l *rateLimiter) hit(key string, now time.Time) {
	entry, ok := l.entries[key]
	if !ok || l.elapsed(entry, now) {
		l.entries[key] = &limitEntry{count: 1, windowStart: now}
		return
	}
	entry.count++
}

func (l *rateLimiter) elapsed(entry *limitEntry, now time.Time) bool {
	return now.Sub(entry.windowStart) > l.window
}

// sweep drops entries whose window has fully elapsed.
func (l *rateLimiter) sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, entry := range l.entries {
		if l.elapsed(entry, now) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

func (l *rateLimiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
