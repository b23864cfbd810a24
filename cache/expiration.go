package cache

import (
	"math"
	"time"
)

// DefaultExpiration is used when a cached call does not configure one.
const DefaultExpiration = 24 * time.Hour

// Expiration is either a relative lifetime or an absolute expiry instant.
type Expiration struct {
	after time.Duration
	at    time.Time
}

// ExpireIn expires entries d after they are written.
func ExpireIn(d time.Duration) Expiration {
	return Expiration{after: d}
}

// ExpireInSeconds expires entries the given number of seconds after they are written.
func ExpireInSeconds(seconds int) Expiration {
	return Expiration{after: time.Duration(seconds) * time.Second}
}

// ExpireAt expires entries at the given instant.
func ExpireAt(t time.Time) Expiration {
	return Expiration{at: t}
}

// IsAbsolute reports whether the expiration is an instant rather than a lifetime.
func (e Expiration) IsAbsolute() bool {
	return !e.at.IsZero()
}

// TTL resolves the expiration at now into a whole, non-negative number of seconds.
func (e Expiration) TTL(now time.Time) time.Duration {
	remaining := e.after
	if e.IsAbsolute() {
		remaining = e.at.Sub(now)
	}
	seconds := math.Floor(remaining.Seconds())
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// IsZero reports whether no expiration was configured.
func (e Expiration) IsZero() bool {
	return e.after == 0 && e.at.IsZero()
}
