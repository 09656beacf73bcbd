package cache

import "time"

// DefaultTTL is the age after which any cached envelope must be refetched.
const DefaultTTL = time.Hour

// Envelope is a cached value plus the moment it was fetched from the server.
// Timestamp is epoch milliseconds and never reflects when the value was read.
type Envelope[T any] struct {
	Data      T     `json:"data"`
	Timestamp int64 `json:"timestamp"`
}

// IsFresh reports whether an envelope stamped at timestamp (epoch ms) is
// younger than ttl at now. Timestamps in the future (clock skew) count as
// fresh; a negative age is never rejected.
func IsFresh(timestamp int64, ttl time.Duration, now time.Time) bool {
	return now.UnixMilli()-timestamp < ttl.Milliseconds()
}

// Policy maps resource kinds to TTLs. Kinds without an override use Default.
type Policy struct {
	Default   time.Duration
	Overrides map[Kind]time.Duration
}

// DefaultPolicy applies DefaultTTL to every kind.
func DefaultPolicy() Policy {
	return Policy{Default: DefaultTTL}
}

// TTL returns the time-to-live for kind.
func (p Policy) TTL(kind Kind) time.Duration {
	if ttl, ok := p.Overrides[kind]; ok && ttl > 0 {
		return ttl
	}
	if p.Default > 0 {
		return p.Default
	}
	return DefaultTTL
}

// Fresh reports whether env is still usable for kind at now.
func (p Policy) Fresh(kind Kind, timestamp int64, now time.Time) bool {
	return IsFresh(timestamp, p.TTL(kind), now)
}
