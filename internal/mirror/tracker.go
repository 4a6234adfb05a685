// Package mirror tracks per-mirror health for the multi-mirror catalog
// source: consecutive failures, exponential cooldown, and latency-aware
// ranking. One tracker instance lives for the whole process.
package mirror

import (
	"slices"
	"sync"
	"time"
)

const (
	// unhealthyThreshold is the consecutive-failure count at which a mirror
	// is marked unhealthy.
	unhealthyThreshold = 3

	// cooldownPerFailure scales the re-probe cooldown with the failure streak.
	cooldownPerFailure = 2 * time.Minute

	// maxCooldown caps the cooldown regardless of streak length.
	maxCooldown = 30 * time.Minute
)

// health is the mutable per-mirror record.
type health struct {
	healthy             bool
	consecutiveFailures int
	lastFailureTime     time.Time
	lastCheckedTime     time.Time
	lastResponseTime    time.Duration
}

// Status is a read-only snapshot of one mirror's health.
type Status struct {
	Mirror              string    `json:"mirror"`
	Healthy             bool      `json:"healthy"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	ResponseTimeMs      int64     `json:"response_time_ms"`
	InCooldown          bool      `json:"in_cooldown"`
	CooldownMinutes     float64   `json:"cooldown_minutes"`
	LastChecked         time.Time `json:"last_checked,omitzero"`
}

// HealthTracker records success/failure history for a fixed mirror pool.
// Safe for concurrent use.
type HealthTracker struct {
	mu      sync.Mutex
	mirrors map[string]*health

	// now is swappable for tests.
	now func() time.Time
}

// NewHealthTracker creates a tracker with every configured mirror starting
// healthy.
func NewHealthTracker(mirrors []string) *HealthTracker {
	t := &HealthTracker{
		mirrors: make(map[string]*health, len(mirrors)),
		now:     time.Now,
	}
	for _, m := range mirrors {
		t.mirrors[m] = &health{healthy: true}
	}
	return t
}

// RecordSuccess marks a mirror healthy and stores its measured latency.
// Any success clears the failure streak immediately.
func (t *HealthTracker) RecordSuccess(mirror string, responseTime time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.get(mirror)
	h.healthy = true
	h.consecutiveFailures = 0
	h.lastResponseTime = responseTime
	h.lastCheckedTime = t.now()
}

// RecordFailure counts a failure; the mirror flips unhealthy once the
// streak reaches the threshold.
func (t *HealthTracker) RecordFailure(mirror string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.get(mirror)
	h.consecutiveFailures++
	h.lastFailureTime = t.now()
	h.lastCheckedTime = h.lastFailureTime
	if h.consecutiveFailures >= unhealthyThreshold {
		h.healthy = false
	}
}

// ShouldTry reports whether a mirror is worth attempting: it is healthy, or
// unhealthy but past its cooldown window (re-probe policy).
func (t *HealthTracker) ShouldTry(mirror string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.get(mirror)
	if h.consecutiveFailures == 0 {
		return true
	}
	return t.now().Sub(h.lastFailureTime) >= cooldown(h.consecutiveFailures)
}

// RankByHealth orders mirrors for attempt: healthy before unhealthy, and
// within the same tier, lower recorded response time first.
func (t *HealthTracker) RankByHealth(mirrors []string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ranked := slices.Clone(mirrors)
	slices.SortStableFunc(ranked, func(a, b string) int {
		ha, hb := t.get(a), t.get(b)
		if ha.healthy != hb.healthy {
			if ha.healthy {
				return -1
			}
			return 1
		}
		switch {
		case ha.lastResponseTime < hb.lastResponseTime:
			return -1
		case ha.lastResponseTime > hb.lastResponseTime:
			return 1
		default:
			return 0
		}
	})
	return ranked
}

// IsHealthy reports a mirror's current health flag.
func (t *HealthTracker) IsHealthy(mirror string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.get(mirror).healthy
}

// Snapshot returns a diagnostic view of every tracked mirror.
func (t *HealthTracker) Snapshot() map[string]Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := make(map[string]Status, len(t.mirrors))
	for m, h := range t.mirrors {
		cd := cooldown(h.consecutiveFailures)
		inCooldown := h.consecutiveFailures > 0 && t.now().Sub(h.lastFailureTime) < cd
		s := Status{
			Mirror:              m,
			Healthy:             h.healthy,
			ConsecutiveFailures: h.consecutiveFailures,
			ResponseTimeMs:      h.lastResponseTime.Milliseconds(),
			InCooldown:          inCooldown,
			LastChecked:         h.lastCheckedTime,
		}
		if inCooldown {
			s.CooldownMinutes = cd.Minutes()
		}
		snap[m] = s
	}
	return snap
}

// Reset clears all failure history, returning every mirror to healthy.
// Operational override for when an operator knows the pool recovered.
func (t *HealthTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, h := range t.mirrors {
		h.healthy = true
		h.consecutiveFailures = 0
		h.lastFailureTime = time.Time{}
		h.lastResponseTime = 0
	}
}

// get returns the record for a mirror, creating one for mirrors that were
// not in the initial pool.
func (t *HealthTracker) get(mirror string) *health {
	h, ok := t.mirrors[mirror]
	if !ok {
		h = &health{healthy: true}
		t.mirrors[mirror] = h
	}
	return h
}

// cooldown computes the re-probe window for a failure streak:
// min(failures * 2 minutes, 30 minutes); zero failures means no cooldown.
func cooldown(consecutiveFailures int) time.Duration {
	if consecutiveFailures <= 0 {
		return 0
	}
	return min(time.Duration(consecutiveFailures)*cooldownPerFailure, maxCooldown)
}
