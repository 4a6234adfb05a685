package mirror

import (
	"testing"
	"time"
)

var pool = []string{"https://libgen.is", "https://libgen.rs", "https://libgen.st"}

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time          { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker() (*HealthTracker, *fixedClock) {
	clock := &fixedClock{t: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
	tr := NewHealthTracker(pool)
	tr.now = clock.now
	return tr, clock
}

func TestStartsHealthy(t *testing.T) {
	tr, _ := newTestTracker()

	for _, m := range pool {
		if !tr.IsHealthy(m) {
			t.Errorf("mirror %s should start healthy", m)
		}
		if !tr.ShouldTry(m) {
			t.Errorf("mirror %s should be tryable at start", m)
		}
	}
}

func TestUnhealthyAfterThreeFailures(t *testing.T) {
	tr, _ := newTestTracker()
	m := pool[0]

	tr.RecordFailure(m)
	tr.RecordFailure(m)
	if !tr.IsHealthy(m) {
		t.Fatal("mirror should stay healthy below 3 consecutive failures")
	}

	tr.RecordFailure(m)
	if tr.IsHealthy(m) {
		t.Fatal("mirror should be unhealthy after 3 consecutive failures")
	}
}

func TestSuccessRestoresImmediately(t *testing.T) {
	tr, _ := newTestTracker()
	m := pool[0]

	for range 5 {
		tr.RecordFailure(m)
	}
	tr.RecordSuccess(m, 200*time.Millisecond)

	if !tr.IsHealthy(m) {
		t.Fatal("any success must flip the mirror healthy immediately")
	}
	if !tr.ShouldTry(m) {
		t.Fatal("healthy mirror must be tryable")
	}
}

func TestCooldownScalesWithStreak(t *testing.T) {
	// After k failures the cooldown is min(k*2m, 30m).
	tests := []struct {
		failures int
		cooldown time.Duration
	}{
		{1, 2 * time.Minute},
		{3, 6 * time.Minute},
		{10, 20 * time.Minute},
		{20, 30 * time.Minute},
		{100, 30 * time.Minute},
	}

	for _, tt := range tests {
		tr, clock := newTestTracker()
		m := pool[0]
		for range tt.failures {
			tr.RecordFailure(m)
		}

		clock.advance(tt.cooldown - time.Second)
		if tr.ShouldTry(m) {
			t.Errorf("%d failures: mirror tryable before %v elapsed", tt.failures, tt.cooldown)
		}

		clock.advance(2 * time.Second)
		if !tr.ShouldTry(m) {
			t.Errorf("%d failures: mirror not tryable after %v elapsed", tt.failures, tt.cooldown)
		}
	}
}

func TestCooldownScenario(t *testing.T) {
	// A mirror fails 3 times in a row: blocked for 6 minutes, tryable at minute 7.
	tr, clock := newTestTracker()
	m := pool[1]

	for range 3 {
		tr.RecordFailure(m)
	}

	clock.advance(5 * time.Minute)
	if tr.ShouldTry(m) {
		t.Fatal("mirror should still be cooling down at minute 5")
	}

	clock.advance(2 * time.Minute)
	if !tr.ShouldTry(m) {
		t.Fatal("mirror should be tryable at minute 7")
	}
}

func TestRankByHealth(t *testing.T) {
	tr, _ := newTestTracker()

	// libgen.is: healthy, slow. libgen.rs: healthy, fast. libgen.st: unhealthy.
	tr.RecordSuccess(pool[0], 900*time.Millisecond)
	tr.RecordSuccess(pool[1], 100*time.Millisecond)
	for range 3 {
		tr.RecordFailure(pool[2])
	}

	ranked := tr.RankByHealth(pool)

	want := []string{pool[1], pool[0], pool[2]}
	for i, m := range want {
		if ranked[i] != m {
			t.Fatalf("rank[%d] = %s, want %s (full: %v)", i, ranked[i], m, ranked)
		}
	}
}

func TestSnapshot(t *testing.T) {
	tr, _ := newTestTracker()

	tr.RecordSuccess(pool[0], 250*time.Millisecond)
	for range 4 {
		tr.RecordFailure(pool[1])
	}

	snap := tr.Snapshot()
	if len(snap) != len(pool) {
		t.Fatalf("snapshot has %d entries, want %d", len(snap), len(pool))
	}

	ok := snap[pool[0]]
	if !ok.Healthy || ok.ResponseTimeMs != 250 || ok.InCooldown {
		t.Errorf("unexpected status for healthy mirror: %+v", ok)
	}

	bad := snap[pool[1]]
	if bad.Healthy || bad.ConsecutiveFailures != 4 || !bad.InCooldown {
		t.Errorf("unexpected status for failing mirror: %+v", bad)
	}
	if bad.CooldownMinutes != 8 {
		t.Errorf("cooldown minutes = %v, want 8", bad.CooldownMinutes)
	}
}

func TestReset(t *testing.T) {
	tr, _ := newTestTracker()

	for _, m := range pool {
		for range 5 {
			tr.RecordFailure(m)
		}
	}

	tr.Reset()

	for _, m := range pool {
		if !tr.IsHealthy(m) || !tr.ShouldTry(m) {
			t.Errorf("mirror %s should be fully reset", m)
		}
	}
	for _, s := range tr.Snapshot() {
		if s.ConsecutiveFailures != 0 || s.InCooldown {
			t.Errorf("snapshot after reset should be clean: %+v", s)
		}
	}
}
