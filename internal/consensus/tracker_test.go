package consensus

import (
	"testing"
	"time"

	"serialscan/internal/ocr"
	"serialscan/internal/validate"
)

var t0 = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func candidate(text string, score float64) validate.Candidate {
	return validate.Candidate{Cleaned: text, Valid: true, CompositeScore: score}
}

func newTracker(t *testing.T, mutate ...func(*Config)) *Tracker {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	tracker, err := New(cfg)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	return tracker
}

func TestNewRejectsMisconfiguration(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.BufferCapacity = 0 },
		func(c *Config) { c.RequiredStableFrames = 0 },
		func(c *Config) { c.RequiredStableFrames = c.BufferCapacity + 1 },
		func(c *Config) { c.ClusterWindow = c.BufferCapacity + 1 },
		func(c *Config) { c.StabilityWindow = 0 },
		func(c *Config) { c.LockDuration = 0 },
		func(c *Config) { c.ConfidenceThreshold = 1.1 },
		func(c *Config) { c.MaxEditDistance = -1 },
	}
	for i, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if _, err := New(cfg); err == nil {
			t.Errorf("case %d: expected construction error", i)
		}
	}
}

func TestCleanLockScenario(t *testing.T) {
	tracker := newTracker(t)
	var result StabilityResult
	for i := 0; i < 5; i++ {
		result = tracker.Track(candidate("C02JQ8XYZ01", 0.95), t0.Add(time.Duration(i)*time.Second), ocr.MotionStable)
	}
	if result.State != StateLocked {
		t.Fatalf("expected locked, got %s", result.State)
	}
	if !result.ShouldLock || result.StableText != "C02JQ8XYZ01" {
		t.Fatalf("unexpected lock result: %+v", result)
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		t.Fatalf("confidence out of bounds: %v", result.Confidence)
	}
}

func TestSeekingUntilEnoughFrames(t *testing.T) {
	tracker := newTracker(t)
	r1 := tracker.Track(candidate("C02JQ8XYZ01", 0.95), t0, ocr.MotionStable)
	r2 := tracker.Track(candidate("C02JQ8XYZ01", 0.95), t0.Add(250*time.Millisecond), ocr.MotionStable)
	if r1.State != StateSeeking || r2.State != StateSeeking {
		t.Fatalf("expected seeking below required frames, got %s then %s", r1.State, r2.State)
	}
}

func TestDistanceOneReadingsShareConsensus(t *testing.T) {
	// One residual OCR error per frame must still converge.
	tracker := newTracker(t)
	readings := []string{"C02JQ8XYZ01", "C02JO8XYZ01", "C02JQ8XYZ01"}
	var result StabilityResult
	for i, text := range readings {
		result = tracker.Track(candidate(text, 0.9), t0.Add(time.Duration(i)*300*time.Millisecond), ocr.MotionStable)
	}
	if result.State != StateStabilizing {
		t.Fatalf("expected stabilizing consensus, got %s (%+v)", result.State, result)
	}
	if result.StableText != "C02JQ8XYZ01" {
		t.Fatalf("majority text should win, got %q", result.StableText)
	}
}

func TestDistantReadingStartsOwnCluster(t *testing.T) {
	entries := []entry{
		{text: "C02JQ8XYZ01", at: t0},
		{text: "C02JO8XYZ01", at: t0.Add(time.Second)},
		{text: "X99ABC12345", at: t0.Add(2 * time.Second)},
	}
	clusters := buildClusters(entries, 1)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	best := largestCluster(clusters)
	if best.size() != 2 {
		t.Fatalf("expected consensus cluster of 2, got %d", best.size())
	}
}

func TestExactMatchSeedsCluster(t *testing.T) {
	entries := []entry{
		{text: "AAAA", at: t0},
		{text: "AAAA", at: t0.Add(time.Second)},
		{text: "AAAA", at: t0.Add(2 * time.Second)},
	}
	clusters := buildClusters(entries, 0)
	if len(clusters) != 1 || clusters[0].size() != 3 {
		t.Fatalf("identical texts must share one cluster: %+v", clusters)
	}
}

func TestUnstableMotionPinsSeeking(t *testing.T) {
	tracker := newTracker(t)
	for i := 0; i < 10; i++ {
		result := tracker.Track(candidate("C02JQ8XYZ01", 0.99), t0.Add(time.Duration(i)*time.Second), ocr.MotionUnstable)
		if result.State != StateSeeking {
			t.Fatalf("frame %d: motion instability must pin seeking, got %s", i, result.State)
		}
		if result.Guidance != GuidanceHoldSteady {
			t.Fatalf("expected hold-steady guidance, got %q", result.Guidance)
		}
	}
}

func TestMissingMotionDataMeansStable(t *testing.T) {
	tracker := newTracker(t)
	var result StabilityResult
	for i := 0; i < 5; i++ {
		result = tracker.Track(candidate("C02JQ8XYZ01", 0.95), t0.Add(time.Duration(i)*time.Second), ocr.MotionUnknown)
	}
	if result.State != StateLocked {
		t.Fatalf("missing motion data should not block locking, got %s", result.State)
	}
}

func TestConsensusChangeRestartsStabilityWindow(t *testing.T) {
	tracker := newTracker(t)
	for i := 0; i < 3; i++ {
		tracker.Track(candidate("AAAAAAA1111", 0.9), t0.Add(time.Duration(i)*300*time.Millisecond), ocr.MotionStable)
	}
	// A new majority must re-enter stabilizing, not inherit the old window.
	var result StabilityResult
	base := t0.Add(time.Second)
	for i := 0; i < 5; i++ {
		result = tracker.Track(candidate("BBBBBBB2222", 0.9), base.Add(time.Duration(i)*200*time.Millisecond), ocr.MotionStable)
	}
	if result.State == StateLocked {
		t.Fatalf("lock before a full stability window for the new text: %+v", result)
	}
	if result.StableText != "BBBBBBB2222" {
		t.Fatalf("expected new majority, got %q", result.StableText)
	}
}

func TestLockExpiresAndResets(t *testing.T) {
	tracker := newTracker(t)
	for i := 0; i < 4; i++ {
		tracker.Track(candidate("C02JQ8XYZ01", 0.95), t0.Add(time.Duration(i)*time.Second), ocr.MotionStable)
	}
	lockTime := t0.Add(3 * time.Second)
	if !tracker.IsLocked(lockTime.Add(time.Second)) {
		t.Fatal("lock should still be active within lock duration")
	}
	if tracker.IsLocked(lockTime.Add(3 * time.Second)) {
		t.Fatal("lock should expire after lock duration")
	}
	if got := tracker.Snapshot(lockTime.Add(3 * time.Second)); got.FrameCount != 0 {
		t.Fatalf("expired lock should reset the window, got %+v", got)
	}
}

func TestForceUnlockRequiresFreshWindow(t *testing.T) {
	tracker := newTracker(t)
	for i := 0; i < 4; i++ {
		tracker.Track(candidate("C02JQ8XYZ01", 0.95), t0.Add(time.Duration(i)*time.Second), ocr.MotionStable)
	}
	if !tracker.IsLocked(t0.Add(3 * time.Second)) {
		t.Fatal("precondition: tracker should be locked")
	}

	tracker.ForceUnlock()
	if tracker.IsLocked(t0.Add(3 * time.Second)) {
		t.Fatal("force unlock must clear the lock")
	}

	// A different serial must earn its own full stability window.
	base := t0.Add(10 * time.Second)
	states := make([]State, 0, 5)
	for i := 0; i < 5; i++ {
		r := tracker.Track(candidate("DNPPV9X8FK1", 0.95), base.Add(time.Duration(i)*time.Second), ocr.MotionStable)
		states = append(states, r.State)
	}
	if states[0] != StateSeeking || states[1] != StateSeeking {
		t.Fatalf("fresh window must start seeking, got %v", states)
	}
	if states[2] != StateStabilizing {
		t.Fatalf("expected stabilizing at third frame, got %v", states)
	}
	if states[3] != StateLocked {
		t.Fatalf("expected lock only after a fresh stability window, got %v", states)
	}
}

func TestLockedStateIsSticky(t *testing.T) {
	tracker := newTracker(t)
	for i := 0; i < 4; i++ {
		tracker.Track(candidate("C02JQ8XYZ01", 0.95), t0.Add(time.Duration(i)*time.Second), ocr.MotionStable)
	}
	// Conflicting readings inside the lock window must not demote the state.
	result := tracker.Track(candidate("X99ABC12345", 0.99), t0.Add(3500*time.Millisecond), ocr.MotionStable)
	if result.State != StateLocked || result.StableText != "C02JQ8XYZ01" {
		t.Fatalf("locked state must hold within lock duration: %+v", result)
	}
}

func TestResetReturnsToSeeking(t *testing.T) {
	tracker := newTracker(t)
	for i := 0; i < 3; i++ {
		tracker.Track(candidate("C02JQ8XYZ01", 0.95), t0.Add(time.Duration(i)*time.Second), ocr.MotionStable)
	}
	tracker.Reset()
	result := tracker.Track(candidate("C02JQ8XYZ01", 0.95), t0.Add(10*time.Second), ocr.MotionStable)
	if result.State != StateSeeking {
		t.Fatalf("expected seeking after reset, got %s", result.State)
	}
}

func TestRingBufferEvictsOldest(t *testing.T) {
	tracker := newTracker(t, func(c *Config) { c.BufferCapacity = 3; c.ClusterWindow = 3; c.RequiredStableFrames = 2 })
	for i := 0; i < 6; i++ {
		tracker.Track(candidate("C02JQ8XYZ01", 0.9), t0.Add(time.Duration(i)*time.Second), ocr.MotionStable)
	}
	snap := tracker.Snapshot(t0.Add(6 * time.Second))
	if snap.FrameCount > 3 {
		t.Fatalf("buffer exceeded capacity: %+v", snap)
	}
}
