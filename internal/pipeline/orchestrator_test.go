package pipeline

import (
	"sync"
	"testing"
	"time"

	"serialscan/internal/config"
	"serialscan/internal/consensus"
	"serialscan/internal/ocr"
)

var t0 = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	cfg := config.Default()
	orch, err := New(&cfg)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return orch
}

func singleFrame(text string, confidence float64) ocr.Frame {
	return ocr.Frame{
		Motion: ocr.MotionStable,
		Observations: []ocr.Observation{
			{Text: text, Confidence: confidence},
		},
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	frames  []FrameEvent
	rejects []RejectEvent
	states  []StateEvent
	locks   []LockEvent
}

func (r *recordingObserver) FrameProcessed(evt FrameEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, evt)
}

func (r *recordingObserver) CandidateRejected(evt RejectEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejects = append(r.rejects, evt)
}

func (r *recordingObserver) StateChanged(evt StateEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, evt)
}

func (r *recordingObserver) SerialLocked(evt LockEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locks = append(r.locks, evt)
}

type blockingObserver struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingObserver) FrameProcessed(FrameEvent) {
	b.entered <- struct{}{}
	<-b.release
}

func (b *blockingObserver) CandidateRejected(RejectEvent) {}
func (b *blockingObserver) StateChanged(StateEvent)       {}
func (b *blockingObserver) SerialLocked(LockEvent)        {}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Validation.MinimumLength = 0
	if _, err := New(&cfg); err == nil {
		t.Fatal("expected construction error for zero minimum length")
	}

	cfg = config.Default()
	cfg.Consensus.BufferCapacity = 0
	if _, err := New(&cfg); err == nil {
		t.Fatal("expected construction error for zero buffer capacity")
	}
}

func TestNoisyReadingsLockEndToEnd(t *testing.T) {
	orch := newOrchestrator(t)

	// Each reading carries a different residual OCR confusion; all three
	// resolve to the same corrected serial.
	readings := []string{"C02JO8XYZ0I", "C02JQ8XYZ01", "C02JQ8XYZ0l", "C02J08XYZ01"}
	var result FrameResult
	for i, text := range readings {
		result = orch.ProcessFrame(singleFrame(text, 0.95), t0.Add(time.Duration(i)*time.Second))
		if result.Busy {
			t.Fatalf("frame %d unexpectedly busy", i)
		}
	}

	if result.Stability.State != consensus.StateLocked {
		t.Fatalf("expected locked, got %s (%+v)", result.Stability.State, result.Stability)
	}
	if !result.Stability.ShouldLock {
		t.Fatal("locked result must set ShouldLock")
	}
	if result.Stability.StableText != "C02J08XYZ01" {
		t.Fatalf("unexpected locked serial %q", result.Stability.StableText)
	}
	if !orch.IsLocked(t0.Add(4 * time.Second)) {
		t.Fatal("orchestrator should report the tracker lock")
	}
}

func TestBusyGuardDropsConcurrentFrame(t *testing.T) {
	orch := newOrchestrator(t)
	blocker := &blockingObserver{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	orch.Attach("blocker", blocker)

	done := make(chan FrameResult, 1)
	go func() {
		done <- orch.ProcessFrame(singleFrame("C02JQ8XYZ01", 0.9), t0)
	}()

	select {
	case <-blocker.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first frame never reached the observer")
	}

	busy := orch.ProcessFrame(singleFrame("C02JQ8XYZ01", 0.9), t0.Add(time.Millisecond))
	if !busy.Busy {
		t.Fatal("concurrent frame must be dropped as busy")
	}

	close(blocker.release)
	first := <-done
	if first.Busy {
		t.Fatal("first frame must not report busy")
	}
	if got := orch.FramesProcessed(); got != 1 {
		t.Fatalf("busy frames must not consume an index, got %d", got)
	}
}

func TestFrameWithoutObservationsKeepsSeeking(t *testing.T) {
	orch := newOrchestrator(t)
	result := orch.ProcessFrame(ocr.Frame{Motion: ocr.MotionStable}, t0)
	if result.Busy {
		t.Fatal("empty frame must still be processed")
	}
	if result.Stability.State != consensus.StateSeeking {
		t.Fatalf("expected seeking, got %s", result.Stability.State)
	}
	if result.Stability.Guidance != consensus.GuidanceSearching {
		t.Fatalf("expected searching guidance, got %q", result.Stability.Guidance)
	}
}

func TestRejectedCandidatesReported(t *testing.T) {
	orch := newOrchestrator(t)
	recorder := &recordingObserver{}
	orch.Attach("recorder", recorder)

	frame := ocr.Frame{
		Motion: ocr.MotionStable,
		Observations: []ocr.Observation{
			{Text: "ABC", Confidence: 0.9},
			{Text: "C02JQ8XYZ01", Confidence: 0.9},
		},
	}
	result := orch.ProcessFrame(frame, t0)
	if result.Valid != 1 || result.Rejected != 1 {
		t.Fatalf("expected 1 valid and 1 rejected, got %d/%d", result.Valid, result.Rejected)
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.rejects) != 1 {
		t.Fatalf("expected one reject event, got %d", len(recorder.rejects))
	}
	if recorder.rejects[0].Text != "ABC" {
		t.Fatalf("unexpected rejected text %q", recorder.rejects[0].Text)
	}
	if len(recorder.frames) != 1 {
		t.Fatalf("expected one frame event, got %d", len(recorder.frames))
	}
}

func TestStateAndLockEventsFireOnce(t *testing.T) {
	orch := newOrchestrator(t)
	recorder := &recordingObserver{}
	orch.Attach("recorder", recorder)

	for i := 0; i < 5; i++ {
		orch.ProcessFrame(singleFrame("C02JQ8XYZ01", 0.95), t0.Add(time.Duration(i)*500*time.Millisecond))
	}
	// Further frames inside the lock window stay locked and must not re-fire
	// the lock event.
	orch.ProcessFrame(singleFrame("C02JQ8XYZ01", 0.95), t0.Add(2500*time.Millisecond))
	orch.ProcessFrame(singleFrame("C02JQ8XYZ01", 0.95), t0.Add(3000*time.Millisecond))

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.locks) != 1 {
		t.Fatalf("expected exactly one lock event, got %d", len(recorder.locks))
	}
	if recorder.locks[0].Serial != "C02JQ8XYZ01" {
		t.Fatalf("unexpected locked serial %q", recorder.locks[0].Serial)
	}
	for i := 1; i < len(recorder.states); i++ {
		if recorder.states[i].From == recorder.states[i].To {
			t.Fatalf("state event without a transition: %+v", recorder.states[i])
		}
	}
}

func TestResetStartsNewSession(t *testing.T) {
	orch := newOrchestrator(t)
	before := orch.SessionID()
	orch.ProcessFrame(singleFrame("C02JQ8XYZ01", 0.9), t0)
	if orch.FramesProcessed() != 1 {
		t.Fatalf("expected one processed frame, got %d", orch.FramesProcessed())
	}

	orch.Reset()
	if orch.SessionID() == before {
		t.Fatal("reset must issue a new session id")
	}
	if orch.FramesProcessed() != 0 {
		t.Fatal("reset must clear the frame counter")
	}

	result := orch.ProcessFrame(singleFrame("C02JQ8XYZ01", 0.9), t0.Add(time.Minute))
	if result.Stability.State != consensus.StateSeeking {
		t.Fatalf("expected seeking after reset, got %s", result.Stability.State)
	}
}

func TestForceUnlockKeepsSession(t *testing.T) {
	orch := newOrchestrator(t)
	for i := 0; i < 4; i++ {
		orch.ProcessFrame(singleFrame("C02JQ8XYZ01", 0.95), t0.Add(time.Duration(i)*time.Second))
	}
	if !orch.IsLocked(t0.Add(3 * time.Second)) {
		t.Fatal("precondition: orchestrator should be locked")
	}

	session := orch.SessionID()
	frames := orch.FramesProcessed()
	orch.ForceUnlock()

	if orch.IsLocked(t0.Add(3 * time.Second)) {
		t.Fatal("force unlock must clear the lock")
	}
	if orch.SessionID() != session || orch.FramesProcessed() != frames {
		t.Fatal("force unlock must not restart the session")
	}
}

func TestDetachStopsEvents(t *testing.T) {
	orch := newOrchestrator(t)
	recorder := &recordingObserver{}
	orch.Attach("recorder", recorder)
	orch.ProcessFrame(singleFrame("C02JQ8XYZ01", 0.9), t0)
	orch.Detach("recorder")
	orch.ProcessFrame(singleFrame("C02JQ8XYZ01", 0.9), t0.Add(time.Second))

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.frames) != 1 {
		t.Fatalf("detached observer must stop receiving events, got %d", len(recorder.frames))
	}
}
