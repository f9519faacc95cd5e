package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"serialscan/internal/config"
	"serialscan/internal/consensus"
	"serialscan/internal/ocr"
	"serialscan/internal/resolve"
	"serialscan/internal/validate"
)

// FrameResult is the orchestrator's per-frame output for the UI layer.
type FrameResult struct {
	// Busy reports that the frame was dropped because another frame was
	// still in flight.
	Busy bool

	SessionID  string
	FrameIndex int

	Best      *validate.Candidate
	Valid     int
	Rejected  int
	Stability consensus.StabilityResult
}

// Orchestrator owns one long-lived instance of each pipeline stage and
// sequences them per frame. All per-frame data is transient; only the
// tracker's window and the validator's cache persist between frames, and
// both are protected by the single-flight guard.
type Orchestrator struct {
	resolver  *resolve.Resolver
	validator *validate.Validator
	tracker   *consensus.Tracker

	inFlight atomic.Bool

	mu         sync.Mutex
	observers  map[string]Observer
	sessionID  string
	frameIndex int
	lastState  consensus.State
	lastResult consensus.StabilityResult
}

// New assembles an orchestrator from the application config, failing fast on
// any stage misconfiguration.
func New(cfg *config.Config) (*Orchestrator, error) {
	validator, err := validate.New(validate.Options{
		MinimumLength: cfg.Validation.MinimumLength,
		MaximumLength: cfg.Validation.MaximumLength,
		Strict:        cfg.Validation.StrictValidation,
		Cache:         validate.NewBoundedCache(cfg.Validation.CacheSize),
	})
	if err != nil {
		return nil, err
	}

	trackerCfg := consensus.DefaultConfig()
	trackerCfg.BufferCapacity = cfg.Consensus.BufferCapacity
	trackerCfg.RequiredStableFrames = cfg.Consensus.RequiredStableFrames
	trackerCfg.ClusterWindow = cfg.Consensus.ClusterWindow
	trackerCfg.StabilityWindow = secondsToDuration(cfg.Consensus.StabilityWindowSeconds)
	trackerCfg.LockDuration = secondsToDuration(cfg.Consensus.LockSeconds)
	trackerCfg.ConfidenceThreshold = cfg.Consensus.ConfidenceThreshold
	trackerCfg.MaxEditDistance = cfg.Consensus.MaxEditDistance
	tracker, err := consensus.New(trackerCfg)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		resolver:  resolve.NewResolver(),
		validator: validator,
		tracker:   tracker,
		observers: make(map[string]Observer),
		sessionID: uuid.NewString(),
		lastState: consensus.StateSeeking,
	}, nil
}

// Attach registers an observer under a name, replacing any observer already
// attached under that name.
func (o *Orchestrator) Attach(name string, observer Observer) {
	if observer == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers[name] = observer
}

// Detach removes a named observer.
func (o *Orchestrator) Detach(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.observers, name)
}

// SessionID returns the current scan session identifier.
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// FramesProcessed returns how many frames the current session has consumed.
func (o *Orchestrator) FramesProcessed() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frameIndex
}

// ProcessFrame runs one frame through resolve, validate, and track. A frame
// arriving while another is processing returns immediately with Busy set.
func (o *Orchestrator) ProcessFrame(frame ocr.Frame, now time.Time) FrameResult {
	if !o.inFlight.CompareAndSwap(false, true) {
		return FrameResult{Busy: true, SessionID: o.SessionID()}
	}
	defer o.inFlight.Store(false)

	o.mu.Lock()
	sessionID := o.sessionID
	frameIndex := o.frameIndex
	o.frameIndex++
	o.mu.Unlock()

	corrected := o.resolver.Resolve(frame.Observations)
	outcome := o.validator.Validate(corrected)

	for _, rejected := range outcome.Rejected {
		o.emit(func(obs Observer) {
			obs.CandidateRejected(RejectEvent{
				SessionID:  sessionID,
				FrameIndex: frameIndex,
				Text:       rejected.Cleaned,
				Reason:     rejected.Reason,
			})
		})
	}

	var stability consensus.StabilityResult
	if outcome.Best != nil {
		stability = o.tracker.Track(*outcome.Best, now, frame.Motion)
	} else {
		// Nothing validated this frame; the tracker's belief stands and the
		// UI keeps its previous guidance target.
		stability = o.idleStability()
	}

	o.mu.Lock()
	previousState := o.lastState
	o.lastState = stability.State
	o.lastResult = stability
	o.mu.Unlock()

	if stability.State != previousState {
		o.emit(func(obs Observer) {
			obs.StateChanged(StateEvent{
				SessionID:  sessionID,
				FrameIndex: frameIndex,
				From:       previousState,
				To:         stability.State,
			})
		})
	}
	if stability.ShouldLock && previousState != consensus.StateLocked {
		o.emit(func(obs Observer) {
			obs.SerialLocked(LockEvent{
				SessionID:  sessionID,
				FrameIndex: frameIndex,
				Serial:     stability.StableText,
				Confidence: stability.Confidence,
			})
		})
	}
	o.emit(func(obs Observer) {
		obs.FrameProcessed(FrameEvent{
			SessionID:     sessionID,
			FrameIndex:    frameIndex,
			Observations:  len(frame.Observations),
			ValidCount:    len(outcome.Valid),
			RejectedCount: len(outcome.Rejected),
			State:         stability.State,
			StableText:    stability.StableText,
			Confidence:    stability.Confidence,
		})
	})

	result := FrameResult{
		SessionID:  sessionID,
		FrameIndex: frameIndex,
		Valid:      len(outcome.Valid),
		Rejected:   len(outcome.Rejected),
		Stability:  stability,
	}
	if outcome.Best != nil {
		best := *outcome.Best
		result.Best = &best
	}
	return result
}

// IsLocked reports whether the tracker holds an unexpired lock.
func (o *Orchestrator) IsLocked(now time.Time) bool {
	return o.tracker.IsLocked(now)
}

// Snapshot returns the tracker's running belief.
func (o *Orchestrator) Snapshot(now time.Time) consensus.Snapshot {
	return o.tracker.Snapshot(now)
}

// Reset clears the tracker window and validator cache and starts a new scan
// session. Only safe between frames.
func (o *Orchestrator) Reset() {
	o.tracker.Reset()
	o.validator.ResetCache()
	o.mu.Lock()
	o.sessionID = uuid.NewString()
	o.frameIndex = 0
	o.lastState = consensus.StateSeeking
	o.lastResult = consensus.StabilityResult{}
	o.mu.Unlock()
}

// ForceUnlock delegates the manual re-scan override to the tracker. The
// session continues; only consensus state is discarded.
func (o *Orchestrator) ForceUnlock() {
	o.tracker.ForceUnlock()
	o.mu.Lock()
	o.lastState = consensus.StateSeeking
	o.lastResult = consensus.StabilityResult{}
	o.mu.Unlock()
}

func (o *Orchestrator) idleStability() consensus.StabilityResult {
	o.mu.Lock()
	last := o.lastResult
	o.mu.Unlock()
	if last.State == "" {
		return consensus.StabilityResult{
			State:    consensus.StateSeeking,
			Guidance: consensus.GuidanceSearching,
		}
	}
	return last
}

func (o *Orchestrator) emit(fn func(Observer)) {
	o.mu.Lock()
	observers := make([]Observer, 0, len(o.observers))
	for _, obs := range o.observers {
		observers = append(observers, obs)
	}
	o.mu.Unlock()
	for _, obs := range observers {
		fn(obs)
	}
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
